package validations

import (
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultCategoryLevels are the per-level default notification category lists.
var DefaultCategoryLevels = []string{
	"default_categories_watching",
	"default_categories_tracking",
	"default_categories_muted",
	"default_categories_watching_first_post",
}

const (
	KeyCategoryInvalid    = "errors.site_settings.invalid_category_id"
	KeyCategoryOverlapped = "errors.site_settings.default_categories.already_selected"
)

// DisjointCategories binds a rule to each named setting requiring its
// category ids to appear in none of the others. Values are "|" separated
// integer ids.
func DisjointCategories(names ...string) Rules {
	rules := make(Rules, len(names))
	for _, name := range names {
		self := name
		others := make([]string, 0, len(names)-1)
		for _, other := range names {
			if other != self {
				others = append(others, other)
			}
		}
		rules[self] = func(candidate string, read Reader) error {
			ids, err := categoryIDs(self, candidate)
			if err != nil {
				return err
			}
			taken := mapset.NewThreadUnsafeSet[int]()
			for _, other := range others {
				otherIDs, err := categoryIDs(other, stringValue(read, other))
				if err != nil {
					continue
				}
				taken = taken.Union(otherIDs)
			}
			if overlap := ids.Intersect(taken); overlap.Cardinality() > 0 {
				return reject(KeyCategoryOverlapped, map[string]any{"setting": self, "ids": overlap.ToSlice()},
					"%s: categories already selected for another notification level", self)
			}
			return nil
		}
	}
	return rules
}

func categoryIDs(setting, value string) (mapset.Set[int], error) {
	ids := mapset.NewThreadUnsafeSet[int]()
	for _, part := range strings.Split(value, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, reject(KeyCategoryInvalid, map[string]any{"setting": setting, "value": part},
				"%s: %q is not a category id", setting, part)
		}
		ids.Add(id)
	}
	return ids, nil
}
