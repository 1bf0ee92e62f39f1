package openapi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const uncategorized = "uncategorized"

// categoryComponents groups setting schemas by category. Each category is
// published as one object component; the request bodies compose them.
type categoryComponents struct {
	byCategory map[string]*categoryComponent
	usedNames  map[string]struct{}
}

type categoryComponent struct {
	name     string
	category string
	node     *schemaNode
}

func newCategoryComponents() *categoryComponents {
	return &categoryComponents{
		byCategory: map[string]*categoryComponent{},
		usedNames:  map[string]struct{}{},
	}
}

func (c *categoryComponents) add(category, setting string, node *schemaNode) {
	if category == "" {
		category = uncategorized
	}
	entry, ok := c.byCategory[category]
	if !ok {
		entry = &categoryComponent{
			name:     c.uniqueName(componentName(category)),
			category: category,
			node:     newObjectNode(),
		}
		entry.node.setExtension("category", category)
		c.byCategory[category] = entry
	}
	entry.node.Properties[setting] = node
}

func (c *categoryComponents) sorted() []*categoryComponent {
	out := make([]*categoryComponent, 0, len(c.byCategory))
	for _, entry := range c.byCategory {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].category < out[j].category })
	return out
}

func (c *categoryComponents) refs() []any {
	entries := c.sorted()
	out := make([]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{"$ref": componentRef(entry.name)})
	}
	return out
}

func (c *categoryComponents) schemas() map[string]any {
	if len(c.byCategory) == 0 {
		return nil
	}
	out := make(map[string]any, len(c.byCategory))
	for _, entry := range c.byCategory {
		out[entry.name] = entry.node.inlineOpenAPI()
	}
	return out
}

func (c *categoryComponents) uniqueName(name string) string {
	if _, exists := c.usedNames[name]; !exists {
		c.usedNames[name] = struct{}{}
		return name
	}
	for suffix := 2; ; suffix++ {
		candidate := fmt.Sprintf("%s%d", name, suffix)
		if _, exists := c.usedNames[candidate]; !exists {
			c.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}

func componentRef(name string) string {
	return "#/components/schemas/" + name
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// componentName turns "user_api" into "UserApiSettings".
func componentName(category string) string {
	var b strings.Builder
	for _, word := range componentNameRegexp.Split(category, -1) {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "Category" + name
	}
	return name + "Settings"
}
