package settings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-settings/layering"
	"github.com/goliatone/go-settings/pkg/locale"
)

// LocaleSettingName is the reserved row holding the persisted site locale.
const LocaleSettingName = "default_locale"

// DefaultsProvider caches per-locale defaults and resolves the active locale.
type DefaultsProvider struct {
	mu        sync.RWMutex
	provider  Provider
	validator locale.Validator
	global    string

	// byLocale maps a canonical locale to its default values. The base locale
	// holds every registered default.
	byLocale   map[string]map[string]any
	siteLocale string
	view       map[string]any
}

// DefaultsOption configures a DefaultsProvider.
type DefaultsOption func(*DefaultsProvider)

// DefaultsWithLocaleValidator sets the oracle consulted by SetSiteLocale.
func DefaultsWithLocaleValidator(v locale.Validator) DefaultsOption {
	return func(d *DefaultsProvider) {
		if v != nil {
			d.validator = v
		}
	}
}

// DefaultsWithGlobalLocale pins the active locale for the whole process,
// taking precedence over the persisted value.
func DefaultsWithGlobalLocale(id string) DefaultsOption {
	return func(d *DefaultsProvider) {
		d.global = strings.TrimSpace(id)
	}
}

// NewDefaultsProvider builds a provider reading the persisted locale from p.
func NewDefaultsProvider(p Provider, opts ...DefaultsOption) *DefaultsProvider {
	d := &DefaultsProvider{
		provider:   p,
		validator:  locale.Parseable(),
		byLocale:   map[string]map[string]any{locale.Base: {}},
		siteLocale: locale.Base,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.global != "" {
		d.siteLocale = d.global
	}
	d.rebuildLocked()
	return d
}

func localeKey(id string) string {
	if canonical, err := locale.Canonical(id); err == nil {
		return canonical
	}
	return strings.TrimSpace(id)
}

// LoadSetting stores value as the base locale default of name and each entry
// of localeDefaults under its locale.
func (d *DefaultsProvider) LoadSetting(name string, value any, localeDefaults map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byLocale[locale.Base][name] = cloneValue(value)
	for id, v := range localeDefaults {
		key := localeKey(id)
		if key == locale.Base {
			d.byLocale[locale.Base][name] = cloneValue(v)
			continue
		}
		if d.byLocale[key] == nil {
			d.byLocale[key] = map[string]any{}
		}
		d.byLocale[key][name] = cloneValue(v)
	}
	d.rebuildLocked()
}

// settingDefaults holds every locale default of one setting, keyed by locale.
type settingDefaults struct {
	name   string
	values map[string]any
}

func (d *DefaultsProvider) captureSetting(name string) settingDefaults {
	d.mu.RLock()
	defer d.mu.RUnlock()
	captured := settingDefaults{name: name, values: map[string]any{}}
	for key, layer := range d.byLocale {
		if v, ok := layer[name]; ok {
			captured.values[key] = cloneValue(v)
		}
	}
	return captured
}

func (d *DefaultsProvider) restoreSetting(captured settingDefaults) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, layer := range d.byLocale {
		if v, ok := captured.values[key]; ok {
			layer[captured.name] = v
		} else {
			delete(layer, captured.name)
		}
	}
	d.rebuildLocked()
}

func (d *DefaultsProvider) rebuildLocked() {
	d.view = d.mergedLocked(d.siteLocale)
}

func (d *DefaultsProvider) mergedLocked(id string) map[string]any {
	key := localeKey(id)
	if key == locale.Base {
		return layering.Clone(d.byLocale[locale.Base])
	}
	return layering.MergeLayers(d.byLocale[key], d.byLocale[locale.Base])
}

// Get returns the default of name for the active locale.
func (d *DefaultsProvider) Get(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name == LocaleSettingName {
		return d.siteLocale, true
	}
	v, ok := d.view[name]
	return cloneValue(v), ok
}

// GetForLocale returns the default of name for id, falling back to the base
// locale.
func (d *DefaultsProvider) GetForLocale(name, id string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, known := d.byLocale[locale.Base][name]; !known {
		return nil, false
	}
	if v, ok := layering.Lookup(name, d.byLocale[localeKey(id)], d.byLocale[locale.Base]); ok {
		return cloneValue(v), true
	}
	return nil, true
}

// LocaleOverride returns the default declared for id alone.
func (d *DefaultsProvider) LocaleOverride(name, id string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.byLocale[localeKey(id)][name]
	return cloneValue(v), ok
}

// All returns every default resolved for id. An empty id means the active
// locale.
func (d *DefaultsProvider) All(id string) map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id == "" {
		return layering.Clone(d.view)
	}
	return d.mergedLocked(id)
}

// SetRegardlessOfLocale replaces every locale default of name with value.
func (d *DefaultsProvider) SetRegardlessOfLocale(name string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byLocale[locale.Base][name]; !ok {
		return unknownSetting(name)
	}
	for key, values := range d.byLocale {
		if key != locale.Base {
			delete(values, name)
		}
	}
	d.byLocale[locale.Base][name] = cloneValue(value)
	d.rebuildLocked()
	return nil
}

// SiteLocale returns the active locale.
func (d *DefaultsProvider) SiteLocale() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.siteLocale
}

// SetSiteLocale validates and persists id, then re-resolves the active
// locale. It reports whether the stored locale changed. The caller must
// refresh anything derived from defaults when it did. While a global locale
// is pinned nothing is written and the call reports no change.
func (d *DefaultsProvider) SetSiteLocale(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if d.validator == nil || !d.validator.Valid(id) {
		return false, &InvalidParameterError{
			Setting: LocaleSettingName,
			Key:     KeyInvalidLocale,
			Params:  map[string]any{"locale": id},
			Message: fmt.Sprintf("%q is not a recognized locale", id),
			Err:     ErrInvalidLocale,
		}
	}
	d.mu.RLock()
	pinned := d.global != ""
	current := d.siteLocale
	d.mu.RUnlock()
	if pinned || id == current {
		return false, nil
	}
	if d.provider != nil {
		if err := d.provider.Save(ctx, LocaleSettingName, id, TypeString); err != nil {
			return false, fmt.Errorf("settings: persist site locale: %w", err)
		}
	}
	if _, err := d.RefreshSiteLocale(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// RefreshSiteLocale resolves the active locale: the process override, then the
// persisted row, then the base locale.
func (d *DefaultsProvider) RefreshSiteLocale(ctx context.Context) (string, error) {
	resolved := locale.Base
	var findErr error
	d.mu.RLock()
	global := d.global
	d.mu.RUnlock()
	switch {
	case global != "":
		resolved = global
	case d.provider != nil:
		row, ok, err := d.provider.Find(ctx, LocaleSettingName)
		if err != nil {
			findErr = fmt.Errorf("settings: read site locale: %w", err)
		} else if ok && strings.TrimSpace(row.Value) != "" {
			resolved = strings.TrimSpace(row.Value)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if findErr != nil {
		return d.siteLocale, findErr
	}
	if resolved != d.siteLocale {
		d.siteLocale = resolved
	}
	d.rebuildLocked()
	return d.siteLocale, nil
}

// HasKey reports whether name has a default or is the reserved locale key.
func (d *DefaultsProvider) HasKey(name string) bool {
	if name == LocaleSettingName {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byLocale[locale.Base][name]
	return ok
}
