package settings

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/validations"
)

// Engine is a registry of typed settings whose overrides live in a Provider.
//
// Reads are served from memory. Writes normalize, validate and persist the
// value before the cache changes, then recompute derived settings that depend
// on it.
type Engine struct {
	cfg       engineConfig
	provider  Provider
	defaults  *DefaultsProvider
	types     *TypeSupervisor
	hidden    *HiddenRegistry
	evaluator Evaluator
	emitter   *activity.Emitter

	mu        sync.RWMutex
	order     []string
	defs      map[string]Definition
	derived   map[string]*derivedSetting
	current   map[string]any
	overrides map[string]Row
	aliases   map[string]alias
}

type alias struct {
	target   string
	override bool
}

// New constructs an engine over provider. Call Refresh after registering
// settings to load persisted overrides.
func New(provider Provider, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, &ConfigurationError{Reason: "provider is required"}
	}
	cfg := applyOptions(opts)
	e := &Engine{
		cfg:       cfg,
		provider:  provider,
		defs:      map[string]Definition{},
		derived:   map[string]*derivedSetting{},
		current:   map[string]any{},
		overrides: map[string]Row{},
		aliases:   map[string]alias{},
	}

	var defaultsOpts []DefaultsOption
	if cfg.localeValidator != nil {
		defaultsOpts = append(defaultsOpts, DefaultsWithLocaleValidator(cfg.localeValidator))
	}
	if cfg.globalLocale != "" {
		defaultsOpts = append(defaultsOpts, DefaultsWithGlobalLocale(cfg.globalLocale))
	}
	e.defaults = NewDefaultsProvider(provider, defaultsOpts...)
	e.evaluator = resolveEvaluator(cfg)

	factories := builtinValidators(cfg.userLookup)
	factories[ValidatorExpr] = e.expressionValidator
	for name, factory := range cfg.validators {
		factories[name] = factory
	}
	rules := validations.Rules{}
	if !cfg.noStandardRules {
		rules = validations.Standard()
	}
	e.types = NewTypeSupervisor(e.defaults,
		SupervisorWithEnums(cfg.enums),
		SupervisorWithValidators(factories),
		SupervisorWithRules(rules.Merge(cfg.rules), e),
	)

	e.hidden = cfg.hidden
	if e.hidden == nil {
		e.hidden = NewHiddenRegistry()
	}
	e.emitter = activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: true,
		Channel: cfg.activityChannel,
	})
	return e, nil
}

// ActivityHooks returns a copy of the configured activity hooks.
func (e *Engine) ActivityHooks() activity.Hooks {
	return cloneActivityHooks(e.cfg.activityHooks)
}

// Defaults returns the locale aware defaults cache.
func (e *Engine) Defaults() *DefaultsProvider { return e.defaults }

// Types returns the type supervisor.
func (e *Engine) Types() *TypeSupervisor { return e.types }

// Hidden returns the hidden registry.
func (e *Engine) Hidden() *HiddenRegistry { return e.hidden }

// Provider returns the storage provider.
func (e *Engine) Provider() Provider { return e.provider }

// Register adds or replaces a setting. Re-registration resets its type.
func (e *Engine) Register(def Definition) error {
	def.Name = strings.TrimSpace(def.Name)
	if err := def.validate(); err != nil {
		return err
	}
	name := def.Name
	e.mu.RLock()
	_, isDerived := e.derived[name]
	e.mu.RUnlock()
	if isDerived {
		return &ConfigurationError{Setting: name, Reason: "already registered as a derived setting"}
	}

	prevDefaults := e.defaults.captureSetting(name)
	prevType := e.types.captureSetting(name)
	rollback := func() {
		e.defaults.restoreSetting(prevDefaults)
		e.types.restoreSetting(prevType)
	}

	e.defaults.LoadSetting(name, def.Default, def.LocaleDefault)
	if err := e.types.Register(def); err != nil {
		rollback()
		return err
	}
	value, err := e.effectiveDefault(name)
	if err == nil {
		err = e.checkLocaleDefaults(def)
	}
	if err != nil {
		rollback()
		return &ConfigurationError{Setting: name, Reason: "default does not match type", Err: err}
	}
	if def.Hidden {
		e.hidden.Add(name)
	}

	e.mu.Lock()
	if _, seen := e.defs[name]; !seen {
		e.order = append(e.order, name)
	}
	e.defs[name] = def
	if row, ok := e.overrides[name]; ok {
		if coerced, err := e.types.CoerceForRead(name, row.Value, row.DataType); err == nil {
			value = coerced
		}
	}
	e.current[name] = value
	derivedErr := e.refreshDependentsLocked(name)
	e.mu.Unlock()

	e.log(LogEvent{Op: "register", Setting: name, Err: derivedErr})
	return nil
}

// RegisterAll registers every definition, collecting failures.
func (e *Engine) RegisterAll(defs ...Definition) error {
	var result *multierror.Error
	for _, def := range defs {
		if err := e.Register(def); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// checkLocaleDefaults coerces every locale default of def to its registered
// type.
func (e *Engine) checkLocaleDefaults(def Definition) error {
	for _, v := range def.LocaleDefault {
		if v == nil {
			continue
		}
		if _, err := e.types.CoerceForRead(def.Name, v, 0); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) effectiveDefault(name string) (any, error) {
	raw, _ := e.defaults.Get(name)
	return e.types.CoerceForRead(name, raw, 0)
}

// Names returns registered and derived setting names in registration order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

// Has reports whether name is registered, derived or an alias.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.current[e.resolveLocked(name, false)]
	return ok
}

// resolveLocked follows a deprecation alias. Writes follow it only when the
// alias overrides or the old name is no longer registered.
func (e *Engine) resolveLocked(name string, write bool) string {
	a, ok := e.aliases[name]
	if !ok {
		return name
	}
	_, registered := e.defs[name]
	if a.override || !registered {
		e.log(LogEvent{Op: "deprecated", Setting: name,
			Message: fmt.Sprintf("setting %s is deprecated, use %s", name, a.target)})
		return a.target
	}
	if !write {
		e.log(LogEvent{Op: "deprecated", Setting: name,
			Message: fmt.Sprintf("setting %s is deprecated, use %s", name, a.target)})
	}
	return name
}

// Get returns the effective value of name.
func (e *Engine) Get(name string) (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.current[e.resolveLocked(name, false)]
	if !ok {
		return nil, unknownSetting(name)
	}
	return v, nil
}

// Value implements Reader.
func (e *Engine) Value(name string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.current[e.resolveLocked(name, false)]
	return v, ok
}

// GetString returns name rendered as a string. Lists are "|" joined.
func (e *Engine) GetString(name string) (string, error) {
	v, err := e.Get(name)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// GetInt returns name as an int.
func (e *Engine) GetInt(name string) (int, error) {
	v, err := e.Get(name)
	if err != nil {
		return 0, err
	}
	n, err := toInt(v)
	if err != nil {
		return 0, &InvalidParameterError{Setting: name, Key: KeyInvalidInteger, Err: err}
	}
	return n, nil
}

// GetBool returns name as a bool.
func (e *Engine) GetBool(name string) (bool, error) {
	v, err := e.Get(name)
	if err != nil {
		return false, err
	}
	b, err := parseBool(v)
	if err != nil {
		return false, &InvalidParameterError{Setting: name, Key: KeyInvalidBool, Err: err}
	}
	return b, nil
}

// GetFloat returns name as a float64.
func (e *Engine) GetFloat(name string) (float64, error) {
	v, err := e.Get(name)
	if err != nil {
		return 0, err
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, &InvalidParameterError{Setting: name, Key: KeyInvalidFloat, Err: err}
	}
	return f, nil
}

// GetList splits a list setting into its elements.
func (e *Engine) GetList(name string) ([]string, error) {
	s, err := e.GetString(name)
	if err != nil {
		return nil, err
	}
	return splitList(s), nil
}

// Snapshot copies every effective value.
func (e *Engine) Snapshot() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]any, len(e.current))
	for name, v := range e.current {
		out[name] = v
	}
	return out
}

// Set normalizes, validates and persists value, then updates the cache.
// Nothing is persisted or cached when validation fails.
func (e *Engine) Set(ctx context.Context, name string, value any) error {
	start := time.Now()
	e.mu.RLock()
	target := e.resolveLocked(name, true)
	_, isDerived := e.derived[target]
	def, registered := e.defs[target]
	e.mu.RUnlock()
	if isDerived {
		return invalidParameter(target, KeyReadOnly, "derived settings cannot be written")
	}
	if !registered {
		return unknownSetting(name)
	}

	if t, ok := e.types.Type(target); ok {
		value = filterListValue(t, value)
	}
	normalized, dataType, err := e.types.NormalizeForWrite(target, value)
	if err != nil {
		e.log(LogEvent{Op: "set", Setting: target, Err: err})
		return err
	}
	if err := e.types.Validate(target, dataType, normalized); err != nil {
		e.log(LogEvent{Op: "set", Setting: target, Err: err})
		return err
	}
	if err := e.provider.Save(ctx, target, normalized, dataType); err != nil {
		err = fmt.Errorf("settings: save %q: %w", target, err)
		e.log(LogEvent{Op: "set", Setting: target, Err: err})
		return err
	}
	coerced, err := e.types.CoerceForRead(target, normalized, dataType)
	if err != nil {
		return err
	}

	e.mu.Lock()
	old := e.current[target]
	e.current[target] = coerced
	e.overrides[target] = Row{Name: target, Value: normalized, DataType: dataType}
	derivedErr := e.refreshDependentsLocked(target)
	e.mu.Unlock()

	if !reflect.DeepEqual(old, coerced) {
		e.emit(ctx, activity.BuildSettingChangedEvent(activity.SettingEventInput{
			ActorID:  ActorFromContext(ctx),
			Site:     e.provider.CurrentSite(),
			Setting:  target,
			Category: def.Category,
			DataType: dataType.String(),
			OldValue: old,
			NewValue: coerced,
		}))
	}
	e.log(LogEvent{Op: "set", Setting: target, Site: e.provider.CurrentSite(), Duration: time.Since(start), Err: derivedErr})
	return nil
}

// ResetToDefault removes the override of name.
func (e *Engine) ResetToDefault(ctx context.Context, name string) error {
	e.mu.RLock()
	target := e.resolveLocked(name, true)
	_, isDerived := e.derived[target]
	def, registered := e.defs[target]
	e.mu.RUnlock()
	if isDerived {
		return invalidParameter(target, KeyReadOnly, "derived settings cannot be reset")
	}
	if !registered {
		return unknownSetting(name)
	}
	if err := e.provider.Destroy(ctx, target); err != nil {
		return fmt.Errorf("settings: reset %q: %w", target, err)
	}
	value, err := e.effectiveDefault(target)
	if err != nil {
		return err
	}

	e.mu.Lock()
	old := e.current[target]
	e.current[target] = value
	delete(e.overrides, target)
	derivedErr := e.refreshDependentsLocked(target)
	e.mu.Unlock()

	if !reflect.DeepEqual(old, value) {
		e.emit(ctx, activity.BuildSettingResetEvent(activity.SettingEventInput{
			ActorID:  ActorFromContext(ctx),
			Site:     e.provider.CurrentSite(),
			Setting:  target,
			Category: def.Category,
			OldValue: old,
			NewValue: value,
		}))
	}
	e.log(LogEvent{Op: "reset", Setting: target, Site: e.provider.CurrentSite(), Err: derivedErr})
	return nil
}

// Overridden reports whether name has a persisted override.
func (e *Engine) Overridden(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.overrides[e.resolveLocked(name, false)]
	return ok
}

// Refresh reloads the site locale and every override from the provider and
// recomputes derived settings. Rows that fail to coerce fall back to the
// default and are reported in the returned error.
func (e *Engine) Refresh(ctx context.Context) error {
	start := time.Now()
	var result *multierror.Error
	if _, err := e.defaults.RefreshSiteLocale(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	rows, err := e.provider.All(ctx)
	if err != nil {
		err = fmt.Errorf("settings: load overrides: %w", err)
		e.log(LogEvent{Op: "refresh", Err: err})
		return err
	}

	e.mu.RLock()
	names := make([]string, 0, len(e.defs))
	for name := range e.defs {
		names = append(names, name)
	}
	e.mu.RUnlock()

	next := make(map[string]any, len(names))
	for _, name := range names {
		v, err := e.effectiveDefault(name)
		if err != nil {
			result = multierror.Append(result, err)
		}
		next[name] = v
	}
	overrides := make(map[string]Row, len(rows))
	registered := make(map[string]bool, len(names))
	for _, name := range names {
		registered[name] = true
	}
	for _, row := range rows {
		if row.Name == LocaleSettingName {
			continue
		}
		if !registered[row.Name] {
			e.log(LogEvent{Op: "refresh", Setting: row.Name, Message: "ignoring override for unknown setting"})
			continue
		}
		v, err := e.types.CoerceForRead(row.Name, row.Value, row.DataType)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		next[row.Name] = v
		overrides[row.Name] = row
	}

	e.mu.Lock()
	for name := range e.derived {
		next[name] = e.current[name]
	}
	e.current = next
	e.overrides = overrides
	if err := e.recomputeDerivedLocked(); err != nil {
		result = multierror.Append(result, err)
	}
	e.mu.Unlock()

	err = result.ErrorOrNil()
	e.log(LogEvent{Op: "refresh", Site: e.provider.CurrentSite(), Duration: time.Since(start), Err: err})
	return err
}

// SiteLocale returns the active locale.
func (e *Engine) SiteLocale() string {
	return e.defaults.SiteLocale()
}

// SetSiteLocale persists a new site locale and refreshes every setting when
// it changed.
func (e *Engine) SetSiteLocale(ctx context.Context, id string) error {
	old := e.defaults.SiteLocale()
	changed, err := e.defaults.SetSiteLocale(ctx, id)
	if err != nil {
		e.log(LogEvent{Op: "locale", Setting: LocaleSettingName, Err: err})
		return err
	}
	if !changed {
		return nil
	}
	refreshErr := e.Refresh(ctx)
	e.emit(ctx, activity.BuildLocaleChangedEvent(activity.SettingEventInput{
		ActorID:  ActorFromContext(ctx),
		Site:     e.provider.CurrentSite(),
		Setting:  LocaleSettingName,
		OldValue: old,
		NewValue: e.defaults.SiteLocale(),
	}))
	e.log(LogEvent{Op: "locale", Setting: LocaleSettingName, Site: e.provider.CurrentSite(), Err: refreshErr})
	return refreshErr
}

// SetDefaultRegardlessOfLocale replaces every locale default of name with
// value. The effective value changes only when name has no override.
func (e *Engine) SetDefaultRegardlessOfLocale(name string, value any) error {
	e.mu.RLock()
	target := e.resolveLocked(name, true)
	_, registered := e.defs[target]
	e.mu.RUnlock()
	if !registered {
		return unknownSetting(name)
	}
	normalized, dataType, err := e.types.NormalizeForWrite(target, value)
	if err != nil {
		return err
	}
	if err := e.types.Validate(target, dataType, normalized); err != nil {
		return err
	}
	coerced, err := e.types.CoerceForRead(target, normalized, dataType)
	if err != nil {
		return err
	}
	if err := e.defaults.SetRegardlessOfLocale(target, coerced); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, overridden := e.overrides[target]; !overridden {
		e.current[target] = coerced
		return e.refreshDependentsLocked(target)
	}
	return nil
}

// Deprecate redirects reads of oldName to newName, logging each access. Writes
// follow the redirect when override is set or oldName is not registered.
func (e *Engine) Deprecate(oldName, newName string, override bool) error {
	if oldName == "" || oldName == newName {
		return &ConfigurationError{Setting: oldName, Reason: "deprecation needs distinct names"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.current[newName]; !ok {
		return &ConfigurationError{Setting: oldName, Reason: fmt.Sprintf("replacement %q is not registered", newName)}
	}
	e.aliases[oldName] = alias{target: newName, override: override}
	return nil
}

// TypeDescriptor describes the type of name for choice widgets.
func (e *Engine) TypeDescriptor(name string) (TypeDescriptor, error) {
	e.mu.RLock()
	target := e.resolveLocked(name, false)
	d, isDerived := e.derived[target]
	var value any
	if isDerived {
		value = e.current[target]
	}
	e.mu.RUnlock()
	if isDerived {
		return derivedDescriptor(d, value), nil
	}
	return e.types.TypeDescriptor(target)
}

// Categories returns the distinct categories, sorted.
func (e *Engine) Categories() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, name := range e.order {
		category := e.categoryLocked(name)
		if category != "" && !seen[category] {
			seen[category] = true
			out = append(out, category)
		}
	}
	sort.Strings(out)
	return out
}

func (e *Engine) categoryLocked(name string) string {
	if def, ok := e.defs[name]; ok {
		return def.Category
	}
	if d, ok := e.derived[name]; ok {
		return d.category
	}
	return ""
}

// AllSettingsForCategory lists the visible settings of category in
// registration order.
func (e *Engine) AllSettingsForCategory(category string) []SettingInfo {
	return e.list(func(info SettingInfo) bool {
		return !info.Hidden && info.Category == category
	})
}

// AllSettings lists every setting in registration order. Hidden settings are
// included only when includeHidden is set.
func (e *Engine) AllSettings(includeHidden bool) []SettingInfo {
	return e.list(func(info SettingInfo) bool {
		return includeHidden || !info.Hidden
	})
}

// Describe returns the listing view of name.
func (e *Engine) Describe(name string) (SettingInfo, error) {
	e.mu.RLock()
	target := e.resolveLocked(name, false)
	_, ok := e.current[target]
	e.mu.RUnlock()
	if !ok {
		return SettingInfo{}, unknownSetting(name)
	}
	infos := e.list(func(info SettingInfo) bool { return info.Name == target })
	if len(infos) == 0 {
		return SettingInfo{}, unknownSetting(name)
	}
	return infos[0], nil
}

func (e *Engine) list(keep func(SettingInfo) bool) []SettingInfo {
	hidden := e.hidden.All()
	e.mu.RLock()
	names := append([]string(nil), e.order...)
	e.mu.RUnlock()

	out := make([]SettingInfo, 0, len(names))
	for _, name := range names {
		info, ok := e.info(name, hidden.Contains(name))
		if ok && keep(info) {
			out = append(out, info)
		}
	}
	return out
}

func (e *Engine) info(name string, hidden bool) (SettingInfo, bool) {
	e.mu.RLock()
	def, registered := e.defs[name]
	d, isDerived := e.derived[name]
	value := e.current[name]
	_, overridden := e.overrides[name]
	e.mu.RUnlock()

	switch {
	case registered:
		descriptor, err := e.types.TypeDescriptor(name)
		if err != nil {
			return SettingInfo{}, false
		}
		defaultValue, _ := e.effectiveDefault(name)
		return SettingInfo{
			Name:        name,
			Category:    def.Category,
			Description: def.Description,
			Value:       value,
			Default:     defaultValue,
			Overridden:  overridden,
			Hidden:      hidden,
			Descriptor:  descriptor,
		}, true
	case isDerived:
		return SettingInfo{
			Name:        name,
			Category:    d.category,
			Description: d.description,
			Value:       value,
			Derived:     true,
			Hidden:      hidden,
			Descriptor:  derivedDescriptor(d, value),
		}, true
	}
	return SettingInfo{}, false
}

func (e *Engine) emit(ctx context.Context, event activity.Event) {
	if !e.emitter.Enabled() {
		return
	}
	if err := e.emitter.Emit(ctx, event); err != nil {
		e.log(LogEvent{Op: "activity", Setting: event.ObjectID, Err: err})
	}
}

func (e *Engine) log(event LogEvent) {
	e.cfg.logger.Log(event)
}

// filterListValue trims list elements, lower cases hosts and drops
// duplicates.
func filterListValue(t DataType, value any) any {
	if t != TypeHostList && t != TypeURLList {
		return value
	}
	var items []string
	switch v := value.(type) {
	case string:
		items = strings.Split(v, "|")
	case []string:
		items = v
	default:
		return value
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if t == TypeHostList {
			item = strings.ToLower(item)
		}
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return strings.Join(out, "|")
}

// expressionValidator builds the "expr" validator: the rule expression must
// evaluate to true with value and the current settings bound.
func (e *Engine) expressionValidator(opts ValidatorOptions) (Validator, error) {
	if strings.TrimSpace(opts.Rule) == "" {
		return nil, fmt.Errorf("expr validator requires a rule")
	}
	compiled, err := e.evaluator.Compile(opts.Rule)
	if err != nil {
		return nil, err
	}
	setting, rule, dataType := opts.Setting, opts.Rule, opts.Type
	return ValidatorFunc(func(value string) error {
		candidate, err := e.types.CoerceForRead(setting, value, dataType)
		if err != nil {
			return err
		}
		ctx := RuleContext{Setting: setting, Value: candidate, Settings: e.Snapshot()}.withDefaults()
		out, err := e.runCompiled(compiled, ctx, rule)
		if err != nil {
			return &InvalidParameterError{Setting: setting, Key: KeyRuleRejected, Err: err}
		}
		if ok, _ := out.(bool); !ok {
			return &InvalidParameterError{
				Setting: setting,
				Key:     KeyRuleRejected,
				Params:  map[string]any{"rule": rule},
				Message: fmt.Sprintf("%v does not satisfy %s", candidate, rule),
			}
		}
		return nil
	}), nil
}
