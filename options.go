package settings

import (
	"context"
	"strings"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/locale"
	"github.com/goliatone/go-settings/pkg/validations"
)

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger          Logger
	evalLogger      EvaluatorLogger
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	activityHooks   activity.Hooks
	activityChannel string
	localeValidator locale.Validator
	globalLocale    string
	enums           map[string]Enum
	validators      map[string]ValidatorFactory
	rules           validations.Rules
	noStandardRules bool
	userLookup      UserLookup
	hidden          *HiddenRegistry
	schemaGenerator SchemaGenerator
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{
		logger:     noopLogger{},
		evalLogger: noopEvaluatorLogger{},
		enums:      map[string]Enum{},
		validators: map[string]ValidatorFactory{},
		rules:      validations.Rules{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator replaces the default expr evaluator used by rule expressions
// and expression derived settings.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *engineConfig) {
		cfg.evaluator = e
	}
}

// WithActivityHooks attaches hooks notified of setting changes. Hooks are
// cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *engineConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *engineConfig) {
		cfg.activityChannel = strings.TrimSpace(channel)
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

// WithLocaleValidator sets the oracle consulted when the site locale is
// written. The default accepts any well formed BCP 47 identifier.
func WithLocaleValidator(v locale.Validator) Option {
	return func(cfg *engineConfig) {
		cfg.localeValidator = v
	}
}

// WithLocales restricts the site locale to set and registers it as the
// "locale" enum.
func WithLocales(set *locale.Set) Option {
	return func(cfg *engineConfig) {
		if set == nil {
			return
		}
		cfg.localeValidator = set
		cfg.enums["locale"] = LocaleEnum(set)
	}
}

// WithGlobalLocale pins the active locale for the process.
func WithGlobalLocale(id string) Option {
	return func(cfg *engineConfig) {
		cfg.globalLocale = strings.TrimSpace(id)
	}
}

// WithEnum makes e resolvable by Definition.EnumName.
func WithEnum(name string, e Enum) Option {
	return func(cfg *engineConfig) {
		if name == "" || e == nil {
			return
		}
		cfg.enums[name] = e
	}
}

// WithValidator registers a validator factory under name.
func WithValidator(name string, factory ValidatorFactory) Option {
	return func(cfg *engineConfig) {
		if name == "" || factory == nil {
			return
		}
		cfg.validators[name] = factory
	}
}

// WithRules binds rules on top of the standard set. A nil rule unbinds the
// standard rule of that name.
func WithRules(rules validations.Rules) Option {
	return func(cfg *engineConfig) {
		cfg.rules = cfg.rules.Merge(rules)
	}
}

// WithoutStandardRules skips binding validations.Standard.
func WithoutStandardRules() Option {
	return func(cfg *engineConfig) {
		cfg.noStandardRules = true
	}
}

// WithUserLookup enables existence checks for username settings.
func WithUserLookup(lookup UserLookup) Option {
	return func(cfg *engineConfig) {
		cfg.userLookup = lookup
	}
}

// WithHiddenRegistry shares a hidden registry with the engine.
func WithHiddenRegistry(h *HiddenRegistry) Option {
	return func(cfg *engineConfig) {
		cfg.hidden = h
	}
}

type actorKey struct{}

// ContextWithActor records who performs writes made with ctx. The actor is
// stamped on emitted activity events.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
}

// ActorFromContext returns the actor stored by ContextWithActor.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
