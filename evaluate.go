package settings

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("settings: evaluator not configured")

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	// Setting names the setting being validated or derived.
	Setting string
	// Value is the candidate value, coerced to the setting type.
	Value any
	// Settings holds current values by name. Each entry is also bound as a
	// top level identifier.
	Settings map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

var reservedIdentifiers = map[string]bool{
	"now": true, "args": true, "metadata": true, "value": true,
	"setting": true, "settings": true, "call": true,
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.Settings == nil {
		ctx.Settings = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

// bindings flattens ctx into the identifiers visible to an expression.
func (ctx RuleContext) bindings() map[string]any {
	env := make(map[string]any, len(ctx.Settings)+6)
	for key, value := range ctx.Settings {
		if !reservedIdentifiers[key] {
			env[key] = value
		}
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	env["value"] = ctx.Value
	env["setting"] = ctx.Setting
	env["settings"] = ctx.Settings
	return env
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Evaluate runs expr against the current settings.
func (e *Engine) Evaluate(expr string, args map[string]any) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("settings: expression must not be empty")
	}
	ctx := RuleContext{Settings: e.Snapshot(), Args: args}.withDefaults()
	return e.evaluate(ctx, expr)
}

func (e *Engine) evaluate(ctx RuleContext, expr string) (any, error) {
	evaluator := e.evaluator
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.Setting, evalErr)
	e.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Setting:  ctx.Setting,
		Duration: duration,
		Err:      evalErr,
	})
	return value, evalErr
}

func (e *Engine) runCompiled(rule CompiledRule, ctx RuleContext, expr string) (any, error) {
	engine := evaluatorEngineName(e.evaluator)
	start := time.Now()
	value, evalErr := rule.Evaluate(ctx)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.Setting, evalErr)
	e.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Setting:  ctx.Setting,
		Duration: duration,
		Err:      evalErr,
	})
	return value, evalErr
}

func resolveEvaluator(cfg engineConfig) Evaluator {
	if cfg.evaluator != nil {
		return cfg.evaluator
	}
	var exprOpts []ExprEvaluatorOption
	if cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
	}
	functions := cfg.functions
	if functions == nil {
		functions = StandardFunctions()
	}
	exprOpts = append(exprOpts, ExprWithFunctionRegistry(functions))
	return NewExprEvaluator(exprOpts...)
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*settings.exprEvaluator":
		return "expr"
	case "*settings.celEvaluator":
		return "cel"
	case "*settings.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
