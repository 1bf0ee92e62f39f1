package settings

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every setting is
// declared as a dynamically typed variable.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx = ctx.withDefaults()
	bindings := ctx.bindings()
	program, err := e.loadOrCompile(expression, bindings)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(e.activation(bindings))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	// Type checking waits for the bindings; syntax errors surface now.
	env, err := celgo.NewEnv()
	if err != nil {
		return nil, err
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

// programKey scopes cached programs to the declared identifiers, which change
// as settings are registered.
func programKey(expression string, bindings map[string]any) string {
	names := make([]string, 0, len(bindings))
	for key := range bindings {
		names = append(names, key)
	}
	sort.Strings(names)
	return expression + "\x00" + strings.Join(names, ",")
}

func (e *celEvaluator) loadOrCompile(expression string, bindings map[string]any) (*celProgram, error) {
	key := programKey(expression, bindings)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(bindings)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(bindings map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("setting", celgo.StringType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string",
				[]*celgo.Type{celgo.StringType}, celgo.DynType,
				celgo.UnaryBinding(func(name ref.Val) ref.Val { return e.call(name) })),
			celgo.Overload("call_string_dyn",
				[]*celgo.Type{celgo.StringType, celgo.DynType}, celgo.DynType,
				celgo.BinaryBinding(func(name, arg ref.Val) ref.Val { return e.call(name, arg) })),
			celgo.Overload("call_string_dyn_dyn",
				[]*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType}, celgo.DynType,
				celgo.FunctionBinding(func(values ...ref.Val) ref.Val { return e.call(values[0], values[1:]...) })),
		))
	}
	for key := range bindings {
		if key == "now" || key == "setting" {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(bindings map[string]any) map[string]any {
	activation := make(map[string]any, len(bindings))
	for key, value := range bindings {
		activation[key] = value
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, fmt.Errorf("cel compiled rule missing evaluator")
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

// call dispatches call(name, args...) to the function registry.
func (e *celEvaluator) call(name ref.Val, values ...ref.Val) ref.Val {
	if e.registry == nil {
		return types.NewErr("settings: function registry not configured")
	}
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("settings: call name must be string")
	}
	args := make([]any, 0, len(values))
	for _, val := range values {
		args = append(args, val.Value())
	}
	result, err := e.registry.Call(fn, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
