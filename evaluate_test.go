package settings

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExpressionRuleValidator(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeProvider())
	mustRegister(t, e,
		Definition{Name: "min_title_length", Default: 15},
		Definition{Name: "max_title_length", Default: 255, Rule: "value >= min_title_length"},
	)

	err := e.Set(ctx, "max_title_length", 10)
	if key := invalidKey(t, err); key != KeyRuleRejected {
		t.Fatalf("expected %s, got %s", KeyRuleRejected, key)
	}
	if err := e.Set(ctx, "max_title_length", 20); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e.Set(ctx, "min_title_length", 5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e.Set(ctx, "max_title_length", 10); err != nil {
		t.Fatalf("expected rule to see the new minimum, got %v", err)
	}
}

func TestRuleWithBrokenExpressionIsRejectedAtRegistration(t *testing.T) {
	e := newTestEngine(t, newFakeProvider())
	err := e.Register(Definition{Name: "limit", Default: 1, Rule: "value >="})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEvaluateStandardFunctions(t *testing.T) {
	e := newTestEngine(t, newFakeProvider())
	mustRegister(t, e, Definition{Name: "top_menu", Default: []string{"latest", "new", "top"}})

	got, err := e.Evaluate("list_count(top_menu)", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected 3, got %#v", got)
	}
	got, err = e.Evaluate(`list_contains(top_menu, "new")`, nil)
	if err != nil || got != true {
		t.Fatalf("expected true, got %#v err=%v", got, err)
	}
	got, err = e.Evaluate("args.limit > 3", map[string]any{"limit": 5})
	if err != nil || got != true {
		t.Fatalf("expected args binding, got %#v err=%v", got, err)
	}
	if _, err := e.Evaluate("", nil); err == nil {
		t.Fatalf("expected empty expression to fail")
	}
	if _, err := e.Evaluate("1 +", nil); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestEvaluateCustomFunction(t *testing.T) {
	e := newTestEngine(t, newFakeProvider(), WithCustomFunction("double", func(args ...any) (any, error) {
		n, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		return n * 2, nil
	}))
	got, err := e.Evaluate("double(21)", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %#v", got)
	}
	if _, err := e.Evaluate("list_count('a|b')", nil); err != nil {
		t.Fatalf("expected standard functions to remain available, got %v", err)
	}
}

func TestCELEvaluator(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeProvider(), WithEvaluator(NewCELEvaluator()))
	mustRegister(t, e,
		Definition{Name: "login_required", Default: false},
		Definition{Name: "invite_only", Default: false},
	)
	got, err := e.Evaluate("!invite_only && !login_required", nil)
	if err != nil || got != true {
		t.Fatalf("expected true, got %#v err=%v", got, err)
	}
	if err := e.RegisterExpression("private_site", "", []string{"login_required", "invite_only"}, "login_required || invite_only"); err != nil {
		t.Fatalf("RegisterExpression: %v", err)
	}
	if err := e.Set(ctx, "login_required", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := e.Get("private_site"); v != true {
		t.Fatalf("expected derived cel value true, got %#v", v)
	}
}

func TestCELEvaluatorCallsRegisteredFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		n, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		return n * 2, nil
	}); err != nil {
		t.Fatalf("Register double: %v", err)
	}
	if err := registry.Register("answer", func(args ...any) (any, error) { return 42, nil }); err != nil {
		t.Fatalf("Register answer: %v", err)
	}
	if err := registry.Register("sum", func(args ...any) (any, error) {
		a, _ := toInt(args[0])
		b, _ := toInt(args[1])
		return a + b, nil
	}); err != nil {
		t.Fatalf("Register sum: %v", err)
	}

	e := newTestEngine(t, newFakeProvider(), WithEvaluator(NewCELEvaluator(CELWithFunctionRegistry(registry))))
	mustRegister(t, e, Definition{Name: "limit", Default: 21})

	for _, expr := range []string{
		`call("double", limit) == 42`,
		`call("answer") == 42`,
		`call("sum", limit, 21) == 42`,
	} {
		got, err := e.Evaluate(expr, nil)
		if err != nil {
			t.Fatalf("%s: %v", expr, err)
		}
		if got != true {
			t.Fatalf("%s: expected true, got %#v", expr, got)
		}
	}
	if _, err := e.Evaluate(`call("missing", 1) == 1`, nil); err == nil {
		t.Fatalf("expected unknown function to fail")
	}
}

func TestTTLProgramCacheReusesPrograms(t *testing.T) {
	cache := NewTTLProgramCache(time.Minute, 16)
	e := newTestEngine(t, newFakeProvider(), WithProgramCache(cache))
	mustRegister(t, e, Definition{Name: "limit", Default: 3})

	for i := 0; i < 3; i++ {
		got, err := e.Evaluate("limit * 2", nil)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if got != 6 {
			t.Fatalf("expected 6, got %#v", got)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
	if _, ok := cache.Get("missing"); ok {
		t.Fatalf("expected cache miss")
	}
}
