//go:build js_eval

package settings

import (
	"context"
	"testing"
)

func TestJSEvaluatorDrivesRulesAndDerivedSettings(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeProvider(), WithEvaluator(NewJSEvaluator()))
	mustRegister(t, e,
		Definition{Name: "login_required", Default: false},
		Definition{Name: "invite_only", Default: false},
		Definition{Name: "min_title_length", Default: 3},
		Definition{Name: "max_title_length", Default: 80, Rule: "value >= min_title_length"},
	)
	if err := e.RegisterExpression("private_site", "", []string{"login_required", "invite_only"}, "login_required || invite_only"); err != nil {
		t.Fatalf("RegisterExpression: %v", err)
	}
	if err := e.Set(ctx, "invite_only", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := e.Get("private_site"); v != true {
		t.Fatalf("expected true, got %#v", v)
	}
	if err := e.Set(ctx, "max_title_length", 2); err == nil {
		t.Fatalf("expected js rule to reject the write")
	}
}
