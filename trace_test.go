package settings

import (
	"context"
	"testing"
)

func TestTraceReportsLayers(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeProvider())
	mustRegister(t, e, Definition{Name: "title", Default: "Forum", LocaleDefault: map[string]any{"fr": "Forum FR"}})

	trace, err := e.Trace("title")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if len(trace.Layers) != 2 {
		t.Fatalf("expected override and base layers for the base locale, got %+v", trace.Layers)
	}
	if winner, _ := trace.Winner(); winner.Source != LayerBase {
		t.Fatalf("expected base to win, got %+v", winner)
	}

	if err := e.SetSiteLocale(ctx, "fr"); err != nil {
		t.Fatalf("SetSiteLocale: %v", err)
	}
	trace, _ = e.Trace("title")
	if len(trace.Layers) != 3 {
		t.Fatalf("expected a locale layer, got %+v", trace.Layers)
	}
	if winner, _ := trace.Winner(); winner.Source != LayerLocale || winner.Value != "Forum FR" {
		t.Fatalf("expected locale layer to win, got %+v", winner)
	}

	if err := e.Set(ctx, "title", "Custom"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	trace, _ = e.Trace("title")
	winner, ok := trace.Winner()
	if !ok || winner.Source != LayerOverride || winner.Value != "Custom" {
		t.Fatalf("expected override to win, got %+v", winner)
	}
	if trace.Value != "Custom" || trace.Locale != "fr" {
		t.Fatalf("unexpected trace header %+v", trace)
	}
}

func TestTraceDerivedAndUnknown(t *testing.T) {
	e := newTestEngine(t, newFakeProvider())
	mustRegister(t, e, Definition{Name: "a", Default: 2})
	if err := e.RegisterDerived("b", "", []string{"a"}, func(read Reader) (any, error) { return readInt(read, "a") + 1, nil }); err != nil {
		t.Fatalf("RegisterDerived: %v", err)
	}
	trace, err := e.Trace("b")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if len(trace.Layers) != 1 || trace.Layers[0].Source != LayerDerived || trace.Value != 3 {
		t.Fatalf("unexpected derived trace %+v", trace)
	}
	if _, err := e.Trace("missing"); err == nil {
		t.Fatalf("expected unknown setting error")
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeProvider())
	mustRegister(t, e, Definition{Name: "title", Default: "Forum"})
	if err := e.Set(ctx, "title", "Custom"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	trace, err := e.Trace("title")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("TraceFromJSON: %v", err)
	}
	if decoded.Setting != "title" || len(decoded.Layers) != len(trace.Layers) {
		t.Fatalf("unexpected decoded trace %+v", decoded)
	}
	if winner, _ := decoded.Winner(); winner.Source != LayerOverride || winner.Value != "Custom" {
		t.Fatalf("unexpected decoded winner %+v", winner)
	}
	if _, err := TraceFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}
