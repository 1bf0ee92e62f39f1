package settings

import (
	"reflect"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
)

func TestHiddenRegistryModifiers(t *testing.T) {
	h := NewHiddenRegistry()
	h.Add("b", "a")
	h.RegisterModifier(func(hidden mapset.Set[string]) mapset.Set[string] {
		hidden.Add("c")
		return hidden
	})
	h.RegisterModifier(func(hidden mapset.Set[string]) mapset.Set[string] {
		hidden.Remove("a")
		return hidden
	})
	h.RegisterModifier(func(mapset.Set[string]) mapset.Set[string] { return nil })
	h.RegisterModifier(nil)

	if got := h.List(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("unexpected hidden list %v", got)
	}
	if h.Contains("a") || !h.Contains("c") {
		t.Fatalf("unexpected Contains results")
	}

	h.Remove("b")
	if got := h.List(); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("unexpected hidden list after remove %v", got)
	}
}

func TestHiddenModifierAppliesToListings(t *testing.T) {
	h := NewHiddenRegistry()
	e := newTestEngine(t, newFakeProvider(), WithHiddenRegistry(h))
	mustRegister(t, e,
		Definition{Name: "title", Default: "Forum"},
		Definition{Name: "tagline", Default: "Welcome"},
	)
	h.RegisterModifier(func(hidden mapset.Set[string]) mapset.Set[string] {
		hidden.Add("tagline")
		return hidden
	})

	visible := e.AllSettings(false)
	if len(visible) != 1 || visible[0].Name != "title" {
		t.Fatalf("expected tagline hidden, got %+v", visible)
	}
	if all := e.AllSettings(true); len(all) != 2 || !all[1].Hidden {
		t.Fatalf("expected hidden flag in full listing, got %+v", all)
	}
	if v, err := e.GetString("tagline"); err != nil || v != "Welcome" {
		t.Fatalf("hidden settings stay readable, got %q err=%v", v, err)
	}
}
