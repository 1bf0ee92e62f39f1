package layering

import (
	"reflect"
	"testing"
)

func TestMergeLayersLocaleOverBase(t *testing.T) {
	base := map[string]any{"title": "Forum", "min_post_length": 20, "tags": []string{"a"}}
	fr := map[string]any{"title": "Forum FR", "tags": nil}

	got := MergeLayers(fr, base)

	want := map[string]any{"title": "Forum FR", "min_post_length": 20, "tags": []string{"a"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestMergeLayersDoesNotAliasInputs(t *testing.T) {
	base := map[string]any{"tags": []string{"a", "b"}}
	got := MergeLayers(map[string]any(nil), base)

	got["tags"].([]string)[0] = "changed"
	if base["tags"].([]string)[0] != "a" {
		t.Fatalf("expected base slice untouched, got %v", base["tags"])
	}
}

func TestMergeLayersNested(t *testing.T) {
	strong := map[string]map[string]int{"limits": {"posts": 5}}
	weak := map[string]map[string]int{"limits": {"posts": 1, "topics": 2}, "other": {"x": 1}}

	got := MergeLayers(strong, weak)

	want := map[string]map[string]int{"limits": {"posts": 5, "topics": 2}, "other": {"x": 1}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestMergeLayersPointers(t *testing.T) {
	one, two := 1, 2
	if got := MergeLayers[*int](nil, &two); got == nil || *got != 2 || got == &two {
		t.Fatalf("expected cloned weak pointer, got %v", got)
	}
	if got := MergeLayers(&one, &two); *got != 1 {
		t.Fatalf("expected strong pointer value, got %d", *got)
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	if got := MergeLayers[map[string]any](); got != nil {
		t.Fatalf("expected nil map, got %#v", got)
	}
}

func TestCloneDeepCopies(t *testing.T) {
	src := map[string]any{"list": []string{"x"}, "n": 1}
	dst := Clone(src)
	dst["list"].([]string)[0] = "y"
	dst["n"] = 2
	if src["list"].([]string)[0] != "x" || src["n"] != 1 {
		t.Fatalf("expected source untouched, got %#v", src)
	}
}

func TestLookupSkipsNilEntries(t *testing.T) {
	fr := map[string]any{"title": nil}
	base := map[string]any{"title": "Forum"}

	got, ok := Lookup("title", fr, base)
	if !ok || got != "Forum" {
		t.Fatalf("expected base fallback, got %v %v", got, ok)
	}
	if _, ok := Lookup("missing", fr, base); ok {
		t.Fatalf("expected missing key to report false")
	}
}
