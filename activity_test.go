package settings

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-settings/pkg/activity"
)

func TestActivityEventsForWrites(t *testing.T) {
	capture := &activity.CaptureHook{}
	e := newTestEngine(t, newFakeProvider(), WithActivityHooks(activity.Hooks{capture}), WithActivityChannel("admin"))
	mustRegister(t, e,
		Definition{Name: "title", Category: "required", Default: "Forum", LocaleDefault: map[string]any{"fr": "Forum FR"}},
	)
	ctx := ContextWithActor(context.Background(), "user-42")

	if err := e.Set(ctx, "title", "Custom"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e.Set(ctx, "title", "Custom"); err != nil {
		t.Fatalf("Set again: %v", err)
	}
	if err := e.ResetToDefault(ctx, "title"); err != nil {
		t.Fatalf("ResetToDefault: %v", err)
	}
	if err := e.SetSiteLocale(ctx, "fr"); err != nil {
		t.Fatalf("SetSiteLocale: %v", err)
	}

	want := []string{activity.VerbSettingChanged, activity.VerbSettingReset, activity.VerbLocaleChanged}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected verbs %v, got %v", want, got)
	}

	changed := capture.Events[0]
	if changed.ActorID != "user-42" || changed.ObjectID != "title" || changed.ObjectType != activity.ObjectTypeSetting {
		t.Fatalf("unexpected changed event %+v", changed)
	}
	if changed.Channel != "admin" {
		t.Fatalf("expected channel admin, got %q", changed.Channel)
	}
	if changed.Metadata["old_value"] != "Forum" || changed.Metadata["new_value"] != "Custom" || changed.Metadata["category"] != "required" {
		t.Fatalf("unexpected metadata %v", changed.Metadata)
	}

	locale := capture.Events[2]
	if locale.ObjectType != activity.ObjectTypeSite || locale.ObjectID != "default" || locale.Metadata["new_value"] != "fr" {
		t.Fatalf("unexpected locale event %+v", locale)
	}
}

func TestActivityHookFailureDoesNotFailWrite(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	e := newTestEngine(t, newFakeProvider(), WithActivityHooks(activity.Hooks{capture}))
	mustRegister(t, e, Definition{Name: "title", Default: "Forum"})

	if err := e.Set(context.Background(), "title", "Custom"); err != nil {
		t.Fatalf("expected hook failure to be logged only, got %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected hook to be called once, got %d", len(capture.Events))
	}
}

func TestActivityHooksAreCloned(t *testing.T) {
	capture := &activity.CaptureHook{}
	hooks := activity.Hooks{capture, nil}
	e := newTestEngine(t, newFakeProvider(), WithActivityHooks(hooks))
	hooks[0] = nil

	got := e.ActivityHooks()
	if len(got) != 1 || got[0] != capture {
		t.Fatalf("expected engine to keep its own copy of the hooks, got %v", got)
	}
}

func TestNoActivityWithoutHooks(t *testing.T) {
	e := newTestEngine(t, newFakeProvider())
	mustRegister(t, e, Definition{Name: "title", Default: "Forum"})
	if err := e.Set(context.Background(), "title", "Custom"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(e.ActivityHooks()) != 0 {
		t.Fatalf("expected no hooks")
	}
	if ActorFromContext(context.Background()) != "" {
		t.Fatalf("expected empty actor")
	}
}
