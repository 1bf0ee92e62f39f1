package state

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/activity"
)

// Change describes one persisted write or delete.
type Change struct {
	Site     string
	Name     string
	Value    string
	DataType settings.DataType
	Deleted  bool
}

// Ref returns the site and name of the change.
func (c Change) Ref() Ref {
	return Ref{Site: c.Site, Name: c.Name}
}

// Notifier observes changes after they were persisted.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, change Change) error

// Notify implements Notifier.
func (fn NotifierFunc) Notify(ctx context.Context, change Change) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, change)
}

// Notifiers fans a change out to every notifier, collecting failures.
type Notifiers []Notifier

// Notify implements Notifier.
func (n Notifiers) Notify(ctx context.Context, change Change) error {
	var result *multierror.Error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, change); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

type activityNotifier struct {
	emitter *activity.Emitter
}

// ActivityNotifier emits a settings.persisted activity event per change. The
// actor comes from settings.ContextWithActor.
func ActivityNotifier(emitter *activity.Emitter) Notifier {
	return activityNotifier{emitter: emitter}
}

func (n activityNotifier) Notify(ctx context.Context, change Change) error {
	if !n.emitter.Enabled() {
		return nil
	}
	metadata := map[string]any{"change_id": uuid.NewString()}
	if change.Deleted {
		metadata["deleted"] = true
	}
	input := activity.SettingEventInput{
		ActorID:  settings.ActorFromContext(ctx),
		Site:     change.Site,
		Setting:  change.Name,
		Metadata: metadata,
	}
	if !change.Deleted {
		input.DataType = change.DataType.String()
		input.NewValue = change.Value
	}
	return n.emitter.Emit(ctx, activity.BuildSettingPersistedEvent(input))
}
