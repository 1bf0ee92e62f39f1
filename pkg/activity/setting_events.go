package activity

import (
	"strings"
	"time"
)

const (
	// VerbSettingChanged is emitted after an override was written.
	VerbSettingChanged = "settings.changed"
	// VerbSettingReset is emitted after an override was removed.
	VerbSettingReset = "settings.reset"
	// VerbSettingPersisted is emitted by durable storage after a row write.
	VerbSettingPersisted = "settings.persisted"
	// VerbLocaleChanged is emitted when the active site locale changes and
	// every process should refresh.
	VerbLocaleChanged = "settings.locale.changed"

	// ObjectTypeSetting identifies events about a single setting.
	ObjectTypeSetting = "site_setting"
	// ObjectTypeSite identifies events about a whole configuration scope.
	ObjectTypeSite = "site"
)

// SettingEventInput describes the fields shared by setting lifecycle events.
type SettingEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Site       string
	Setting    string
	Category   string
	DataType   string
	Channel    string
	Metadata   map[string]any
	OldValue   any
	NewValue   any
	OccurredAt time.Time
}

// BuildSettingChangedEvent constructs the event emitted after a write.
func BuildSettingChangedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingChanged, ObjectTypeSetting, input)
}

// BuildSettingResetEvent constructs the event emitted after a reset to default.
func BuildSettingResetEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingReset, ObjectTypeSetting, input)
}

// BuildSettingPersistedEvent constructs the storage-level change notification.
func BuildSettingPersistedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingPersisted, ObjectTypeSetting, input)
}

// BuildLocaleChangedEvent constructs the refresh request emitted when the site
// locale changes.
func BuildLocaleChangedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbLocaleChanged, ObjectTypeSite, input)
}

func buildSettingEvent(verb, objectType string, input SettingEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if name := strings.TrimSpace(input.Setting); name != "" {
		metadata = ensureMetadata(metadata)
		metadata["setting"] = name
	}
	if site := strings.TrimSpace(input.Site); site != "" {
		metadata = ensureMetadata(metadata)
		metadata["site"] = site
	}
	if input.Category != "" {
		metadata = ensureMetadata(metadata)
		metadata["category"] = input.Category
	}
	if input.DataType != "" {
		metadata = ensureMetadata(metadata)
		metadata["data_type"] = input.DataType
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	objectID := strings.TrimSpace(input.Setting)
	if objectType == ObjectTypeSite || objectID == "" {
		objectID = strings.TrimSpace(input.Site)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
