// Package device implements the device sync business object: one registered
// client device per record, tracking its sync freshness and push capability.
package device

import (
	"encoding/json"
	"time"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "device"

// Device platforms.
const (
	PlatformWeb     = "web"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Sync freshness tiers assigned by SyncStatus.
const (
	SyncCurrent = "current"
	SyncRecent  = "recent"
	SyncStale   = "stale"
	SyncDormant = "dormant"
	SyncNever   = "never"
)

// Freshness windows, checked newest first.
const (
	currentWindow = time.Hour
	recentWindow  = 24 * time.Hour
	staleWindow   = 7 * 24 * time.Hour
)

// Schema is the device normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "user_id", Aliases: []string{"userId"}, Kind: schema.KindString},
	schema.Field{Name: "platform", Kind: schema.KindString, Default: PlatformWeb},
	schema.Field{Name: "device_name", Aliases: []string{"deviceName"}, Kind: schema.KindString},
	schema.Field{Name: "push_token", Aliases: []string{"pushToken"}, Kind: schema.KindString},
	schema.Field{Name: "sync_enabled", Aliases: []string{"syncEnabled"}, Kind: schema.KindBool, Default: true},
	schema.Field{Name: "last_sync_at", Aliases: []string{"lastSyncAt"}, Kind: schema.KindTime},
	schema.Field{Name: "pending_changes", Aliases: []string{"pendingChanges"}, Kind: schema.KindInt},
	schema.Field{Name: "app_version", Aliases: []string{"appVersion"}, Kind: schema.KindString},
)

// View is the read-only derived view over a canonical device record.
type View struct {
	rec     schema.Record
	present bool
}

// NewView normalizes raw input and wraps it.
func NewView(raw map[string]any) View {
	rec, ok := Schema.Normalize(raw)
	if !ok {
		return View{rec: Schema.Defaults()}
	}
	return View{rec: rec, present: true}
}

func wrap(rec schema.Record, present bool) View {
	return View{rec: rec, present: present}
}

// IsValid reports whether the view wraps a real record.
func (v View) IsValid() bool { return v.present }

// ID returns the record identity.
func (v View) ID() string { return v.rec.ID() }

// UserID returns the owning user.
func (v View) UserID() string { return v.rec.String("user_id") }

// Platform returns the device platform.
func (v View) Platform() string { return v.rec.String("platform") }

// DeviceName returns the user-visible device label.
func (v View) DeviceName() string { return v.rec.String("device_name") }

// PushToken returns the registered push token, empty when absent.
func (v View) PushToken() string { return v.rec.String("push_token") }

// SyncEnabled reports whether the device participates in sync.
func (v View) SyncEnabled() bool { return v.rec.Bool("sync_enabled") }

// PendingChanges returns the count of changes waiting to sync.
func (v View) PendingChanges() int { return v.rec.Int("pending_changes") }

// AppVersion returns the client app version string.
func (v View) AppVersion() string { return v.rec.String("app_version") }

// LastSyncAt returns the last successful sync time; false when the device
// has never synced.
func (v View) LastSyncAt() (time.Time, bool) { return v.rec.Time("last_sync_at") }

// HasPushToken reports a registered push token.
func (v View) HasPushToken() bool { return v.PushToken() != "" }

// CanReceivePush reports a sync-enabled device with a push token.
func (v View) CanReceivePush() bool { return v.SyncEnabled() && v.HasPushToken() }

// SyncStatus buckets sync freshness: current within the hour, recent within
// a day, stale within a week, dormant beyond that, never when no sync is
// recorded.
func (v View) SyncStatus() string {
	last, ok := v.LastSyncAt()
	if !ok {
		return SyncNever
	}
	age := time.Since(last)
	switch {
	case age < currentWindow:
		return SyncCurrent
	case age < recentWindow:
		return SyncRecent
	case age < staleWindow:
		return SyncStale
	default:
		return SyncDormant
	}
}

// IsSyncStale reports a sync-enabled device that has not synced within a
// day.
func (v View) IsSyncStale() bool {
	if !v.SyncEnabled() {
		return false
	}
	last, ok := v.LastSyncAt()
	if !ok {
		return false
	}
	return time.Since(last) >= recentWindow
}

// NeedsAttention reports a device with a sync backlog or a stale sync.
func (v View) NeedsAttention() bool {
	return v.IsSyncStale() || (v.SyncEnabled() && v.PendingChanges() > 100)
}

// Canonical returns a copy of the underlying canonical record.
func (v View) Canonical() schema.Record { return v.rec.Clone() }

// MarshalJSON serializes exactly the canonical field set.
func (v View) MarshalJSON() ([]byte, error) { return json.Marshal(v.rec) }

// Store is the device store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the device store.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity: Entity,
		Schema: Schema,
		Wrap:   wrap,
	}, deps)}
}
