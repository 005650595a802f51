package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewView_Empty(t *testing.T) {
	v := NewView(nil)
	assert.False(t, v.IsValid())
	assert.Equal(t, PlatformWeb, v.Platform())
	assert.True(t, v.SyncEnabled(), "sync defaults on")
	assert.Equal(t, SyncNever, v.SyncStatus())
	assert.False(t, v.HasPushToken())
	assert.False(t, v.IsSyncStale())
	assert.False(t, v.NeedsAttention())
}

func TestView_SyncStatus(t *testing.T) {
	cases := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"just synced", 10 * time.Minute, SyncCurrent},
		{"this morning", 6 * time.Hour, SyncRecent},
		{"this week", 3 * 24 * time.Hour, SyncStale},
		{"last month", 30 * 24 * time.Hour, SyncDormant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewView(map[string]any{
				"id":         "d1",
				"lastSyncAt": time.Now().Add(-tc.age),
			})
			assert.Equal(t, tc.want, v.SyncStatus())
		})
	}
}

func TestView_IsSyncStale(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)

	t.Run("stale", func(t *testing.T) {
		v := NewView(map[string]any{"id": "d1", "lastSyncAt": old})
		assert.True(t, v.IsSyncStale())
	})

	t.Run("sync disabled never stale", func(t *testing.T) {
		v := NewView(map[string]any{"id": "d1", "lastSyncAt": old, "syncEnabled": false})
		assert.False(t, v.IsSyncStale())
	})

	t.Run("never synced is not stale", func(t *testing.T) {
		v := NewView(map[string]any{"id": "d1"})
		assert.False(t, v.IsSyncStale())
	})
}

func TestView_Push(t *testing.T) {
	v := NewView(map[string]any{"id": "d1", "pushToken": "tok-1"})
	assert.True(t, v.HasPushToken())
	assert.True(t, v.CanReceivePush())

	disabled := NewView(map[string]any{"id": "d1", "pushToken": "tok-1", "syncEnabled": false})
	assert.False(t, disabled.CanReceivePush())
}

func TestView_NeedsAttention(t *testing.T) {
	backlog := NewView(map[string]any{
		"id":             "d1",
		"lastSyncAt":     time.Now().Add(-5 * time.Minute),
		"pendingChanges": 500,
	})
	assert.True(t, backlog.NeedsAttention())

	calm := NewView(map[string]any{
		"id":             "d1",
		"lastSyncAt":     time.Now().Add(-5 * time.Minute),
		"pendingChanges": 3,
	})
	assert.False(t, calm.NeedsAttention())
}

func TestView_DualSpelling(t *testing.T) {
	camel := NewView(map[string]any{"id": "d1", "deviceName": "Pixel", "appVersion": "2.1"})
	snake := NewView(map[string]any{"id": "d1", "device_name": "Pixel", "app_version": "2.1"})
	assert.Equal(t, camel.Canonical(), snake.Canonical())
}
