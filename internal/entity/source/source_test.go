package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewView_Empty(t *testing.T) {
	v := NewView(nil)
	assert.False(t, v.IsValid())
	assert.Equal(t, StatusActive, v.Status())
	assert.Equal(t, KindRSS, v.Kind())
	assert.Equal(t, HealthUnknown, v.HealthStatus())
	assert.False(t, v.IsHealthy())
	assert.False(t, v.IsStale())
	assert.Equal(t, 0.0, v.IngestVelocity())
}

func TestView_HealthScenario(t *testing.T) {
	v := NewView(map[string]any{
		"id":          "s1",
		"successRate": 95,
		"errorCount":  2,
		"fetchCount":  10,
	})
	require.True(t, v.IsValid())
	assert.True(t, v.IsHealthy())
	assert.Equal(t, HealthHealthy, v.HealthStatus())
}

func TestView_HealthStatus(t *testing.T) {
	cases := []struct {
		name        string
		successRate float64
		errorCount  int
		fetchCount  int
		want        string
	}{
		{"never fetched", 0, 0, 0, HealthUnknown},
		{"healthy", 95, 2, 5, HealthHealthy},
		{"too many errors", 95, 10, 5, HealthDegraded},
		{"degraded rate", 80, 0, 5, HealthDegraded},
		{"failing", 30, 20, 5, HealthFailing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewView(map[string]any{
				"id":          "s1",
				"successRate": tc.successRate,
				"errorCount":  tc.errorCount,
				"fetchCount":  tc.fetchCount,
			})
			assert.Equal(t, tc.want, v.HealthStatus())
		})
	}
}

func TestView_Staleness(t *testing.T) {
	t.Run("fresh", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "s1",
			"lastFetchAt":          time.Now().Add(-30 * time.Minute),
			"fetchIntervalMinutes": 60,
		})
		assert.False(t, v.IsStale())
	})

	t.Run("stale", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "s1",
			"lastFetchAt":          time.Now().Add(-3 * time.Hour),
			"fetchIntervalMinutes": 60,
		})
		assert.True(t, v.IsStale())
	})

	t.Run("never fetched is not stale", func(t *testing.T) {
		v := NewView(map[string]any{"id": "s1", "fetchIntervalMinutes": 60})
		assert.False(t, v.IsStale())
	})
}

func TestView_IngestVelocity(t *testing.T) {
	v := NewView(map[string]any{"id": "s1", "itemsIngested": 120, "fetchCount": 40})
	assert.Equal(t, 3.0, v.IngestVelocity())
}

func TestView_NeedsReauth(t *testing.T) {
	api := NewView(map[string]any{"id": "s1", "kind": KindAPI, "authExpired": true})
	assert.True(t, api.NeedsReauth())

	rss := NewView(map[string]any{"id": "s1", "kind": KindRSS, "authExpired": true})
	assert.False(t, rss.NeedsReauth(), "rss sources carry no credentials")
}

func TestView_DualSpellingRoundTrip(t *testing.T) {
	camel := NewView(map[string]any{"id": "s1", "successRate": 88.5, "errorCount": 1})
	snake := NewView(map[string]any{"id": "s1", "success_rate": 88.5, "error_count": 1})
	assert.Equal(t, camel.Canonical(), snake.Canonical())

	data, err := camel.MarshalJSON()
	require.NoError(t, err)
	rec, ok := Schema.NormalizeJSON(data)
	require.True(t, ok)
	assert.Equal(t, camel.Canonical(), rec)
}
