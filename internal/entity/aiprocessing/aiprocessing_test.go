package aiprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/identity"
)

func TestNewView_EmptyInputs(t *testing.T) {
	for _, raw := range []map[string]any{nil, {}} {
		v := NewView(raw)
		assert.False(t, v.IsValid())
		assert.Equal(t, StatusQueued, v.Status(), "empty view status should default to queued")
		assert.False(t, v.IsCompleted())
		assert.True(t, v.IsQueued())
		assert.False(t, v.HasError())
		assert.Equal(t, 0, v.TokensUsed())
		assert.Equal(t, 0.0, v.AgeSeconds())
		assert.False(t, v.IsStale())
	}
}

func TestView_DualSpelling(t *testing.T) {
	snake := NewView(map[string]any{"id": "r1", "content_id": "c1", "tokens_used": 120})
	camel := NewView(map[string]any{"id": "r1", "contentId": "c1", "tokensUsed": 120})

	assert.Equal(t, snake.Canonical(), camel.Canonical())
	assert.Equal(t, "c1", camel.ContentID())
	assert.Equal(t, 120, camel.TokensUsed())
}

func TestView_StatusChecks(t *testing.T) {
	cases := []struct {
		status     string
		queued     bool
		processing bool
		completed  bool
		failed     bool
	}{
		{StatusQueued, true, false, false, false},
		{StatusProcessing, false, true, false, false},
		{StatusCompleted, false, false, true, false},
		{StatusFailed, false, false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			v := NewView(map[string]any{"id": "r1", "status": tc.status})
			assert.Equal(t, tc.queued, v.IsQueued())
			assert.Equal(t, tc.processing, v.IsProcessing())
			assert.Equal(t, tc.completed, v.IsCompleted())
			assert.Equal(t, tc.failed, v.IsFailed())
		})
	}
}

func TestView_ConfidenceLevel(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{95, ConfidenceVeryHigh},
		{90, ConfidenceVeryHigh},
		{89.9, ConfidenceHigh},
		{75, ConfidenceHigh},
		{60, ConfidenceMedium},
		{40, ConfidenceLow},
		{39.9, ConfidenceVeryLow},
		{0, ConfidenceVeryLow},
	}
	for _, tc := range cases {
		v := NewView(map[string]any{"id": "r1", "confidence": tc.confidence})
		assert.Equal(t, tc.want, v.ConfidenceLevel(), "confidence %v", tc.confidence)
	}
}

func TestView_ConfidenceLadderMonotonic(t *testing.T) {
	rank := map[string]int{
		ConfidenceVeryLow:  0,
		ConfidenceLow:      1,
		ConfidenceMedium:   2,
		ConfidenceHigh:     3,
		ConfidenceVeryHigh: 4,
	}
	prev := -1
	for c := 0.0; c <= 100; c += 0.5 {
		v := NewView(map[string]any{"id": "r1", "confidence": c})
		got := rank[v.ConfidenceLevel()]
		require.GreaterOrEqual(t, got, prev, "confidence tier regressed at %v", c)
		prev = got
	}
}

func TestView_Throughput(t *testing.T) {
	v := NewView(map[string]any{"id": "r1", "tokensUsed": 500, "processingTimeMs": 2000})
	assert.Equal(t, 250.0, v.TokensPerSecond())

	idle := NewView(map[string]any{"id": "r1", "tokensUsed": 500})
	assert.Equal(t, 0.0, idle.TokensPerSecond(), "zero processing time should not divide")
}

func TestView_Staleness(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour)

	stale := NewView(map[string]any{"id": "r1", "status": StatusQueued, "createdAt": old})
	assert.True(t, stale.IsStale())
	assert.Greater(t, stale.AgeSeconds(), 7000.0)

	done := NewView(map[string]any{"id": "r1", "status": StatusCompleted, "createdAt": old})
	assert.False(t, done.IsStale(), "completed results are never stale")
}

func TestView_RoundTrip(t *testing.T) {
	v := NewView(map[string]any{
		"id":         "r1",
		"contentId":  "c1",
		"taskType":   "summarization",
		"status":     StatusCompleted,
		"confidence": 82.5,
		"result":     map[string]any{"summary": "short"},
	})

	data, err := v.MarshalJSON()
	require.NoError(t, err)

	rec, ok := Schema.NormalizeJSON(data)
	require.True(t, ok)
	again := wrap(rec, true)

	assert.Equal(t, v.ContentID(), again.ContentID())
	assert.Equal(t, v.Status(), again.Status())
	assert.Equal(t, v.Confidence(), again.Confidence())
	assert.Equal(t, v.ConfidenceLevel(), again.ConfidenceLevel())
	assert.Equal(t, v.Canonical(), again.Canonical())
}

func TestStore_CreateScenario(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		store := NewStore(bostore.Deps{Identity: identity.StaticProvider{}})
		_, err := store.Create(context.Background(), map[string]any{
			"contentId": "c1",
			"taskType":  "summarization",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, bostore.ErrUnauthenticated)
	})

	t.Run("authenticated", func(t *testing.T) {
		store := NewStore(bostore.Deps{
			Identity: identity.StaticProvider{User: &identity.Identity{ID: "u1"}},
		})
		view, err := store.Create(context.Background(), map[string]any{
			"contentId": "c1",
			"taskType":  "summarization",
		})
		require.NoError(t, err)

		assert.Equal(t, StatusQueued, view.Status())
		assert.True(t, view.IsQueued())
		assert.True(t, view.IsValid())
		assert.Equal(t, "c1", view.ContentID())
		assert.Equal(t, "summarization", view.TaskType())
	})
}
