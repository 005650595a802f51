package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignments(active ...bool) []any {
	out := make([]any, 0, len(active))
	for i, a := range active {
		out = append(out, map[string]any{"moderator_id": string(rune('a'+i)), "active": a})
	}
	return out
}

func TestNewView_Empty(t *testing.T) {
	v := NewView(nil)
	assert.False(t, v.IsValid())
	assert.Equal(t, StatusActive, v.Status())
	assert.Equal(t, 0, v.PendingCount())
	assert.Equal(t, WorkloadNoModerators, v.WorkloadBalance())
	assert.False(t, v.HasActiveModerators())
	assert.False(t, v.NeedsAttention())
}

func TestView_ZeroModeratorScenario(t *testing.T) {
	v := NewView(map[string]any{
		"id":                   "q1",
		"name":                 "incoming",
		"moderatorAssignments": []any{},
	})
	require.True(t, v.IsValid())
	assert.Equal(t, WorkloadNoModerators, v.WorkloadBalance())
	assert.False(t, v.HasActiveModerators())
}

func TestView_ActiveModeratorCount(t *testing.T) {
	v := NewView(map[string]any{
		"id":                   "q1",
		"moderatorAssignments": assignments(true, false, true),
	})
	assert.Equal(t, 2, v.ActiveModeratorCount())
	assert.True(t, v.HasActiveModerators())

	t.Run("missing active flag counts as active", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "q1",
			"moderatorAssignments": []any{map[string]any{"moderator_id": "m1"}},
		})
		assert.Equal(t, 1, v.ActiveModeratorCount())
	})

	t.Run("malformed entries are skipped", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "q1",
			"moderatorAssignments": []any{"not-a-map", map[string]any{"moderator_id": "m1"}},
		})
		assert.Equal(t, 1, v.ActiveModeratorCount())
	})
}

func TestView_WorkloadBalance(t *testing.T) {
	cases := []struct {
		name       string
		pending    int
		moderators int
		want       string
	}{
		{"balanced light", 10, 2, WorkloadBalanced},
		{"strained", 40, 2, WorkloadStrained},
		{"overloaded", 120, 2, WorkloadOverloaded},
		{"exactly strained boundary", 20, 1, WorkloadStrained},
		{"exactly overloaded boundary", 50, 1, WorkloadOverloaded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			active := make([]bool, tc.moderators)
			for i := range active {
				active[i] = true
			}
			v := NewView(map[string]any{
				"id":                   "q1",
				"pendingCount":         tc.pending,
				"moderatorAssignments": assignments(active...),
			})
			assert.Equal(t, tc.want, v.WorkloadBalance())
		})
	}
}

func TestView_Rates(t *testing.T) {
	v := NewView(map[string]any{
		"id":            "q1",
		"approvedCount": 30,
		"rejectedCount": 10,
	})
	assert.Equal(t, 75.0, v.ApprovalRate())
	assert.Equal(t, 25.0, v.RejectionRate())

	fresh := NewView(map[string]any{"id": "q1"})
	assert.Equal(t, 0.0, fresh.ApprovalRate(), "no decisions should not divide by zero")
	assert.Equal(t, 0.0, fresh.RejectionRate())
}

func TestView_NeedsAttention(t *testing.T) {
	t.Run("backlogged", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "q1",
			"pendingCount":         150,
			"moderatorAssignments": assignments(true, true, true, true),
		})
		assert.True(t, v.IsBacklogged())
		assert.True(t, v.NeedsAttention())
	})

	t.Run("pending without moderators", func(t *testing.T) {
		v := NewView(map[string]any{"id": "q1", "pendingCount": 1})
		assert.True(t, v.NeedsAttention())
	})

	t.Run("calm queue", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "q1",
			"pendingCount":         5,
			"moderatorAssignments": assignments(true),
		})
		assert.False(t, v.NeedsAttention())
	})
}

func TestView_WorkloadScoreBounds(t *testing.T) {
	t.Run("all zero", func(t *testing.T) {
		v := NewView(map[string]any{"id": "q1"})
		score := v.WorkloadScore()
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	})

	t.Run("best case", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "q1",
			"pendingCount":         0,
			"approvedCount":        1000,
			"moderatorAssignments": assignments(true, true, true, true, true),
		})
		assert.Equal(t, 100.0, v.WorkloadScore())
	})

	t.Run("worst case", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":            "q1",
			"pendingCount":  100000,
			"rejectedCount": 500,
		})
		assert.Equal(t, 0.0, v.WorkloadScore())
	})

	t.Run("extreme inputs stay in range", func(t *testing.T) {
		v := NewView(map[string]any{
			"id":                   "q1",
			"pendingCount":         -50,
			"approvedCount":        1 << 30,
			"moderatorAssignments": assignments(true, true, true, true, true, true, true, true),
		})
		score := v.WorkloadScore()
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	})
}
