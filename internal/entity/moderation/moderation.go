// Package moderation implements the moderation queue business object: a
// named queue of content items awaiting review, with moderator assignments
// and workload scoring.
package moderation

import (
	"encoding/json"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "moderation_queue"

// Queue statuses.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Workload balance tiers assigned by WorkloadBalance.
const (
	WorkloadNoModerators = "no-moderators"
	WorkloadBalanced     = "balanced"
	WorkloadStrained     = "strained"
	WorkloadOverloaded   = "overloaded"
)

// Pending-per-moderator thresholds for WorkloadBalance, highest first.
const (
	overloadedPerModerator = 50
	strainedPerModerator   = 20
)

// backloggedPending flags IsBacklogged.
const backloggedPending = 100

// Schema is the moderation queue normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "name", Kind: schema.KindString},
	schema.Field{Name: "status", Kind: schema.KindString, Default: StatusActive},
	schema.Field{Name: "pending_count", Aliases: []string{"pendingCount"}, Kind: schema.KindInt},
	schema.Field{Name: "approved_count", Aliases: []string{"approvedCount"}, Kind: schema.KindInt},
	schema.Field{Name: "rejected_count", Aliases: []string{"rejectedCount"}, Kind: schema.KindInt},
	schema.Field{Name: "moderator_assignments", Aliases: []string{"moderatorAssignments"}, Kind: schema.KindSlice},
	schema.Field{Name: "auto_approve_threshold", Aliases: []string{"autoApproveThreshold"}, Kind: schema.KindFloat},
	schema.Field{Name: "priority", Kind: schema.KindInt},
)

// View is the read-only derived view over a canonical queue record.
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

// Name returns the queue name.
func (v View) Name() string { return v.rec.String("name") }

// Status returns the queue status.
func (v View) Status() string { return v.rec.String("status") }

// IsActive reports whether the queue accepts new items.
func (v View) IsActive() bool { return v.Status() == StatusActive }

// PendingCount returns the number of items awaiting review.
func (v View) PendingCount() int { return v.rec.Int("pending_count") }

// ApprovedCount returns the number of approved items.
func (v View) ApprovedCount() int { return v.rec.Int("approved_count") }

// RejectedCount returns the number of rejected items.
func (v View) RejectedCount() int { return v.rec.Int("rejected_count") }

// Priority returns the queue priority (higher reviews first).
func (v View) Priority() int { return v.rec.Int("priority") }

// AutoApproveThreshold returns the confidence above which items skip review.
func (v View) AutoApproveThreshold() float64 { return v.rec.Float("auto_approve_threshold") }

// ModeratorAssignments returns the raw assignment entries, each a map with
// at least a moderator id and an active flag.
func (v View) ModeratorAssignments() []any { return v.rec.Slice("moderator_assignments") }

// ActiveModeratorCount counts assignments whose active flag is set (an
// assignment without the flag counts as active).
func (v View) ActiveModeratorCount() int {
	count := 0
	for _, entry := range v.ModeratorAssignments() {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if active, ok := m["active"].(bool); ok && !active {
			continue
		}
		count++
	}
	return count
}

// HasActiveModerators reports whether anyone is reviewing this queue.
func (v View) HasActiveModerators() bool { return v.ActiveModeratorCount() > 0 }

// WorkloadBalance buckets pending items per active moderator. A queue with
// zero assignments reports "no-moderators"; thresholds, highest first:
// 50 per moderator overloaded, 20 strained, else balanced.
func (v View) WorkloadBalance() string {
	moderators := v.ActiveModeratorCount()
	if moderators == 0 {
		return WorkloadNoModerators
	}
	perModerator := float64(v.PendingCount()) / float64(moderators)
	switch {
	case perModerator >= overloadedPerModerator:
		return WorkloadOverloaded
	case perModerator >= strainedPerModerator:
		return WorkloadStrained
	default:
		return WorkloadBalanced
	}
}

// ReviewedCount returns the total items already decided.
func (v View) ReviewedCount() int { return v.ApprovedCount() + v.RejectedCount() }

// ApprovalRate returns approved items as a percentage of decided items,
// 0 when nothing has been decided.
func (v View) ApprovalRate() float64 {
	total := v.ReviewedCount()
	if total == 0 {
		return 0
	}
	return float64(v.ApprovedCount()) / float64(total) * 100
}

// RejectionRate returns rejected items as a percentage of decided items.
func (v View) RejectionRate() float64 {
	total := v.ReviewedCount()
	if total == 0 {
		return 0
	}
	return float64(v.RejectedCount()) / float64(total) * 100
}

// IsBacklogged reports a pending pile past the backlog threshold.
func (v View) IsBacklogged() bool { return v.PendingCount() >= backloggedPending }

// NeedsAttention reports a queue that is backlogged, unstaffed while items
// wait, or overloaded.
func (v View) NeedsAttention() bool {
	if v.IsBacklogged() {
		return true
	}
	if v.PendingCount() > 0 && !v.HasActiveModerators() {
		return true
	}
	return v.WorkloadBalance() == WorkloadOverloaded
}

// WorkloadScore is a composite 0-100 score of queue health: pending volume
// up to 40 points (fewer pending, more points), moderator coverage up to 30,
// and approval throughput up to 30. Each component is clamped to its budget
// before summing; the sum is clamped to [0, 100].
func (v View) WorkloadScore() float64 {
	// Pending volume: full points at zero pending, none at the backlog
	// threshold.
	pendingScore := 40 * (1 - float64(v.PendingCount())/backloggedPending)
	pendingScore = clamp(pendingScore, 0, 40)

	// Coverage: 10 points per active moderator.
	coverageScore := clamp(float64(v.ActiveModeratorCount())*10, 0, 30)

	// Throughput: scaled approval rate.
	throughputScore := clamp(v.ApprovalRate()*0.3, 0, 30)

	return clamp(pendingScore+coverageScore+throughputScore, 0, 100)
}

// Canonical returns a copy of the underlying canonical record.
func (v View) Canonical() schema.Record { return v.rec.Clone() }

// MarshalJSON serializes exactly the canonical field set.
func (v View) MarshalJSON() ([]byte, error) { return json.Marshal(v.rec) }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Store is the moderation queue store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the moderation queue store. New queues start active.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity:         Entity,
		Schema:         Schema,
		CreateDefaults: schema.Record{"status": StatusActive},
		Wrap:           wrap,
	}, deps)}
}
