// Package communication implements the outbound communication business
// object: one digest email, SMS, push, or webhook delivery batch and its
// engagement counters.
package communication

import (
	"encoding/json"
	"time"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "communication"

// Delivery channels.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelPush    = "push"
	ChannelWebhook = "webhook"
)

// Communication statuses.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

// Engagement tiers assigned by EngagementLevel, driven by open rate.
const (
	EngagementExcellent = "excellent"
	EngagementGood      = "good"
	EngagementFair      = "fair"
	EngagementPoor      = "poor"
)

// Schema is the communication normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "channel", Kind: schema.KindString, Default: ChannelEmail},
	schema.Field{Name: "subject", Kind: schema.KindString},
	schema.Field{Name: "status", Kind: schema.KindString, Default: StatusDraft},
	schema.Field{Name: "recipient_count", Aliases: []string{"recipientCount"}, Kind: schema.KindInt},
	schema.Field{Name: "delivered_count", Aliases: []string{"deliveredCount"}, Kind: schema.KindInt},
	schema.Field{Name: "open_count", Aliases: []string{"openCount"}, Kind: schema.KindInt},
	schema.Field{Name: "click_count", Aliases: []string{"clickCount"}, Kind: schema.KindInt},
	schema.Field{Name: "scheduled_at", Aliases: []string{"scheduledAt"}, Kind: schema.KindTime},
	schema.Field{Name: "sent_at", Aliases: []string{"sentAt"}, Kind: schema.KindTime},
)

// View is the read-only derived view over a canonical communication record.
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

// Channel returns the delivery channel.
func (v View) Channel() string { return v.rec.String("channel") }

// Subject returns the message subject line.
func (v View) Subject() string { return v.rec.String("subject") }

// Status returns the delivery status.
func (v View) Status() string { return v.rec.String("status") }

// RecipientCount returns the addressed audience size.
func (v View) RecipientCount() int { return v.rec.Int("recipient_count") }

// DeliveredCount returns the confirmed delivery count.
func (v View) DeliveredCount() int { return v.rec.Int("delivered_count") }

// OpenCount returns the recorded open count.
func (v View) OpenCount() int { return v.rec.Int("open_count") }

// ClickCount returns the recorded click count.
func (v View) ClickCount() int { return v.rec.Int("click_count") }

// ScheduledAt returns the scheduled send time; false when not scheduled.
func (v View) ScheduledAt() (time.Time, bool) { return v.rec.Time("scheduled_at") }

// SentAt returns the actual send time; false when not sent.
func (v View) SentAt() (time.Time, bool) { return v.rec.Time("sent_at") }

// IsDraft reports an unsent, unscheduled message.
func (v View) IsDraft() bool { return v.Status() == StatusDraft }

// IsScheduled reports a message waiting for its send time.
func (v View) IsScheduled() bool { return v.Status() == StatusScheduled }

// IsSent reports a completed delivery.
func (v View) IsSent() bool { return v.Status() == StatusSent }

// IsFailed reports a failed delivery.
func (v View) IsFailed() bool { return v.Status() == StatusFailed }

// DeliveryRate returns delivered as a percentage of recipients, 0 when the
// audience is empty.
func (v View) DeliveryRate() float64 {
	return rate(v.DeliveredCount(), v.RecipientCount())
}

// OpenRate returns opens as a percentage of deliveries, 0 when nothing was
// delivered.
func (v View) OpenRate() float64 {
	return rate(v.OpenCount(), v.DeliveredCount())
}

// ClickRate returns clicks as a percentage of opens, 0 when nothing was
// opened.
func (v View) ClickRate() float64 {
	return rate(v.ClickCount(), v.OpenCount())
}

// EngagementLevel buckets the open rate. Thresholds, highest first:
// 50 excellent, 25 good, 10 fair.
func (v View) EngagementLevel() string {
	open := v.OpenRate()
	switch {
	case open >= 50:
		return EngagementExcellent
	case open >= 25:
		return EngagementGood
	case open >= 10:
		return EngagementFair
	default:
		return EngagementPoor
	}
}

// IsOverdue reports a scheduled message whose send time has passed.
func (v View) IsOverdue() bool {
	scheduled, ok := v.ScheduledAt()
	if !ok {
		return false
	}
	return v.IsScheduled() && time.Now().After(scheduled)
}

// Canonical returns a copy of the underlying canonical record.
func (v View) Canonical() schema.Record { return v.rec.Clone() }

// MarshalJSON serializes exactly the canonical field set.
func (v View) MarshalJSON() ([]byte, error) { return json.Marshal(v.rec) }

func rate(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Store is the communication store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the communication store. New messages start as drafts.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity:         Entity,
		Schema:         Schema,
		CreateDefaults: schema.Record{"status": StatusDraft},
		Wrap:           wrap,
	}, deps)}
}
