// Package aiprocessing implements the AI processing result business object:
// one record per content item submitted to an AI provider for summarization,
// tagging, or scoring.
package aiprocessing

import (
	"encoding/json"
	"time"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "ai_result"

// Processing statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Confidence tiers assigned by ConfidenceLevel.
const (
	ConfidenceVeryHigh = "very-high"
	ConfidenceHigh     = "high"
	ConfidenceMedium   = "medium"
	ConfidenceLow      = "low"
	ConfidenceVeryLow  = "very-low"
)

// staleAfter is how long a result may sit queued before IsStale flags it.
const staleAfter = time.Hour

// Schema is the AI result normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "content_id", Aliases: []string{"contentId"}, Kind: schema.KindString},
	schema.Field{Name: "task_type", Aliases: []string{"taskType"}, Kind: schema.KindString},
	schema.Field{Name: "status", Kind: schema.KindString, Default: StatusQueued},
	schema.Field{Name: "provider", Kind: schema.KindString},
	schema.Field{Name: "model", Kind: schema.KindString},
	schema.Field{Name: "confidence", Kind: schema.KindFloat},
	schema.Field{Name: "tokens_used", Aliases: []string{"tokensUsed"}, Kind: schema.KindInt},
	schema.Field{Name: "processing_time_ms", Aliases: []string{"processingTimeMs"}, Kind: schema.KindInt},
	schema.Field{Name: "result", Kind: schema.KindMap},
	schema.Field{Name: "error_message", Aliases: []string{"errorMessage"}, Kind: schema.KindString},
	schema.Field{Name: "retry_count", Aliases: []string{"retryCount"}, Kind: schema.KindInt},
	schema.Field{Name: "wordpress_synced", Aliases: []string{"wordpressSynced"}, Kind: schema.KindBool},
)

// View is the read-only derived view over a canonical AI result record.
type View struct {
	rec     schema.Record
	present bool
}

// NewView normalizes raw input and wraps it. Absent input yields the empty
// view (IsValid false, safe defaults everywhere).
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

// ContentID returns the processed content item id.
func (v View) ContentID() string { return v.rec.String("content_id") }

// TaskType returns the AI task kind (summarization, tagging, scoring).
func (v View) TaskType() string { return v.rec.String("task_type") }

// Status returns the processing status.
func (v View) Status() string { return v.rec.String("status") }

// Provider returns the AI provider name.
func (v View) Provider() string { return v.rec.String("provider") }

// Model returns the provider model identifier.
func (v View) Model() string { return v.rec.String("model") }

// Confidence returns the provider-reported confidence percentage.
func (v View) Confidence() float64 { return v.rec.Float("confidence") }

// TokensUsed returns the token count billed for the task.
func (v View) TokensUsed() int { return v.rec.Int("tokens_used") }

// ProcessingTimeMs returns the task wall time in milliseconds.
func (v View) ProcessingTimeMs() int { return v.rec.Int("processing_time_ms") }

// ErrorMessage returns the provider error, empty on success.
func (v View) ErrorMessage() string { return v.rec.String("error_message") }

// RetryCount returns how many times the task was retried upstream.
func (v View) RetryCount() int { return v.rec.Int("retry_count") }

// WordpressSynced reports whether the result has been mirrored to WordPress.
func (v View) WordpressSynced() bool { return v.rec.Bool("wordpress_synced") }

// IsQueued reports whether the task is waiting for a worker.
func (v View) IsQueued() bool { return v.Status() == StatusQueued }

// IsProcessing reports whether a worker currently owns the task.
func (v View) IsProcessing() bool { return v.Status() == StatusProcessing }

// IsCompleted reports whether the task finished successfully.
func (v View) IsCompleted() bool { return v.Status() == StatusCompleted }

// IsFailed reports whether the task finished with an error.
func (v View) IsFailed() bool { return v.Status() == StatusFailed }

// HasError reports whether an error message is recorded.
func (v View) HasError() bool { return v.ErrorMessage() != "" }

// ConfidenceLevel buckets the confidence percentage into tiers. Thresholds,
// highest first: 90 very-high, 75 high, 60 medium, 40 low.
func (v View) ConfidenceLevel() string {
	c := v.Confidence()
	switch {
	case c >= 90:
		return ConfidenceVeryHigh
	case c >= 75:
		return ConfidenceHigh
	case c >= 60:
		return ConfidenceMedium
	case c >= 40:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// AgeSeconds returns seconds since creation, 0 when no timestamp is set.
func (v View) AgeSeconds() float64 {
	created, ok := v.rec.Time("created_at")
	if !ok {
		return 0
	}
	return time.Since(created).Seconds()
}

// IsStale reports a task still queued an hour after creation.
func (v View) IsStale() bool {
	created, ok := v.rec.Time("created_at")
	if !ok {
		return false
	}
	return v.IsQueued() && time.Since(created) > staleAfter
}

// TokensPerSecond returns token throughput, 0 when no time was recorded.
func (v View) TokensPerSecond() float64 {
	ms := v.ProcessingTimeMs()
	if ms <= 0 {
		return 0
	}
	return float64(v.TokensUsed()) / (float64(ms) / 1000)
}

// Canonical returns a copy of the underlying canonical record.
func (v View) Canonical() schema.Record { return v.rec.Clone() }

// MarshalJSON serializes exactly the canonical field set.
func (v View) MarshalJSON() ([]byte, error) { return json.Marshal(v.rec) }

// Store is the AI result store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the AI result store with the shared collaborators. New
// records start queued.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity:         Entity,
		Schema:         Schema,
		CreateDefaults: schema.Record{"status": StatusQueued},
		Wrap:           wrap,
	}, deps)}
}
