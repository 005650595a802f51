// Package source implements the content source business object: an RSS
// feed, API endpoint, or scrape target the digest pulls items from.
package source

import (
	"encoding/json"
	"time"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "content_source"

// Source kinds.
const (
	KindRSS    = "rss"
	KindAPI    = "api"
	KindScrape = "scrape"
)

// Source statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusError  = "error"
)

// Health tiers assigned by HealthStatus.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthFailing  = "failing"
	HealthUnknown  = "unknown"
)

// IsHealthy thresholds: success rate at or above, error count strictly
// under.
const (
	healthySuccessRate = 90.0
	healthyErrorLimit  = 5
	degradedSuccessRate = 70.0
)

// Schema is the content source normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "name", Kind: schema.KindString},
	schema.Field{Name: "url", Kind: schema.KindString},
	schema.Field{Name: "kind", Kind: schema.KindString, Default: KindRSS},
	schema.Field{Name: "status", Kind: schema.KindString, Default: StatusActive},
	schema.Field{Name: "success_rate", Aliases: []string{"successRate"}, Kind: schema.KindFloat},
	schema.Field{Name: "error_count", Aliases: []string{"errorCount"}, Kind: schema.KindInt},
	schema.Field{Name: "items_ingested", Aliases: []string{"itemsIngested"}, Kind: schema.KindInt},
	schema.Field{Name: "fetch_count", Aliases: []string{"fetchCount"}, Kind: schema.KindInt},
	schema.Field{Name: "last_fetch_at", Aliases: []string{"lastFetchAt"}, Kind: schema.KindTime},
	schema.Field{Name: "fetch_interval_minutes", Aliases: []string{"fetchIntervalMinutes"}, Kind: schema.KindInt, Default: 60},
	schema.Field{Name: "auth_expired", Aliases: []string{"authExpired"}, Kind: schema.KindBool},
	schema.Field{Name: "wordpress_synced", Aliases: []string{"wordpressSynced"}, Kind: schema.KindBool},
)

// View is the read-only derived view over a canonical source record.
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

// Name returns the source display name.
func (v View) Name() string { return v.rec.String("name") }

// URL returns the source location.
func (v View) URL() string { return v.rec.String("url") }

// Kind returns the source kind (rss, api, scrape).
func (v View) Kind() string { return v.rec.String("kind") }

// Status returns the source status.
func (v View) Status() string { return v.rec.String("status") }

// IsActive reports whether the source is being fetched.
func (v View) IsActive() bool { return v.Status() == StatusActive }

// SuccessRate returns the fetch success percentage.
func (v View) SuccessRate() float64 { return v.rec.Float("success_rate") }

// ErrorCount returns the consecutive fetch error count.
func (v View) ErrorCount() int { return v.rec.Int("error_count") }

// ItemsIngested returns the lifetime item count pulled from this source.
func (v View) ItemsIngested() int { return v.rec.Int("items_ingested") }

// FetchCount returns the lifetime fetch count.
func (v View) FetchCount() int { return v.rec.Int("fetch_count") }

// FetchIntervalMinutes returns the configured fetch cadence.
func (v View) FetchIntervalMinutes() int { return v.rec.Int("fetch_interval_minutes") }

// LastFetchAt returns the last fetch time; the bool is false when the
// source has never been fetched.
func (v View) LastFetchAt() (time.Time, bool) { return v.rec.Time("last_fetch_at") }

// WordpressSynced reports whether the source config is mirrored to
// WordPress.
func (v View) WordpressSynced() bool { return v.rec.Bool("wordpress_synced") }

// IsHealthy reports a success rate of at least 90 with fewer than 5 errors.
func (v View) IsHealthy() bool {
	return v.SuccessRate() >= healthySuccessRate && v.ErrorCount() < healthyErrorLimit
}

// HealthStatus buckets the source health: unknown when never fetched,
// healthy per IsHealthy, degraded at success rate 70 or better, failing
// otherwise.
func (v View) HealthStatus() string {
	if _, fetched := v.LastFetchAt(); !fetched && v.FetchCount() == 0 {
		return HealthUnknown
	}
	if v.IsHealthy() {
		return HealthHealthy
	}
	if v.SuccessRate() >= degradedSuccessRate {
		return HealthDegraded
	}
	return HealthFailing
}

// IsStale reports no fetch inside twice the configured interval.
func (v View) IsStale() bool {
	last, ok := v.LastFetchAt()
	if !ok {
		return false
	}
	interval := v.FetchIntervalMinutes()
	if interval <= 0 {
		return false
	}
	return time.Since(last) > 2*time.Duration(interval)*time.Minute
}

// IngestVelocity returns average items per fetch, 0 before the first fetch.
func (v View) IngestVelocity() float64 {
	fetches := v.FetchCount()
	if fetches <= 0 {
		return 0
	}
	return float64(v.ItemsIngested()) / float64(fetches)
}

// NeedsReauth reports an expired credential on an api or scrape source.
func (v View) NeedsReauth() bool {
	return v.rec.Bool("auth_expired") && v.Kind() != KindRSS
}

// Canonical returns a copy of the underlying canonical record.
func (v View) Canonical() schema.Record { return v.rec.Clone() }

// MarshalJSON serializes exactly the canonical field set.
func (v View) MarshalJSON() ([]byte, error) { return json.Marshal(v.rec) }

// Store is the content source store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the content source store. New sources start active.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity:         Entity,
		Schema:         Schema,
		CreateDefaults: schema.Record{"status": StatusActive},
		Wrap:           wrap,
	}, deps)}
}
