// Package usage implements the usage tracking business object: one user's
// API and resource consumption over a billing period, with quota and
// efficiency derivations.
package usage

import (
	"encoding/json"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "usage"

// Efficiency tiers assigned by EfficiencyRating.
const (
	EfficiencyExcellent = "excellent"
	EfficiencyGood      = "good"
	EfficiencyFair      = "fair"
	EfficiencyPoor      = "poor"
	EfficiencyCritical  = "critical"
)

// Resource consumption dimensions, in reporting order. Ties in TopResource
// resolve to the earliest dimension.
var resourceDims = []string{"cpu_seconds", "memory_mb_hours", "storage_mb", "bandwidth_mb"}

// nearQuotaPercent is the quota share at which IsNearQuota trips.
const nearQuotaPercent = 80.0

// baselineTokensPerCall anchors the call-efficiency sub-score: periods
// averaging at or under this many tokens per call earn full points.
const baselineTokensPerCall = 1000.0

// Schema is the usage normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "user_id", Aliases: []string{"userId"}, Kind: schema.KindString},
	schema.Field{Name: "period", Kind: schema.KindString},
	schema.Field{Name: "api_calls", Aliases: []string{"apiCalls"}, Kind: schema.KindInt},
	schema.Field{Name: "tokens_consumed", Aliases: []string{"tokensConsumed"}, Kind: schema.KindInt},
	schema.Field{Name: "quota_tokens", Aliases: []string{"quotaTokens"}, Kind: schema.KindInt},
	schema.Field{Name: "resource_consumption", Aliases: []string{"resourceConsumption"}, Kind: schema.KindMap},
)

// View is the read-only derived view over a canonical usage record.
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

// UserID returns the owner of the tracked period.
func (v View) UserID() string { return v.rec.String("user_id") }

// Period returns the billing period label.
func (v View) Period() string { return v.rec.String("period") }

// APICalls returns the recorded call count.
func (v View) APICalls() int { return v.rec.Int("api_calls") }

// TokensConsumed returns the tokens spent this period.
func (v View) TokensConsumed() int { return v.rec.Int("tokens_consumed") }

// QuotaTokens returns the period token quota; 0 means unmetered.
func (v View) QuotaTokens() int { return v.rec.Int("quota_tokens") }

// ResourceConsumption returns the per-dimension consumption object.
func (v View) ResourceConsumption() map[string]any {
	return v.rec.Map("resource_consumption")
}

// QuotaUsedPercent returns consumed tokens as a percentage of quota,
// 0 when no quota is set. Not capped at 100 so overruns stay visible.
func (v View) QuotaUsedPercent() float64 {
	quota := v.QuotaTokens()
	if quota <= 0 {
		return 0
	}
	return float64(v.TokensConsumed()) / float64(quota) * 100
}

// IsOverQuota reports consumption past the period quota.
func (v View) IsOverQuota() bool {
	return v.QuotaTokens() > 0 && v.TokensConsumed() > v.QuotaTokens()
}

// IsNearQuota reports consumption at or past 80% of the period quota.
func (v View) IsNearQuota() bool {
	return v.QuotaTokens() > 0 && v.QuotaUsedPercent() >= nearQuotaPercent
}

// TokensPerCall returns average tokens spent per API call, 0 when no
// calls were made.
func (v View) TokensPerCall() float64 {
	calls := v.APICalls()
	if calls <= 0 {
		return 0
	}
	return float64(v.TokensConsumed()) / float64(calls)
}

// EfficiencyScore rates the period 0-100 from three sub-scores:
//   - quota headroom, up to 40pts: remaining quota share; unmetered
//     periods take full points
//   - call efficiency, up to 30pts: full at or under the per-call token
//     baseline, decaying proportionally above it
//   - resource balance, up to 30pts: full when consumption spreads evenly
//     across dimensions, zero when a single dimension dominates
func (v View) EfficiencyScore() float64 {
	score := v.headroomPoints() + v.callPoints() + v.balancePoints()
	return clamp(score, 0, 100)
}

// EfficiencyRating buckets EfficiencyScore. Thresholds, highest first:
// 90 excellent, 75 good, 60 fair, 40 poor.
func (v View) EfficiencyRating() string {
	score := v.EfficiencyScore()
	switch {
	case score >= 90:
		return EfficiencyExcellent
	case score >= 75:
		return EfficiencyGood
	case score >= 60:
		return EfficiencyFair
	case score >= 40:
		return EfficiencyPoor
	default:
		return EfficiencyCritical
	}
}

// TopResource returns the consumption dimension with the largest value,
// or "" when nothing was consumed.
func (v View) TopResource() string {
	consumption := v.ResourceConsumption()
	top, best := "", 0.0
	for _, dim := range resourceDims {
		if val := dimValue(consumption, dim); val > best {
			top, best = dim, val
		}
	}
	return top
}

// Canonical returns a copy of the underlying canonical record.
func (v View) Canonical() schema.Record { return v.rec.Clone() }

// MarshalJSON serializes exactly the canonical field set.
func (v View) MarshalJSON() ([]byte, error) { return json.Marshal(v.rec) }

func (v View) headroomPoints() float64 {
	quota := v.QuotaTokens()
	if quota <= 0 {
		return 40
	}
	remaining := 1 - float64(v.TokensConsumed())/float64(quota)
	return clamp(remaining*40, 0, 40)
}

func (v View) callPoints() float64 {
	perCall := v.TokensPerCall()
	if perCall <= baselineTokensPerCall {
		return 30
	}
	return clamp(baselineTokensPerCall/perCall*30, 0, 30)
}

func (v View) balancePoints() float64 {
	consumption := v.ResourceConsumption()
	total, largest := 0.0, 0.0
	for _, dim := range resourceDims {
		val := dimValue(consumption, dim)
		total += val
		if val > largest {
			largest = val
		}
	}
	if total <= 0 {
		return 30
	}
	// An even spread puts 1/len(dims) of the total in the largest
	// dimension; a single hot dimension holds all of it.
	even := 1.0 / float64(len(resourceDims))
	share := largest / total
	return clamp((1-(share-even)/(1-even))*30, 0, 30)
}

func dimValue(m map[string]any, key string) float64 {
	switch t := m[key].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Store is the usage store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the usage store.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity: Entity,
		Schema: Schema,
		Wrap:   wrap,
	}, deps)}
}
