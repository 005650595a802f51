// Package health implements the system health business object: a point-in-
// time sample of component scores and service-level metrics, rolled up into
// one composite score.
package health

import (
	"encoding/json"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "health_sample"

// Component statuses.
const (
	ComponentOperational = "operational"
	ComponentDegraded    = "degraded"
	ComponentDown        = "down"
)

// Health tiers assigned by HealthLevel.
const (
	LevelExcellent = "excellent"
	LevelGood      = "good"
	LevelFair      = "fair"
	LevelPoor      = "poor"
)

// Composite score point budgets. The four components sum to 100.
const (
	componentBudget = 40.0
	uptimeBudget    = 25.0
	errorBudget     = 20.0
	latencyBudget   = 15.0
)

// Schema is the health sample normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "components", Kind: schema.KindSlice},
	schema.Field{Name: "uptime_percent", Aliases: []string{"uptimePercent"}, Kind: schema.KindFloat},
	schema.Field{Name: "error_rate", Aliases: []string{"errorRate"}, Kind: schema.KindFloat},
	schema.Field{Name: "avg_response_ms", Aliases: []string{"avgResponseMs"}, Kind: schema.KindFloat},
	schema.Field{Name: "incidents_open", Aliases: []string{"incidentsOpen"}, Kind: schema.KindInt},
)

// Component is one subsystem's health reading.
type Component struct {
	Name   string
	Score  float64
	Status string
}

// View is the read-only derived view over a canonical health sample.
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

// UptimePercent returns the sampled uptime percentage.
func (v View) UptimePercent() float64 { return v.rec.Float("uptime_percent") }

// ErrorRate returns the sampled error percentage.
func (v View) ErrorRate() float64 { return v.rec.Float("error_rate") }

// AvgResponseMs returns the sampled average response time.
func (v View) AvgResponseMs() float64 { return v.rec.Float("avg_response_ms") }

// IncidentsOpen returns the number of open incidents.
func (v View) IncidentsOpen() int { return v.rec.Int("incidents_open") }

// Components decodes the component entries, skipping malformed ones.
func (v View) Components() []Component {
	raw := v.rec.Slice("components")
	out := make([]Component, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		c := Component{}
		c.Name, _ = m["name"].(string)
		c.Status, _ = m["status"].(string)
		switch n := m["score"].(type) {
		case float64:
			c.Score = n
		case int:
			c.Score = float64(n)
		}
		out = append(out, c)
	}
	return out
}

// ComponentCount returns the number of reporting components.
func (v View) ComponentCount() int { return len(v.Components()) }

// FailingComponents counts components that are down or scoring under 50.
func (v View) FailingComponents() int {
	count := 0
	for _, c := range v.Components() {
		if c.Status == ComponentDown || c.Score < 50 {
			count++
		}
	}
	return count
}

// WorstComponent returns the lowest-scoring component, nil when no
// components report.
func (v View) WorstComponent() *Component {
	components := v.Components()
	if len(components) == 0 {
		return nil
	}
	worst := components[0]
	for _, c := range components[1:] {
		if c.Score < worst.Score {
			worst = c
		}
	}
	return &worst
}

// averageComponentScore returns 0 on an empty component list.
func (v View) averageComponentScore() float64 {
	components := v.Components()
	if len(components) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range components {
		sum += clamp(c.Score, 0, 100)
	}
	return sum / float64(len(components))
}

// HealthScore is the composite 0-100 system score: component average up to
// 40 points, uptime up to 25, error rate up to 20 (fewer errors, more
// points), latency up to 15 (full points at or under 200ms, none at 2s).
// Each component is clamped to its budget before summing; the sum is clamped
// to [0, 100].
func (v View) HealthScore() float64 {
	componentScore := clamp(v.averageComponentScore()/100*componentBudget, 0, componentBudget)
	uptimeScore := clamp(v.UptimePercent()/100*uptimeBudget, 0, uptimeBudget)
	errorScore := clamp((1-v.ErrorRate()/100)*errorBudget, 0, errorBudget)

	latency := v.AvgResponseMs()
	latencyScore := latencyBudget
	if latency > 200 {
		latencyScore = latencyBudget * (1 - (latency-200)/1800)
	}
	latencyScore = clamp(latencyScore, 0, latencyBudget)

	return clamp(componentScore+uptimeScore+errorScore+latencyScore, 0, 100)
}

// HealthLevel buckets HealthScore into tiers. Thresholds, highest first:
// 90 excellent, 75 good, 50 fair.
func (v View) HealthLevel() string {
	score := v.HealthScore()
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 75:
		return LevelGood
	case score >= 50:
		return LevelFair
	default:
		return LevelPoor
	}
}

// IsDegraded reports failing components or any open incident.
func (v View) IsDegraded() bool {
	return v.FailingComponents() > 0 || v.IncidentsOpen() > 0
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

// Store is the health sample store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the health sample store.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity: Entity,
		Schema: Schema,
		Wrap:   wrap,
	}, deps)}
}
