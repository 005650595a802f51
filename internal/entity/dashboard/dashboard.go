// Package dashboard implements the user dashboard business object: a named
// widget arrangement with layout settings and a composite quality score.
package dashboard

import (
	"encoding/json"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

// Entity is the record type name used for persistence and logging.
const Entity = "dashboard"

// Widget kinds the digest UI renders.
const (
	WidgetChart    = "chart"
	WidgetFeed     = "feed"
	WidgetKPI      = "kpi"
	WidgetTable    = "table"
	WidgetRealtime = "realtime"
)

// Composite score point budgets.
const (
	coverageBudget   = 40.0
	visibilityBudget = 30.0
	diversityBudget  = 30.0
)

// fullCoverageWidgets is the widget count that earns the full coverage
// budget.
const fullCoverageWidgets = 8

// defaultLayout is the nested layout default applied when the field is
// missing or malformed.
var defaultLayout = map[string]any{
	"columns": 3,
	"theme":   "system",
}

// Schema is the dashboard normalization table.
var Schema = schema.New(Entity,
	schema.Field{Name: "user_id", Aliases: []string{"userId"}, Kind: schema.KindString},
	schema.Field{Name: "name", Kind: schema.KindString},
	schema.Field{Name: "description", Kind: schema.KindString},
	schema.Field{Name: "widgets", Kind: schema.KindSlice},
	schema.Field{Name: "layout", Kind: schema.KindMap, Default: defaultLayout},
	schema.Field{Name: "is_default", Aliases: []string{"isDefault"}, Kind: schema.KindBool},
	schema.Field{Name: "refresh_interval_seconds", Aliases: []string{"refreshIntervalSeconds"}, Kind: schema.KindInt, Default: 300},
)

// Widget is one decoded dashboard widget.
type Widget struct {
	ID      string
	Kind    string
	Title   string
	Visible bool
}

// View is the read-only derived view over a canonical dashboard record.
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

// UserID returns the owning user.
func (v View) UserID() string { return v.rec.String("user_id") }

// Name returns the dashboard name.
func (v View) Name() string { return v.rec.String("name") }

// IsDefault reports whether this is the user's landing dashboard.
func (v View) IsDefault() bool { return v.rec.Bool("is_default") }

// RefreshIntervalSeconds returns the configured refresh cadence.
func (v View) RefreshIntervalSeconds() int { return v.rec.Int("refresh_interval_seconds") }

// Columns returns the layout column count, falling back to the layout
// default when missing.
func (v View) Columns() int {
	layout := v.rec.Map("layout")
	switch n := layout["columns"].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 3
}

// Theme returns the layout theme, "system" when unset.
func (v View) Theme() string {
	if theme, ok := v.rec.Map("layout")["theme"].(string); ok && theme != "" {
		return theme
	}
	return "system"
}

// Widgets decodes the widget entries, skipping malformed ones. A widget
// without a visible flag counts as visible.
func (v View) Widgets() []Widget {
	raw := v.rec.Slice("widgets")
	out := make([]Widget, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		w := Widget{Visible: true}
		w.ID, _ = m["id"].(string)
		w.Kind, _ = m["kind"].(string)
		w.Title, _ = m["title"].(string)
		if visible, ok := m["visible"].(bool); ok {
			w.Visible = visible
		}
		out = append(out, w)
	}
	return out
}

// WidgetCount returns the number of widgets.
func (v View) WidgetCount() int { return len(v.Widgets()) }

// VisibleWidgetCount returns the number of visible widgets.
func (v View) VisibleWidgetCount() int {
	count := 0
	for _, w := range v.Widgets() {
		if w.Visible {
			count++
		}
	}
	return count
}

// HasRealtimeWidgets reports at least one visible realtime widget.
func (v View) HasRealtimeWidgets() bool {
	for _, w := range v.Widgets() {
		if w.Visible && w.Kind == WidgetRealtime {
			return true
		}
	}
	return false
}

// TopWidgetKind returns the most frequent widget kind, empty on an empty
// dashboard. Ties resolve to the kind first reaching the top count.
func (v View) TopWidgetKind() string {
	counts := map[string]int{}
	top := ""
	best := 0
	for _, w := range v.Widgets() {
		counts[w.Kind]++
		if counts[w.Kind] > best {
			best = counts[w.Kind]
			top = w.Kind
		}
	}
	return top
}

// IsCustomized reports a dashboard that deviates from the fresh-install
// shape: any widget, a named layout theme, or a non-default column count.
func (v View) IsCustomized() bool {
	return v.WidgetCount() > 0 || v.Theme() != "system" || v.Columns() != 3
}

// DashboardScore is a composite 0-100 score of dashboard usefulness: widget
// coverage up to 40 points (full at 8 widgets), visibility up to 30, and
// kind diversity up to 30 (full at 3 distinct kinds). Each component is
// clamped to its budget before summing; the sum is clamped to [0, 100].
func (v View) DashboardScore() float64 {
	widgets := v.Widgets()

	coverage := clamp(float64(len(widgets))/fullCoverageWidgets*coverageBudget, 0, coverageBudget)

	visibility := 0.0
	if len(widgets) > 0 {
		visibility = float64(v.VisibleWidgetCount()) / float64(len(widgets)) * visibilityBudget
	}
	visibility = clamp(visibility, 0, visibilityBudget)

	kinds := map[string]bool{}
	for _, w := range widgets {
		kinds[w.Kind] = true
	}
	diversity := clamp(float64(len(kinds))/3*diversityBudget, 0, diversityBudget)

	return clamp(coverage+visibility+diversity, 0, 100)
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

// Store is the dashboard store.
type Store struct {
	*bostore.Store[View]
}

// NewStore builds the dashboard store.
func NewStore(deps bostore.Deps) *Store {
	return &Store{bostore.New(bostore.Config[View]{
		Entity: Entity,
		Schema: Schema,
		Wrap:   wrap,
	}, deps)}
}
