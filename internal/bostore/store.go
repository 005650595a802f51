package bostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsedigest/core/internal/identity"
	"github.com/pulsedigest/core/internal/metrics"
	"github.com/pulsedigest/core/internal/remote"
	"github.com/pulsedigest/core/internal/schema"
)

// ErrUnauthenticated is returned by Create when no authenticated actor is
// present.
var ErrUnauthenticated = errors.New("authentication required")

// ErrNotFound is returned by Update when the target record exists neither
// locally nor remotely.
var ErrNotFound = errors.New("record not found")

// Deps bundles the collaborators shared by every entity store. Remote may be
// nil: local-only operation is a supported mode, not an error. Metrics may be
// nil when instrumentation is disabled.
type Deps struct {
	Remote   remote.Collection
	Identity identity.Provider
	Logger   *zap.Logger
	Metrics  *metrics.StoreMetrics
	NewID    func() string
	Now      func() time.Time
}

// Config describes one entity store instantiation.
type Config[V any] struct {
	// Entity names the record type for persistence and logging.
	Entity string
	// Schema is the entity's normalization table.
	Schema schema.Schema
	// CreateDefaults are stamped onto every newly created record after the
	// caller's data is applied (initial status and friends).
	CreateDefaults schema.Record
	// Wrap builds the entity's derived view over a canonical record. The
	// bool is false for the empty view.
	Wrap func(rec schema.Record, present bool) V
}

// Store is the generic CRUD shim over an observable local collection and the
// optional remote persistence collaborator. Mutating operations log and
// propagate failures; read operations log and degrade to empty results.
type Store[V any] struct {
	cfg    Config[V]
	local  *Collection
	rem    remote.Collection
	ident  identity.Provider
	logger *zap.Logger
	met    *metrics.StoreMetrics
	newID  func() string
	now    func() time.Time
}

// New creates a store for one entity type with its own empty collection.
func New[V any](cfg Config[V], deps Deps) *Store[V] {
	s := &Store[V]{
		cfg:    cfg,
		local:  NewCollection(),
		rem:    deps.Remote,
		ident:  deps.Identity,
		logger: deps.Logger,
		met:    deps.Metrics,
		newID:  deps.NewID,
		now:    deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Entity returns the store's entity name.
func (s *Store[V]) Entity() string {
	return s.cfg.Entity
}

// Local exposes the observable collection, primarily for subscriptions.
func (s *Store[V]) Local() *Collection {
	return s.local
}

// View normalizes raw input and wraps it in the entity's derived view.
// Absent or malformed input yields the empty view, never nil.
func (s *Store[V]) View(raw map[string]any) V {
	rec, ok := s.cfg.Schema.Normalize(raw)
	if !ok {
		return s.cfg.Wrap(s.cfg.Schema.Defaults(), false)
	}
	return s.cfg.Wrap(rec, true)
}

// Create builds a new record from the caller's data, persists it remotely
// when a remote collaborator is configured, appends it to the local
// collection, and returns its view. Fails with ErrUnauthenticated when no
// actor is present.
func (s *Store[V]) Create(ctx context.Context, data map[string]any) (V, error) {
	start := s.now()
	var zero V

	user, ok := s.ident.CurrentUser(ctx)
	if !ok {
		err := fmt.Errorf("cannot create %s: %w", s.cfg.Entity, ErrUnauthenticated)
		s.met.Observe(s.cfg.Entity, "create", start, err)
		return zero, err
	}

	rec := s.cfg.Schema.Apply(data)
	rec["id"] = s.newID()
	rec["created_at"] = start
	rec["updated_at"] = start
	rec["created_by"] = user.ID
	for k, v := range s.cfg.CreateDefaults {
		rec[k] = v
	}

	if s.rem != nil {
		if err := s.rem.Create(ctx, s.cfg.Entity, rec); err != nil {
			s.logger.Error("Failed to create record remotely",
				zap.String("entity", s.cfg.Entity),
				zap.String("id", rec.ID()),
				zap.Error(err))
			s.met.Observe(s.cfg.Entity, "create", start, err)
			return zero, fmt.Errorf("failed to create %s: %w", s.cfg.Entity, err)
		}
	}

	s.local.Append(rec)
	s.logger.Info("Record created",
		zap.String("entity", s.cfg.Entity),
		zap.String("id", rec.ID()),
		zap.String("created_by", user.ID))
	s.met.Observe(s.cfg.Entity, "create", start, nil)
	return s.cfg.Wrap(rec, true), nil
}

// Update merges the partial data into the existing record, refreshes
// updated_at, persists remotely when configured, replaces the record in the
// local collection, and returns the freshly fetched view.
func (s *Store[V]) Update(ctx context.Context, id string, partial map[string]any) (V, error) {
	start := s.now()
	var zero V

	existing, local := s.local.Find(id)
	if !local && s.rem != nil {
		rec, err := s.rem.FindByID(ctx, s.cfg.Entity, id)
		if err != nil {
			s.logger.Error("Failed to load record for update",
				zap.String("entity", s.cfg.Entity),
				zap.String("id", id),
				zap.Error(err))
			s.met.Observe(s.cfg.Entity, "update", start, err)
			return zero, fmt.Errorf("failed to update %s: %w", s.cfg.Entity, err)
		}
		if rec != nil {
			existing, _ = s.cfg.Schema.Normalize(rec)
		}
	}
	if existing == nil {
		err := fmt.Errorf("cannot update %s %s: %w", s.cfg.Entity, id, ErrNotFound)
		s.met.Observe(s.cfg.Entity, "update", start, err)
		return zero, err
	}

	merged := existing.Clone().Merge(s.cfg.Schema.Partial(partial))
	merged["updated_at"] = start

	if s.rem != nil {
		if err := s.rem.Update(ctx, s.cfg.Entity, id, merged); err != nil {
			s.logger.Error("Failed to update record remotely",
				zap.String("entity", s.cfg.Entity),
				zap.String("id", id),
				zap.Error(err))
			s.met.Observe(s.cfg.Entity, "update", start, err)
			return zero, fmt.Errorf("failed to update %s: %w", s.cfg.Entity, err)
		}
	}

	if !s.local.ReplaceByID(merged) {
		s.local.Append(merged)
	}
	s.logger.Info("Record updated",
		zap.String("entity", s.cfg.Entity),
		zap.String("id", id))
	s.met.Observe(s.cfg.Entity, "update", start, nil)

	fresh, _ := s.local.Find(id)
	return s.cfg.Wrap(fresh, true), nil
}

// Delete removes the record remotely when configured and from the local
// collection. The boolean reports whether a local record was removed.
func (s *Store[V]) Delete(ctx context.Context, id string) (bool, error) {
	start := s.now()

	if s.rem != nil {
		if err := s.rem.Delete(ctx, s.cfg.Entity, id); err != nil {
			s.logger.Error("Failed to delete record remotely",
				zap.String("entity", s.cfg.Entity),
				zap.String("id", id),
				zap.Error(err))
			s.met.Observe(s.cfg.Entity, "delete", start, err)
			return false, fmt.Errorf("failed to delete %s: %w", s.cfg.Entity, err)
		}
	}

	removed := s.local.Remove(id)
	if removed {
		s.logger.Info("Record deleted",
			zap.String("entity", s.cfg.Entity),
			zap.String("id", id))
	}
	s.met.Observe(s.cfg.Entity, "delete", start, nil)
	return removed, nil
}

// GetByID looks up a record remotely first, falling back to the local
// collection. Remote failures degrade to the local scan; a record found
// nowhere yields (empty view, false).
func (s *Store[V]) GetByID(ctx context.Context, id string) (V, bool) {
	start := s.now()

	if s.rem != nil {
		rec, err := s.rem.FindByID(ctx, s.cfg.Entity, id)
		if err != nil {
			s.logger.Warn("Remote lookup failed, falling back to local collection",
				zap.String("entity", s.cfg.Entity),
				zap.String("id", id),
				zap.Error(err))
		} else if rec != nil {
			if canonical, ok := s.cfg.Schema.Normalize(rec); ok {
				s.met.Observe(s.cfg.Entity, "get", start, nil)
				return s.cfg.Wrap(canonical, true), true
			}
		}
	}

	rec, ok := s.local.Find(id)
	s.met.Observe(s.cfg.Entity, "get", start, nil)
	if !ok {
		return s.cfg.Wrap(s.cfg.Schema.Defaults(), false), false
	}
	return s.cfg.Wrap(rec, true), true
}

// Query runs a filtered remote query first and falls back to scanning the
// local collection when the remote yields nothing. Failures degrade to the
// local scan; the result is never nil. Filters match scalar fields only;
// slice, map, and timestamp values are dropped from the filter so the
// remote and local paths agree on what matches.
func (s *Store[V]) Query(ctx context.Context, filter map[string]any) []V {
	start := s.now()
	canonical := scalarFilter(s.cfg.Schema.Partial(filter))

	if s.rem != nil {
		recs, err := s.rem.FindMany(ctx, s.cfg.Entity, canonical)
		if err != nil {
			s.logger.Warn("Remote query failed, falling back to local collection",
				zap.String("entity", s.cfg.Entity),
				zap.Error(err))
		} else if len(recs) > 0 {
			views := make([]V, 0, len(recs))
			for _, rec := range recs {
				if normalized, ok := s.cfg.Schema.Normalize(rec); ok {
					views = append(views, s.cfg.Wrap(normalized, true))
				}
			}
			s.met.Observe(s.cfg.Entity, "query", start, nil)
			return views
		}
	}

	matches := s.local.Filter(func(rec schema.Record) bool {
		for k, want := range canonical {
			if !valuesEqual(rec[k], want) {
				return false
			}
		}
		return true
	})
	views := make([]V, 0, len(matches))
	for _, rec := range matches {
		views = append(views, s.cfg.Wrap(rec, true))
	}
	s.met.Observe(s.cfg.Entity, "query", start, nil)
	return views
}

// All returns views over the current local snapshot.
func (s *Store[V]) All() []V {
	snapshot := s.local.Snapshot()
	views := make([]V, 0, len(snapshot))
	for _, rec := range snapshot {
		views = append(views, s.cfg.Wrap(rec, true))
	}
	return views
}

// scalarFilter keeps only string, bool, and numeric filter values.
func scalarFilter(filter schema.Record) schema.Record {
	out := schema.Record{}
	for k, v := range filter {
		switch v.(type) {
		case string, bool, int, int64, float64:
			out[k] = v
		}
	}
	return out
}

// valuesEqual compares scalar values across the json decode boundary,
// where ints come back as float64. Same semantics as the remote document
// store's filter matching.
func valuesEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
