// Package selection implements the selected-items manager: an ordered set
// of content items picked by the user, persisted through the key-value
// collaborator, plus named saved snapshots of that set.
package selection

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// currentKey holds the live selection; saved snapshots live under savedPrefix.
const (
	currentKey  = "selection:current"
	savedPrefix = "selection:saved:"
)

// Item is one selected content item. Identity is the (ID, Type) pair.
type Item struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Title   string    `json:"title,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

func (it Item) same(other Item) bool {
	return it.ID == other.ID && it.Type == other.Type
}

// Saved is a named snapshot of a selection.
type Saved struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Items       []Item    `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the persistence surface the manager needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Manager maintains the ordered selection. All mutations persist the new
// state best-effort: storage failures are logged, never surfaced as panics,
// and the in-memory selection stays authoritative.
type Manager struct {
	store  Store
	logger *zap.Logger
	newID  func() string
	now    func() time.Time

	mu    sync.Mutex
	items []Item
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithIDFunc overrides snapshot id generation.
func WithIDFunc(f func() string) Option { return func(m *Manager) { m.newID = f } }

// WithNowFunc overrides the clock.
func WithNowFunc(f func() time.Time) Option { return func(m *Manager) { m.now = f } }

// NewManager builds a manager over the given store and restores any
// persisted selection. A corrupt persisted value is dropped, not fatal.
func NewManager(ctx context.Context, store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.restore(ctx)
	return m
}

func (m *Manager) restore(ctx context.Context) {
	raw, ok, err := m.store.Get(ctx, currentKey)
	if err != nil {
		m.logger.Warn("selection restore failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		m.logger.Warn("persisted selection unreadable, starting empty", zap.Error(err))
		return
	}
	m.items = items
}

// Items returns a copy of the current selection in order.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.items...)
}

// Count returns the current selection size.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Contains reports whether an item with the given id and type is selected.
func (m *Manager) Contains(id, itemType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfLocked(Item{ID: id, Type: itemType}) >= 0
}

// ByType returns a count of selected items per type.
func (m *Manager) ByType() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.items))
	for _, it := range m.items {
		out[it.Type]++
	}
	return out
}

// AtLimit reports whether the selection has reached the given cap.
// A non-positive limit never trips.
func (m *Manager) AtLimit(limit int) bool {
	if limit <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) >= limit
}

// Add appends the item unless an equal item is already selected.
// Returns true when the selection changed.
func (m *Manager) Add(ctx context.Context, item Item) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOfLocked(item) >= 0 {
		return false
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = m.now()
	}
	m.items = append(m.items, item)
	m.persistLocked(ctx)
	return true
}

// Remove drops the first item matching id and type. Returns true when the
// selection changed.
func (m *Manager) Remove(ctx context.Context, id, itemType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOfLocked(Item{ID: id, Type: itemType})
	if idx < 0 {
		return false
	}
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.persistLocked(ctx)
	return true
}

// Toggle adds the item if absent, removes it if present. Returns true when
// the item is selected afterwards.
func (m *Manager) Toggle(ctx context.Context, item Item) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexOfLocked(item); idx >= 0 {
		m.items = append(m.items[:idx], m.items[idx+1:]...)
		m.persistLocked(ctx)
		return false
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = m.now()
	}
	m.items = append(m.items, item)
	m.persistLocked(ctx)
	return true
}

// Reorder moves the item at index from to index to. Out-of-range indexes
// make the call a no-op.
func (m *Manager) Reorder(ctx context.Context, from, to int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	moved := m.items[from]
	rest := append(m.items[:from:from], m.items[from+1:]...)
	m.items = append(rest[:to:to], append([]Item{moved}, rest[to:]...)...)
	m.persistLocked(ctx)
	return true
}

// Clear empties the selection.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.persistLocked(ctx)
}

// Replace swaps the whole selection for the given items.
func (m *Manager) Replace(ctx context.Context, items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]Item(nil), items...)
	m.persistLocked(ctx)
}

// Save snapshots the current selection under a generated id.
func (m *Manager) Save(ctx context.Context, name, description string) (Saved, error) {
	m.mu.Lock()
	snap := Saved{
		ID:          m.newID(),
		Name:        name,
		Description: description,
		Items:       append([]Item(nil), m.items...),
		CreatedAt:   m.now(),
	}
	m.mu.Unlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		return Saved{}, err
	}
	if err := m.store.Set(ctx, savedPrefix+snap.ID, raw); err != nil {
		m.logger.Error("saving selection snapshot failed",
			zap.String("name", name), zap.Error(err))
		return Saved{}, err
	}
	m.logger.Info("selection snapshot saved",
		zap.String("id", snap.ID), zap.String("name", name),
		zap.Int("items", len(snap.Items)))
	return snap, nil
}

// List returns all saved snapshots, newest first. Storage failures degrade
// to an empty list; individual unreadable snapshots are skipped.
func (m *Manager) List(ctx context.Context) []Saved {
	keys, err := m.store.Keys(ctx, savedPrefix)
	if err != nil {
		m.logger.Warn("listing selection snapshots failed", zap.Error(err))
		return nil
	}
	out := make([]Saved, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := m.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var snap Saved
		if err := json.Unmarshal(raw, &snap); err != nil {
			m.logger.Warn("skipping unreadable selection snapshot",
				zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Load replaces the current selection with the named snapshot. Returns
// false when the snapshot is missing or unreadable; the current selection
// is untouched in that case.
func (m *Manager) Load(ctx context.Context, id string) bool {
	raw, ok, err := m.store.Get(ctx, savedPrefix+id)
	if err != nil {
		m.logger.Warn("loading selection snapshot failed",
			zap.String("id", id), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	var snap Saved
	if err := json.Unmarshal(raw, &snap); err != nil {
		m.logger.Warn("selection snapshot unreadable",
			zap.String("id", id), zap.Error(err))
		return false
	}
	m.Replace(ctx, snap.Items)
	return true
}

// DeleteSaved removes a saved snapshot. Missing snapshots are not an error.
func (m *Manager) DeleteSaved(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, savedPrefix+id); err != nil {
		m.logger.Error("deleting selection snapshot failed",
			zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (m *Manager) indexOfLocked(target Item) int {
	for i, it := range m.items {
		if it.same(target) {
			return i
		}
	}
	return -1
}

// persistLocked writes the current selection best-effort. Failures are
// logged and otherwise ignored so local state keeps working.
func (m *Manager) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(m.items)
	if err != nil {
		m.logger.Error("encoding selection failed", zap.Error(err))
		return
	}
	if err := m.store.Set(ctx, currentKey, raw); err != nil {
		m.logger.Warn("persisting selection failed", zap.Error(err))
	}
}
