// Package bostore implements the shared business object store: an
// observable in-memory collection of canonical records plus a generic CRUD
// shim with an optional remote persistence collaborator.
package bostore

import (
	"sync"

	"github.com/pulsedigest/core/internal/schema"
)

// Collection is an ordered, observable set of canonical records keyed by id.
// Every mutation replaces the whole snapshot (read, rebuild, publish) rather
// than editing in place; concurrent writers race last-write-wins, which
// matches the sequential single-caller model this layer is built for.
type Collection struct {
	mu      sync.RWMutex
	records []schema.Record
	subs    map[int]chan []schema.Record
	nextSub int
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{subs: make(map[int]chan []schema.Record)}
}

// Snapshot returns a deep copy of the current records in insertion order.
func (c *Collection) Snapshot() []schema.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneRecords(c.records)
}

// Len returns the number of records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Find returns the record with the given id.
func (c *Collection) Find(id string) (schema.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.records {
		if rec.ID() == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// Filter returns all records matching the predicate.
func (c *Collection) Filter(match func(schema.Record) bool) []schema.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []schema.Record
	for _, rec := range c.records {
		if match(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Append adds a record to the end of the collection.
func (c *Collection) Append(rec schema.Record) {
	c.mu.Lock()
	next := make([]schema.Record, 0, len(c.records)+1)
	next = append(next, c.records...)
	next = append(next, rec.Clone())
	c.records = next
	c.publishLocked()
	c.mu.Unlock()
}

// ReplaceByID swaps the record with the matching id, preserving its
// position. Returns false when no record matches.
func (c *Collection) ReplaceByID(rec schema.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	replaced := false
	next := make([]schema.Record, len(c.records))
	for i, existing := range c.records {
		if existing.ID() == rec.ID() {
			next[i] = rec.Clone()
			replaced = true
		} else {
			next[i] = existing
		}
	}
	if replaced {
		c.records = next
		c.publishLocked()
	}
	return replaced
}

// Remove drops the record with the given id. Returns false when no record
// matches.
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]schema.Record, 0, len(c.records))
	removed := false
	for _, rec := range c.records {
		if rec.ID() == id {
			removed = true
			continue
		}
		next = append(next, rec)
	}
	if removed {
		c.records = next
		c.publishLocked()
	}
	return removed
}

// Replace publishes an entirely new snapshot.
func (c *Collection) Replace(records []schema.Record) {
	c.mu.Lock()
	c.records = cloneRecords(records)
	c.publishLocked()
	c.mu.Unlock()
}

// Subscribe registers a snapshot channel. Every mutation delivers the full
// new snapshot; slow subscribers drop intermediate snapshots rather than
// blocking mutations. The returned function cancels the subscription.
func (c *Collection) Subscribe(buffer int) (<-chan []schema.Record, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan []schema.Record, buffer)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Collection) publishLocked() {
	snapshot := cloneRecords(c.records)
	for _, ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func cloneRecords(records []schema.Record) []schema.Record {
	out := make([]schema.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}
