// Package cache holds the client-side mirror of the last fetched page plus
// any locally applied mutations that the server has not yet confirmed.
//
// The cache belongs to exactly one view's synchronization controller and is
// never shared; server truth always wins, so every successful fetch
// replaces the whole mirror and discards optimistic bookkeeping.
package cache

import (
	"fmt"
	"time"

	"github.com/erayaindia/eraya-ops-hub/internal/gateway"
)

// MutationKind classifies a pending mutation.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// Pending is a mutation applied locally but not yet settled remotely.
// At most one may be outstanding per record id.
type Pending struct {
	Kind     MutationKind
	RecordID string
	Started  time.Time
}

// Removed retains everything needed to restore an optimistically removed
// record if the remote delete fails: the record itself, its position, and
// the cache generation at removal time.
type Removed struct {
	Record gateway.Record
	Index  int

	generation uint64
}

// Cache mirrors one page of a remote collection.
type Cache struct {
	items []gateway.Record
	total int

	// generation increments on every ReplaceAll so positional rollbacks
	// can detect that their snapshot has been superseded.
	generation uint64

	pending map[string]Pending
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{pending: make(map[string]Pending)}
}

// Items returns the current page view. The returned slice is a copy;
// renderers may hold it across later mutations.
func (c *Cache) Items() []gateway.Record {
	out := make([]gateway.Record, len(c.items))
	copy(out, c.items)
	return out
}

// Total returns the collection total as currently believed, including
// optimistic adjustments.
func (c *Cache) Total() int {
	return c.total
}

// Len returns the number of records on the cached page.
func (c *Cache) Len() int {
	return len(c.items)
}

// Get returns the cached record with the given id.
func (c *Cache) Get(id string) (gateway.Record, bool) {
	for _, rec := range c.items {
		if rec.ID() == id {
			return rec, true
		}
	}
	return nil, false
}

// ReplaceAll swaps in an authoritative server page. All prior optimistic
// state for the page is discarded; pending mutation guards survive because
// their remote calls are still in flight.
func (c *Cache) ReplaceAll(page *gateway.PageResult) {
	c.items = make([]gateway.Record, len(page.Items))
	copy(c.items, page.Items)
	c.total = page.Total
	c.generation++
}

// ApplyInsert places a record at the head of the page and bumps the total.
func (c *Cache) ApplyInsert(rec gateway.Record) {
	c.items = append([]gateway.Record{rec}, c.items...)
	c.total++
}

// RollbackInsert removes a record previously added with ApplyInsert.
func (c *Cache) RollbackInsert(id string) {
	for i, rec := range c.items {
		if rec.ID() == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.total--
			return
		}
	}
}

// ApplyPatch merges fields into the cached record and returns the pre-patch
// snapshot for rollback. Returns false if the record is not on this page.
func (c *Cache) ApplyPatch(id string, fields map[string]any) (gateway.Record, bool) {
	for i, rec := range c.items {
		if rec.ID() == id {
			prev := rec.Clone()
			c.items[i] = rec.Merge(fields)
			return prev, true
		}
	}
	return nil, false
}

// RollbackPatch restores the pre-patch snapshot taken by ApplyPatch.
func (c *Cache) RollbackPatch(id string, prev gateway.Record) {
	for i, rec := range c.items {
		if rec.ID() == id {
			c.items[i] = prev
			return
		}
	}
}

// MergeRecord overlays an authoritative single-record fetch onto the cached
// row, used after a confirmed update.
func (c *Cache) MergeRecord(rec gateway.Record) {
	id := rec.ID()
	for i, existing := range c.items {
		if existing.ID() == id {
			c.items[i] = rec.Clone()
			return
		}
	}
}

// ApplyRemove drops a record from the page, decrements the total, and
// returns a restoration token. Returns false if the record is absent.
func (c *Cache) ApplyRemove(id string) (*Removed, bool) {
	for i, rec := range c.items {
		if rec.ID() == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.total--
			return &Removed{Record: rec, Index: i, generation: c.generation}, true
		}
	}
	return nil, false
}

// RollbackRemove restores a removed record at its original position. If a
// ReplaceAll has happened since the removal, the later snapshot already
// reflects reality and the rollback is a no-op.
func (c *Cache) RollbackRemove(rm *Removed) {
	if rm == nil || rm.generation != c.generation {
		return
	}
	idx := rm.Index
	if idx > len(c.items) {
		idx = len(c.items)
	}
	c.items = append(c.items[:idx], append([]gateway.Record{rm.Record}, c.items[idx:]...)...)
	c.total++
}

// Begin registers a pending mutation for a record id. A second mutation on
// the same id before settle is rejected, not raced.
func (c *Cache) Begin(kind MutationKind, id string) error {
	if p, ok := c.pending[id]; ok {
		return fmt.Errorf("a %s for record %s is still in flight", p.Kind, id)
	}
	c.pending[id] = Pending{Kind: kind, RecordID: id, Started: time.Now()}
	return nil
}

// Settle clears the pending mutation for a record id.
func (c *Cache) Settle(id string) {
	delete(c.pending, id)
}

// PendingFor returns the in-flight mutation for a record, if any.
func (c *Cache) PendingFor(id string) (Pending, bool) {
	p, ok := c.pending[id]
	return p, ok
}
