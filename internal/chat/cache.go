package chat

import (
	"context"
	"sync"
)

// Cache holds, per session id, an ordered sequence of messages. It is the
// single source of truth for rendering. All mutations go through the
// documented entry points; no network access happens here.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	partitions map[string][]Message
	refreshes  map[string]refreshState
	subs       map[int]func(sessionID string)
	nextSub    int
}

// refreshState tracks one registered background refetch. The context is kept
// so EndRefresh can tell its own registration from a newer one.
type refreshState struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		partitions: make(map[string][]Message),
		refreshes:  make(map[string]refreshState),
		subs:       make(map[int]func(string)),
	}
}

// Get returns a copy of the session's ordered message list. Empty if the
// session has no cached entries.
func (c *Cache) Get(sessionID string) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msgs := c.partitions[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the number of cached messages for the session.
func (c *Cache) Len(sessionID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.partitions[sessionID])
}

// Set replaces the session's cached list wholesale. Used for snapshot
// restore and full-list reconciliation.
func (c *Cache) Set(sessionID string, msgs []Message) {
	c.mu.Lock()
	stored := make([]Message, len(msgs))
	copy(stored, msgs)
	c.partitions[sessionID] = stored
	c.mu.Unlock()
	c.notify(sessionID)
}

// SetFromRefresh applies a background refetch result, unless the refresh
// context was cancelled in the meantime (a send started and took ownership
// of the partition). Returns false if the result was discarded.
func (c *Cache) SetFromRefresh(ctx context.Context, sessionID string, msgs []Message) bool {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	stored := make([]Message, len(msgs))
	copy(stored, msgs)
	c.partitions[sessionID] = stored
	c.mu.Unlock()
	c.notify(sessionID)
	return true
}

// Append adds a message to the tail of the session's list.
func (c *Cache) Append(sessionID string, msg Message) {
	c.mu.Lock()
	c.partitions[sessionID] = append(c.partitions[sessionID], msg)
	c.mu.Unlock()
	c.notify(sessionID)
}

// Replace finds the entry whose id equals id and replaces it in place.
// A missing id is a silent no-op: the pending entry may already have been
// evicted by an unrelated invalidation, and that must not fail the commit.
func (c *Cache) Replace(sessionID, id string, msg Message) {
	c.mu.Lock()
	replaced := false
	msgs := c.partitions[sessionID]
	for i := range msgs {
		if msgs[i].ID == id {
			msgs[i] = msg
			replaced = true
			break
		}
	}
	c.mu.Unlock()
	if replaced {
		c.notify(sessionID)
	}
}

// Remove deletes the entry with the given id, preserving the order of the
// remaining entries. Missing ids are a no-op.
func (c *Cache) Remove(sessionID, id string) {
	c.mu.Lock()
	removed := false
	msgs := c.partitions[sessionID]
	for i := range msgs {
		if msgs[i].ID == id {
			c.partitions[sessionID] = append(msgs[:i], msgs[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()
	if removed {
		c.notify(sessionID)
	}
}

// Purge drops the session's entire partition and cancels any in-flight
// refresh for it. Called when the owning session is deleted.
func (c *Cache) Purge(sessionID string) {
	c.mu.Lock()
	delete(c.partitions, sessionID)
	r := c.refreshes[sessionID]
	delete(c.refreshes, sessionID)
	c.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	c.notify(sessionID)
}

// Has reports whether the cache holds a partition for the session.
func (c *Cache) Has(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.partitions[sessionID]
	return ok
}

// BeginRefresh registers a background refetch for the session and returns
// the context the fetch must use. Any previous refresh for the same session
// is cancelled first; CancelRefresh (or a newer BeginRefresh) cancels this
// one.
func (c *Cache) BeginRefresh(ctx context.Context, sessionID string) context.Context {
	rctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if prev := c.refreshes[sessionID]; prev.cancel != nil {
		prev.cancel()
	}
	c.refreshes[sessionID] = refreshState{ctx: rctx, cancel: cancel}
	c.mu.Unlock()
	return rctx
}

// EndRefresh releases the registration for a settled refetch, cancelling its
// context. A registration that was already replaced by a newer BeginRefresh
// is left alone, so a slow refresh cannot cancel its successor.
func (c *Cache) EndRefresh(ctx context.Context, sessionID string) {
	c.mu.Lock()
	r := c.refreshes[sessionID]
	if r.ctx != ctx {
		c.mu.Unlock()
		return
	}
	delete(c.refreshes, sessionID)
	c.mu.Unlock()
	r.cancel()
}

// CancelRefresh cancels the session's in-flight refetch, if any. Mutators
// call this before an optimistic insert so a stale refetch cannot overwrite
// the pending entry.
func (c *Cache) CancelRefresh(sessionID string) {
	c.mu.Lock()
	r := c.refreshes[sessionID]
	delete(c.refreshes, sessionID)
	c.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Subscribe registers fn to be called with the session id after every cache
// mutation. Returns an unsubscribe function. Callbacks run on the mutating
// goroutine and must not block.
func (c *Cache) Subscribe(fn func(sessionID string)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// notify invokes subscribers outside the cache lock so a subscriber may read
// the cache without deadlocking.
func (c *Cache) notify(sessionID string) {
	c.mu.RLock()
	fns := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(sessionID)
	}
}
