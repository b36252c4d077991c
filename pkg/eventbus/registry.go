package eventbus

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// entry holds the subscriptions of one kind as an immutable slice that is
// replaced on every change, so readers never see a torn sequence.
type entry struct {
	subs atomic.Pointer[[]*subscription]
}

func (e *entry) load() []*subscription {
	if p := e.subs.Load(); p != nil {
		return *p
	}
	return nil
}

// registry maps kinds to their ordered subscriptions.
type registry struct {
	mu      sync.RWMutex
	entries map[Kind]*entry
	byID    map[string]*subscription

	onChange func(kind Kind, count int)
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[Kind]*entry),
		byID:    make(map[string]*subscription),
	}
}

// add appends sub to the tail of its kind.
func (r *registry) add(sub *subscription) {
	r.mu.Lock()
	e, ok := r.entries[sub.kind]
	if !ok {
		e = &entry{}
		r.entries[sub.kind] = e
	}
	cur := e.load()
	next := make([]*subscription, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, sub)
	e.subs.Store(&next)
	r.byID[sub.id] = sub
	n := len(next)
	r.mu.Unlock()

	r.changed(sub.kind, n)
}

// remove drops sub if it is still present. It reports whether anything
// was removed.
func (r *registry) remove(sub *subscription) bool {
	r.mu.Lock()
	if _, ok := r.byID[sub.id]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.byID, sub.id)
	n := r.dropLocked(sub.kind, func(s *subscription) bool { return s == sub })
	r.mu.Unlock()

	r.changed(sub.kind, n)
	return true
}

// removeWhere drops every subscription of kind matching pred and returns
// them. A zero kind matches all kinds.
func (r *registry) removeWhere(kind Kind, pred func(*subscription) bool) []*subscription {
	var removed []*subscription
	counts := make(map[Kind]int)

	r.mu.Lock()
	for k, e := range r.entries {
		if !kind.IsZero() && k != kind {
			continue
		}
		hit := false
		for _, s := range e.load() {
			if pred(s) {
				removed = append(removed, s)
				delete(r.byID, s.id)
				hit = true
			}
		}
		if hit {
			counts[k] = r.dropLocked(k, pred)
		}
	}
	r.mu.Unlock()

	for k, n := range counts {
		r.changed(k, n)
	}
	return removed
}

// dropLocked rewrites the slice of kind without the subscriptions matching
// pred. Empty entries are pruned. Caller holds r.mu.
func (r *registry) dropLocked(kind Kind, pred func(*subscription) bool) int {
	e, ok := r.entries[kind]
	if !ok {
		return 0
	}
	next := slices.DeleteFunc(slices.Clone(e.load()), pred)
	if len(next) == 0 {
		delete(r.entries, kind)
		return 0
	}
	e.subs.Store(&next)
	return len(next)
}

// lookup returns the subscriptions of kind in registration order. The
// returned slice is never modified afterwards.
func (r *registry) lookup(kind Kind) []*subscription {
	r.mu.RLock()
	e, ok := r.entries[kind]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.load()
}

func (r *registry) count(kind Kind) int {
	return len(r.lookup(kind))
}

// drain removes every subscription and returns them.
func (r *registry) drain() []*subscription {
	r.mu.Lock()
	all := make([]*subscription, 0, len(r.byID))
	kinds := make([]Kind, 0, len(r.entries))
	for k, e := range r.entries {
		all = append(all, e.load()...)
		kinds = append(kinds, k)
	}
	r.entries = make(map[Kind]*entry)
	r.byID = make(map[string]*subscription)
	r.mu.Unlock()

	for _, k := range kinds {
		r.changed(k, 0)
	}
	return all
}

// KindStats describes the subscriptions registered for one kind.
type KindStats struct {
	Kind          string `json:"kind"`
	Subscriptions int    `json:"subscriptions"`
	Filtered      int    `json:"filtered"`
	Async         int    `json:"async"`
}

func (r *registry) stats() []KindStats {
	r.mu.RLock()
	out := make([]KindStats, 0, len(r.entries))
	for k, e := range r.entries {
		ks := KindStats{Kind: k.String()}
		for _, s := range e.load() {
			ks.Subscriptions++
			if s.hasObject {
				ks.Filtered++
			}
			if s.executor != nil {
				ks.Async++
			}
		}
		out = append(out, ks)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func (r *registry) changed(kind Kind, count int) {
	if r.onChange != nil {
		r.onChange(kind, count)
	}
}
