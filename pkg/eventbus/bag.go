package eventbus

import (
	"context"
	"sync"
)

// DisposeBag collects the subscriptions owned by one component and removes
// all of them when it is disposed. Subscriptions committed through
// Builder.DisposedBy use the bag as their owner, so they stop receiving
// events as soon as Dispose starts.
type DisposeBag struct {
	mu       sync.Mutex
	tokens   []Token
	disposed bool

	owner    ownerRef
	stopBind func() bool
}

// NewDisposeBag returns an empty bag.
func NewDisposeBag() *DisposeBag {
	return &DisposeBag{}
}

// Add attaches t to the bag and reports whether it was accepted. A token
// already held by another bag is rejected. Adding to a disposed bag
// disposes t right away.
func (b *DisposeBag) Add(t Token) bool {
	if t.sub == nil {
		return false
	}

	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		t.Dispose()
		return false
	}
	if !t.sub.bag.CompareAndSwap(nil, b) {
		b.mu.Unlock()
		if t.sub.bag.Load() != b && t.bus != nil {
			t.bus.log.Warn("subscription already belongs to another dispose bag",
				"subscription_id", t.sub.id,
				"kind", t.sub.kind.String(),
			)
		}
		return false
	}
	b.tokens = append(b.tokens, t)
	b.mu.Unlock()
	return true
}

// Dispose removes every subscription in the bag from its bus before
// returning. Later calls are no-ops.
func (b *DisposeBag) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	tokens := b.tokens
	b.tokens = nil
	stop := b.stopBind
	b.stopBind = nil
	b.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, t := range tokens {
		t.Dispose()
	}
}

// Alive reports whether the bag can still hold live subscriptions: it has
// not been disposed and, for bags obtained from BagFor, its owner is still
// resolvable.
func (b *DisposeBag) Alive() bool {
	b.mu.Lock()
	disposed := b.disposed
	b.mu.Unlock()
	if disposed {
		return false
	}
	return b.owner.resolvable()
}

// Len returns the number of subscriptions held.
func (b *DisposeBag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

// Tokens returns a copy of the held tokens in insertion order.
func (b *DisposeBag) Tokens() []Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Token, len(b.tokens))
	copy(out, b.tokens)
	return out
}

// BindContext disposes the bag when ctx is done. Binding again replaces the
// previous context.
func (b *DisposeBag) BindContext(ctx context.Context) {
	stop := context.AfterFunc(ctx, b.Dispose)

	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		stop()
		return
	}
	prev := b.stopBind
	b.stopBind = stop
	b.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (b *DisposeBag) ref() ownerRef {
	return ownerRef{key: b, alive: b.Alive}
}
