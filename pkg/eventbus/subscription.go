package eventbus

import (
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
)

// subscription is one registered interest in a kind. It is immutable after
// insertion except for the removed flag and the bag it has been attached to.
type subscription struct {
	id   string
	kind Kind

	owner  ownerRef
	direct bool

	object    any
	hasObject bool

	executor Executor

	// handler is a func(E, any) for the subscription's kind.
	handler any

	removed atomic.Bool
	bag     atomic.Pointer[DisposeBag]
}

func newSubscription(kind Kind, handler any) *subscription {
	return &subscription{
		id:      uuid.NewString(),
		kind:    kind,
		handler: handler,
	}
}

// accepts reports whether an event posted with object passes the filter.
func (s *subscription) accepts(object any) bool {
	if !s.hasObject {
		return true
	}
	return sameObject(s.object, object)
}

// sameObject compares two filter objects by identity. Values that cannot
// be compared never match, including comparable structs and arrays whose
// interface fields hold slices, maps or funcs.
func sameObject(a, b any) (same bool) {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Token is the handle of a live subscription. The zero Token is valid and
// every method on it is a no-op.
type Token struct {
	sub *subscription
	bus *Bus
}

// ID returns the unique id of the subscription, or "" for the zero Token.
func (t Token) ID() string {
	if t.sub == nil {
		return ""
	}
	return t.sub.id
}

// Kind returns the event kind the subscription listens for.
func (t Token) Kind() Kind {
	if t.sub == nil {
		return Kind{}
	}
	return t.sub.kind
}

// Active reports whether the subscription is still registered.
func (t Token) Active() bool {
	return t.sub != nil && !t.sub.removed.Load()
}

// Dispose removes the subscription from the bus. Deliveries that have not
// started yet are dropped, including ones already queued on an executor.
// Disposing twice is a no-op.
func (t Token) Dispose() {
	if t.sub == nil || t.bus == nil {
		return
	}
	t.bus.remove(t.sub)
}

// DisposedBy ties the subscription to bag. A subscription belongs to at
// most one bag; attaching it to a second one is ignored. If bag has already
// been disposed the subscription is disposed immediately.
func (t Token) DisposedBy(bag *DisposeBag) {
	if bag == nil {
		return
	}
	bag.Add(t)
}
