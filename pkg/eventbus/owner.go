package eventbus

import (
	"sync/atomic"
	"weak"
)

// Lifetime is an explicit liveness token. Components embed it and call End
// when they are torn down; registrations owned by the component stop
// receiving events from that point on and are pruned lazily.
//
//	type Screen struct {
//	    eventbus.Lifetime
//	    ...
//	}
type Lifetime struct {
	ended atomic.Bool
}

// Alive reports whether End has not been called yet.
func (l *Lifetime) Alive() bool {
	return !l.ended.Load()
}

// End marks the lifetime as over. Calling it again has no effect.
func (l *Lifetime) End() {
	l.ended.Store(true)
}

type aliver interface {
	Alive() bool
}

// ownerRef is a non-owning reference to whatever holds a subscription.
// key is comparable and identifies the owner for Unregister; alive
// resolves the owner and asks it whether it is still live.
type ownerRef struct {
	key   any
	alive func() bool
}

func (o ownerRef) resolvable() bool {
	if o.alive == nil {
		return true
	}
	return o.alive()
}

func weakOwner[O any](owner *O) ownerRef {
	wp := weak.Make(owner)
	return ownerRef{
		key: wp,
		alive: func() bool {
			v := wp.Value()
			if v == nil {
				return false
			}
			if a, ok := any(v).(aliver); ok {
				return a.Alive()
			}
			return true
		},
	}
}

func ownerKey[O any](owner *O) any {
	return weak.Make(owner)
}
