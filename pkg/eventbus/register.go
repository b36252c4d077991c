package eventbus

// RegisterOption customizes a direct registration.
type RegisterOption func(*subscription)

// WithObject restricts delivery to events posted with ref as their object.
// A nil ref leaves the registration unfiltered.
func WithObject(ref any) RegisterOption {
	return func(s *subscription) {
		if ref != nil {
			s.object = ref
			s.hasObject = true
		}
	}
}

// WithExecutor delivers on e instead of the posting goroutine.
func WithExecutor(e Executor) RegisterOption {
	return func(s *subscription) {
		s.executor = e
	}
}

// Register subscribes owner to events of type E. The registration has no
// object filter and is synchronous unless options say otherwise. It stays
// until Unregister, UnregisterOwner, or until owner is released or reports
// Alive() == false.
//
// The bus only keeps a weak reference to owner. Note that a handler closing
// over owner keeps it reachable for as long as the registration exists.
func Register[E any, O any](b *Bus, owner *O, handler func(event E, object any), opts ...RegisterOption) Token {
	if b == nil || owner == nil || handler == nil {
		return Token{}
	}
	sub := newSubscription(KindOf[E](), handler)
	sub.owner = weakOwner(owner)
	sub.direct = true
	for _, opt := range opts {
		opt(sub)
	}
	return b.insert(sub)
}

// Unregister removes every direct registration of owner for E. It is a
// no-op when there is none.
func Unregister[E any, O any](b *Bus, owner *O) {
	if b == nil || owner == nil {
		return
	}
	key := ownerKey(owner)
	b.unregister(KindOf[E](), func(s *subscription) bool {
		return s.direct && s.owner.key == key
	})
}

// UnregisterObject removes the direct registrations of owner for E whose
// object filter is ref. A nil ref selects the unfiltered registrations.
func UnregisterObject[E any, O any](b *Bus, owner *O, ref any) {
	if b == nil || owner == nil {
		return
	}
	key := ownerKey(owner)
	b.unregister(KindOf[E](), func(s *subscription) bool {
		if !s.direct || s.owner.key != key {
			return false
		}
		if ref == nil {
			return !s.hasObject
		}
		return s.hasObject && sameObject(s.object, ref)
	})
}

// UnregisterOwner removes all direct registrations of owner, for every
// kind, and disposes the bag returned by BagFor for owner.
func UnregisterOwner[O any](b *Bus, owner *O) {
	if b == nil || owner == nil {
		return
	}
	key := ownerKey(owner)
	b.unregister(Kind{}, func(s *subscription) bool {
		return s.direct && s.owner.key == key
	})

	b.bagsMu.Lock()
	bag, ok := b.bags[key]
	delete(b.bags, key)
	b.bagsMu.Unlock()
	if ok {
		bag.Dispose()
	}
}

func (b *Bus) unregister(kind Kind, pred func(*subscription) bool) {
	removed := b.reg.removeWhere(kind, pred)
	for _, s := range removed {
		s.removed.Store(true)
	}
	if len(removed) > 0 {
		b.log.Debug("unregistered subscriptions", "kind", kind.String(), "count", len(removed))
	}
}

// BagFor returns the dispose bag the bus keeps for owner, creating it on
// first use or after the previous one was disposed. The bag reports itself
// dead once owner is released or stops being Alive, which prunes the
// subscriptions committed into it.
func BagFor[O any](b *Bus, owner *O) *DisposeBag {
	if b == nil || owner == nil {
		return nil
	}
	ref := weakOwner(owner)

	b.bagsMu.Lock()
	defer b.bagsMu.Unlock()
	if bag, ok := b.bags[ref.key]; ok && bag.Alive() {
		return bag
	}
	bag := &DisposeBag{owner: ref}
	if b.closed.Load() {
		bag.disposed = true
		return bag
	}
	b.bags[ref.key] = bag
	return bag
}
