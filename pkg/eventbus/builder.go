package eventbus

// Builder assembles a subscription for events of type E. It is inert: no
// subscription exists until DisposedBy or Commit is called, and a Builder
// without a handler commits nothing.
type Builder[E any] struct {
	bus       *Bus
	object    any
	hasObject bool
	executor  Executor
	handler   func(E, any)
}

// Subscribe starts building a subscription for E on b.
func Subscribe[E any](b *Bus) *Builder[E] {
	return &Builder[E]{bus: b}
}

// ForObject restricts delivery to events posted with ref as their object.
// A nil ref clears the filter.
func (sb *Builder[E]) ForObject(ref any) *Builder[E] {
	sb.object = ref
	sb.hasObject = ref != nil
	return sb
}

// OnQueue sets the executor deliveries run on. A nil executor means
// synchronous delivery on the posting goroutine, which is the default.
func (sb *Builder[E]) OnQueue(e Executor) *Builder[E] {
	sb.executor = e
	return sb
}

// OnEvent sets the handler, which receives the event and the object it was
// posted with.
func (sb *Builder[E]) OnEvent(handler func(event E, object any)) *Builder[E] {
	sb.handler = handler
	return sb
}

// OnNext sets a handler that only needs the event.
func (sb *Builder[E]) OnNext(handler func(event E)) *Builder[E] {
	if handler == nil {
		sb.handler = nil
		return sb
	}
	sb.handler = func(e E, _ any) { handler(e) }
	return sb
}

// DisposedBy commits the subscription and attaches it to bag, which owns it
// from then on. Committing into a disposed bag registers nothing.
func (sb *Builder[E]) DisposedBy(bag *DisposeBag) Token {
	if bag == nil {
		return sb.Commit()
	}
	if !bag.Alive() {
		return Token{}
	}
	sub := sb.build()
	if sub == nil {
		return Token{}
	}
	sub.owner = bag.ref()
	t := sb.bus.insert(sub)
	bag.Add(t)
	return t
}

// Commit registers the subscription without a bag. The caller owns the
// returned Token and must Dispose it.
func (sb *Builder[E]) Commit() Token {
	sub := sb.build()
	if sub == nil {
		return Token{}
	}
	return sb.bus.insert(sub)
}

func (sb *Builder[E]) build() *subscription {
	if sb.bus == nil || sb.handler == nil {
		return nil
	}
	sub := newSubscription(KindOf[E](), sb.handler)
	sub.object = sb.object
	sub.hasObject = sb.hasObject
	sub.executor = sb.executor
	return sub
}
