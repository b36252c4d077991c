// Package eventbus provides an in-process, strongly typed publish/subscribe bus.
//
// An event kind is a Go type. Producers post values of that type and every
// subscription registered for the same type receives them, in registration
// order, on the subscription's executor. Subscriptions are created either by
// direct registration against an owner:
//
//	eventbus.Register(b, screen, func(e CountEvent, _ any) {
//	    screen.setCount(e.Count)
//	})
//	defer eventbus.Unregister[CountEvent](b, screen)
//
// or through the fluent builder, committed into a DisposeBag:
//
//	bag := eventbus.NewDisposeBag()
//	defer bag.Dispose()
//
//	eventbus.Subscribe[CountEvent](b).
//	    ForObject(counter).
//	    OnQueue(uiLane).
//	    OnEvent(func(e CountEvent, obj any) { ... }).
//	    DisposedBy(bag)
//
//	eventbus.PostObject(b, CountEvent{Count: 1}, counter)
//
// A builder does nothing until DisposedBy or Commit is called.
//
// The registry never holds an owner by itself: owners are tracked through
// weak pointers and, when they implement Alive() bool (for example by
// embedding Lifetime), through that explicit liveness check. Registrations
// whose owner is gone are skipped and pruned the next time their kind is
// dispatched.
package eventbus
