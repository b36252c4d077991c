package eventbus

import (
	"context"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Post delivers event to every subscription for E that has no object
// filter. It returns once all synchronous deliveries have run.
func Post[E any](b *Bus, event E) {
	PostObject(b, event, nil)
}

// PostObject delivers event together with object. Subscriptions filtered
// on a different object, or on any object when object is nil, are skipped.
func PostObject[E any](b *Bus, event E, object any) {
	if b == nil {
		return
	}
	dispatch(b, event, object)
}

// PostContext is PostObject wrapped in a trace span taken from ctx.
func PostContext[E any](ctx context.Context, b *Bus, event E, object any) {
	if b == nil {
		return
	}
	kind := KindOf[E]()
	_, span := b.tracer.Start(ctx, "eventbus.post",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("eventbus.kind", kind.String()),
			attribute.Bool("eventbus.has_object", object != nil),
		),
	)
	defer span.End()

	r := dispatch(b, event, object)
	span.SetAttributes(
		attribute.Int("eventbus.delivered", r.delivered),
		attribute.Int("eventbus.skipped", r.skipped),
	)
	if r.panicked > 0 {
		span.SetStatus(codes.Error, "handler panicked")
	}
}

type dispatchResult struct {
	delivered int
	skipped   int
	panicked  int
}

func dispatch[E any](b *Bus, event E, object any) dispatchResult {
	var r dispatchResult
	if b.closed.Load() {
		return r
	}
	kind := KindOf[E]()
	label := kind.String()
	b.metrics.RecordPosted(label)

	for _, sub := range b.reg.lookup(kind) {
		if !sub.accepts(object) {
			b.metrics.RecordSkipped(label, SkipObjectMismatch)
			r.skipped++
			continue
		}
		if sub.removed.Load() {
			b.metrics.RecordSkipped(label, SkipRemoved)
			r.skipped++
			continue
		}
		if !sub.owner.resolvable() {
			b.metrics.RecordSkipped(label, SkipOwnerGone)
			b.prune(sub)
			r.skipped++
			continue
		}
		handler, ok := sub.handler.(func(E, any))
		if !ok {
			continue
		}

		if sub.executor == nil {
			if b.invoke(sub, func() { handler(event, object) }) {
				r.delivered++
			} else {
				r.panicked++
			}
			continue
		}

		err := sub.executor.Execute(func() {
			if sub.removed.Load() {
				b.metrics.RecordSkipped(label, SkipRemoved)
				return
			}
			if !sub.owner.resolvable() {
				b.metrics.RecordSkipped(label, SkipOwnerGone)
				b.prune(sub)
				return
			}
			b.invoke(sub, func() { handler(event, object) })
		})
		if err != nil {
			b.metrics.RecordSkipped(label, SkipExecutorRejected)
			b.log.Warn("executor rejected delivery",
				"subscription_id", sub.id,
				"kind", label,
				"error", err,
			)
			r.skipped++
			continue
		}
		r.delivered++
	}
	return r
}

// invoke runs one delivery and recovers a panicking handler so the rest of
// the dispatch pass continues. It reports whether the handler returned
// normally.
func (b *Bus) invoke(sub *subscription, call func()) bool {
	var pc panics.Catcher
	pc.Try(call)
	label := sub.kind.String()
	if rec := pc.Recovered(); rec != nil {
		b.metrics.RecordHandlerPanic(label)
		b.log.Error("event handler panicked",
			"subscription_id", sub.id,
			"kind", label,
			"panic", rec.Value,
			"stack", string(rec.Stack),
		)
		return false
	}
	b.metrics.RecordDelivered(label, executorMode(sub.executor))
	return true
}
