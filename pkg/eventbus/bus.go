package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/goclaw/typedbus/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goclaw/typedbus/pkg/eventbus"

// Bus routes typed events from producers to subscriptions. A Bus is safe
// for concurrent use; handlers always run outside of its locks and may
// re-enter it.
type Bus struct {
	reg     *registry
	log     logger.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
	closed  atomic.Bool

	bagsMu sync.Mutex
	bags   map[any]*DisposeBag
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for registration, pruning and handler
// panic reports.
func WithLogger(l logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMetrics sets the recorder for bus activity.
func WithMetrics(m MetricsRecorder) Option {
	return func(b *Bus) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithTracerProvider sets the provider used by PostContext. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Bus) {
		if tp != nil {
			b.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		reg:     newRegistry(),
		log:     logger.Global().With("component", "eventbus"),
		metrics: nopMetrics{},
		tracer:  otel.Tracer(tracerName),
		bags:    make(map[any]*DisposeBag),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.reg.onChange = func(kind Kind, count int) {
		b.metrics.SetSubscriptions(kind.String(), count)
	}
	return b
}

// insert makes sub live and returns its token. A closed bus accepts
// nothing and returns the zero Token.
func (b *Bus) insert(sub *subscription) Token {
	if b.closed.Load() {
		b.log.Debug("subscription ignored on closed bus", "kind", sub.kind.String())
		return Token{}
	}
	b.reg.add(sub)
	b.log.Debug("subscription added",
		"subscription_id", sub.id,
		"kind", sub.kind.String(),
		"direct", sub.direct,
		"filtered", sub.hasObject,
		"mode", executorMode(sub.executor),
	)
	return Token{sub: sub, bus: b}
}

func (b *Bus) remove(sub *subscription) {
	sub.removed.Store(true)
	if b.reg.remove(sub) {
		b.log.Debug("subscription removed", "subscription_id", sub.id, "kind", sub.kind.String())
	}
}

// prune removes a subscription whose owner can no longer be resolved and
// disposes the owner's bag once the owner itself is gone.
func (b *Bus) prune(sub *subscription) {
	sub.removed.Store(true)
	if b.reg.remove(sub) {
		b.log.Warn("pruned subscription of released owner",
			"subscription_id", sub.id,
			"kind", sub.kind.String(),
		)
	}

	key := sub.owner.key
	if bag, ok := key.(*DisposeBag); ok {
		key = bag.owner.key
	}
	if key == nil {
		return
	}
	b.bagsMu.Lock()
	bag, ok := b.bags[key]
	if ok && !bag.owner.resolvable() {
		delete(b.bags, key)
	} else {
		bag = nil
	}
	b.bagsMu.Unlock()
	if bag != nil {
		bag.Dispose()
	}
}

// Close removes every subscription and disposes every owner bag. After
// Close, posts are dropped and new subscriptions are ignored. Closing twice
// is a no-op.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	for _, sub := range b.reg.drain() {
		sub.removed.Store(true)
	}

	b.bagsMu.Lock()
	bags := b.bags
	b.bags = make(map[any]*DisposeBag)
	b.bagsMu.Unlock()
	for _, bag := range bags {
		bag.Dispose()
	}
	b.log.Debug("bus closed")
}

// Healthy reports whether the bus has not been closed.
func (b *Bus) Healthy() bool {
	return !b.closed.Load()
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Subscriptions int         `json:"subscriptions"`
	OwnerBags     int         `json:"owner_bags"`
	Kinds         []KindStats `json:"kinds"`
}

// Stats returns the current registry contents, ordered by kind name.
func (b *Bus) Stats() Stats {
	kinds := b.reg.stats()
	st := Stats{Kinds: kinds}
	for _, k := range kinds {
		st.Subscriptions += k.Subscriptions
	}
	b.bagsMu.Lock()
	st.OwnerBags = len(b.bags)
	b.bagsMu.Unlock()
	return st
}

// HasSubscribers reports whether any subscription is registered for E.
// Producers can use it to skip building expensive events.
func HasSubscribers[E any](b *Bus) bool {
	return b.reg.count(KindOf[E]()) > 0
}
