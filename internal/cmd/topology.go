package cmd

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goclaw/typedbus/pkg/eventbus"
	"github.com/goclaw/typedbus/pkg/logger"
)

// CountEvent is posted by the ticker on every tick.
type CountEvent struct {
	Count int
}

// MediaLikedChangedEvent is posted by the ticker on every third tick.
type MediaLikedChangedEvent struct {
	MediaID string
	Liked   bool
}

// ticker is the object the producer posts CountEvent for.
type ticker struct {
	name string
}

// counterScreen follows the ticker through a filtered builder
// subscription held in its bag.
type counterScreen struct {
	eventbus.Lifetime

	log  logger.Logger
	last atomic.Int64
	seen atomic.Int64
}

func (s *counterScreen) onCount(e CountEvent, _ any) {
	s.last.Store(int64(e.Count))
	s.seen.Add(1)
	s.log.Debug("count", "value", e.Count)
}

// likesPanel registers directly and keeps the latest like state per media.
type likesPanel struct {
	eventbus.Lifetime

	log   logger.Logger
	mu    sync.Mutex
	liked map[string]bool
}

func (p *likesPanel) onLiked(e MediaLikedChangedEvent, _ any) {
	p.mu.Lock()
	p.liked[e.MediaID] = e.Liked
	p.mu.Unlock()
	p.log.Debug("media like changed", "media_id", e.MediaID, "liked", e.Liked)
}

func (p *likesPanel) snapshot() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]bool, len(p.liked))
	for k, v := range p.liked {
		out[k] = v
	}
	return out
}

// topology is the demo producer/consumer wiring started by the run command.
type topology struct {
	bus    *eventbus.Bus
	log    logger.Logger
	source *ticker
	screen *counterScreen
	panel  *likesPanel
	bag    *eventbus.DisposeBag
	audit  eventbus.Token
	posted atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// startTopology subscribes the demo consumers and starts posting every
// interval until Stop or ctx is done. Asynchronous deliveries go through
// exec; a nil exec delivers inline.
func startTopology(ctx context.Context, bus *eventbus.Bus, exec eventbus.Executor, log logger.Logger, interval time.Duration) *topology {
	t := &topology{
		bus:    bus,
		log:    log.With("component", "topology"),
		source: &ticker{name: "ticker"},
		done:   make(chan struct{}),
	}
	t.screen = &counterScreen{log: t.log.With("consumer", "counter_screen")}
	t.panel = &likesPanel{log: t.log.With("consumer", "likes_panel"), liked: make(map[string]bool)}

	t.bag = eventbus.BagFor(bus, t.screen)
	eventbus.Subscribe[CountEvent](bus).
		ForObject(t.source).
		OnQueue(exec).
		OnEvent(t.screen.onCount).
		DisposedBy(t.bag)

	eventbus.Register(bus, t.panel, t.panel.onLiked, eventbus.WithExecutor(exec))

	auditLog := t.log.With("consumer", "audit")
	t.audit = eventbus.Subscribe[CountEvent](bus).
		OnNext(func(e CountEvent) {
			if e.Count%10 == 0 {
				auditLog.Info("ticker progress", "count", e.Count)
			}
		}).
		Commit()

	ctx, t.cancel = context.WithCancel(ctx)
	go t.produce(ctx, interval)
	return t
}

func (t *topology) produce(ctx context.Context, interval time.Duration) {
	defer close(t.done)

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		eventbus.PostContext(ctx, t.bus, CountEvent{Count: n}, t.source)
		if n%3 == 0 {
			eventbus.PostContext(ctx, t.bus, MediaLikedChangedEvent{
				MediaID: fmt.Sprintf("media-%d", n%4),
				Liked:   n%2 == 0,
			}, nil)
		}
		t.posted.Store(int64(n))
	}
}

// Stop ends the producer and tears the consumers down, each the way its
// subscription was made.
func (t *topology) Stop() {
	t.once.Do(func() {
		t.cancel()
		<-t.done

		t.screen.End()
		t.bag.Dispose()
		eventbus.UnregisterOwner(t.bus, t.panel)
		t.audit.Dispose()

		t.log.Info("topology stopped",
			"posted", t.posted.Load(),
			"screen_seen", t.screen.seen.Load(),
			"media_tracked", len(t.panel.snapshot()),
		)
	})
}
