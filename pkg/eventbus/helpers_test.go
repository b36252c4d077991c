package eventbus

import (
	"sync"

	"github.com/goclaw/typedbus/pkg/logger"
)

type CountEvent struct {
	Count int
}

type MediaLikedChangedEvent struct {
	MediaID string
	Liked   bool
}

type component struct {
	Lifetime
	name string
}

// recorder collects deliveries in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func newTestBus(opts ...Option) *Bus {
	return New(append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

// countingMetrics is a MetricsRecorder that keeps plain counters.
type countingMetrics struct {
	mu        sync.Mutex
	posted    map[string]int
	delivered map[string]int
	skipped   map[string]int
	panics    map[string]int
	subs      map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		posted:    map[string]int{},
		delivered: map[string]int{},
		skipped:   map[string]int{},
		panics:    map[string]int{},
		subs:      map[string]int{},
	}
}

func (m *countingMetrics) RecordPosted(kind string) {
	m.mu.Lock()
	m.posted[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordDelivered(kind, mode string) {
	m.mu.Lock()
	m.delivered[kind+"/"+mode]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordSkipped(kind, reason string) {
	m.mu.Lock()
	m.skipped[reason]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordHandlerPanic(kind string) {
	m.mu.Lock()
	m.panics[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) SetSubscriptions(kind string, count int) {
	m.mu.Lock()
	m.subs[kind] = count
	m.mu.Unlock()
}

func (m *countingMetrics) get(table map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return table[key]
}
