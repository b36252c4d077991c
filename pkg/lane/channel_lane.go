package lane

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goclaw/typedbus/pkg/logger"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/time/rate"
)

// MetricsRecorder defines the interface for recording lane metrics.
type MetricsRecorder interface {
	IncQueueDepth(laneName string)
	DecQueueDepth(laneName string)
	RecordWaitDuration(laneName string, duration time.Duration)
	RecordThroughput(laneName string)
	RecordDropped(laneName string)
}

// ChannelLane implements Lane on a buffered channel and a WorkerPool.
type ChannelLane struct {
	config  *Config
	taskCh  chan task
	pool    *WorkerPool
	limiter *rate.Limiter
	metrics MetricsRecorder
	log     logger.Logger

	// limiterCtx is cancelled on Close so queued tasks drain without
	// waiting for tokens.
	limiterCtx    context.Context
	cancelLimiter context.CancelFunc

	// closeMu orders enqueues before Close: senders hold it for reading
	// while they check closed and send, Close sets closed under the write
	// lock before stopping the workers.
	closeMu   sync.RWMutex
	closed    atomic.Bool
	closeCh   chan struct{}
	closeOnce sync.Once

	manager *Manager

	pending    atomic.Int32
	running    atomic.Int32
	completed  atomic.Int64
	panicked   atomic.Int64
	dropped    atomic.Int64
	redirected atomic.Int64

	totalWait    atomic.Int64 // nanoseconds
	totalProcess atomic.Int64 // nanoseconds
	taskCount    atomic.Int64
}

// New creates and starts a ChannelLane.
func New(config *Config) (*ChannelLane, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	l := &ChannelLane{
		config:  config,
		taskCh:  make(chan task, config.Capacity),
		closeCh: make(chan struct{}),
		metrics: nopMetrics{},
		log:     logger.Global().With("component", "lane", "lane", config.Name),
	}
	l.limiterCtx, l.cancelLimiter = context.WithCancel(context.Background())

	if config.RateLimit > 0 {
		burst := config.Burst
		if burst == 0 {
			burst = config.MaxConcurrency
		}
		l.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	l.pool = NewWorkerPool(config.MaxConcurrency, l.taskCh, l.executeTask)
	l.pool.Start()

	return l, nil
}

// Name returns the lane name.
func (l *ChannelLane) Name() string {
	return l.config.Name
}

// Execute queues task with no deadline.
func (l *ChannelLane) Execute(fn func()) error {
	return l.Submit(context.Background(), fn)
}

// Submit queues fn according to the backpressure strategy:
//   - Block: waits until space is available or ctx is done
//   - Drop: returns TaskDroppedError if the queue is full
//   - Redirect: submits to RedirectLane if the queue is full
func (l *ChannelLane) Submit(ctx context.Context, fn func()) error {
	if fn == nil {
		return fmt.Errorf("task cannot be nil")
	}

	t := task{fn: fn, enqueuedAt: time.Now()}
	switch l.config.Backpressure {
	case Drop:
		return l.submitDrop(t)
	case Redirect:
		return l.submitRedirect(ctx, t)
	default:
		return l.submitBlock(ctx, t)
	}
}

func (l *ChannelLane) submitBlock(ctx context.Context, t task) error {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed.Load() {
		return &LaneClosedError{LaneName: l.config.Name}
	}

	select {
	case l.taskCh <- t:
		l.accepted()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closeCh:
		return &LaneClosedError{LaneName: l.config.Name}
	}
}

func (l *ChannelLane) submitDrop(t task) error {
	ok, err := l.offer(t)
	if err != nil || ok {
		return err
	}
	return l.drop()
}

func (l *ChannelLane) submitRedirect(ctx context.Context, t task) error {
	ok, err := l.offer(t)
	if err != nil || ok {
		return err
	}
	if l.redirect(ctx, t) {
		l.redirected.Add(1)
		return nil
	}
	return l.drop()
}

// redirect hands t to the redirect lane. Another ChannelLane only gets a
// non-blocking attempt so two lanes redirecting to each other cannot loop.
func (l *ChannelLane) redirect(ctx context.Context, t task) bool {
	if l.manager == nil {
		return false
	}
	target, err := l.manager.Get(l.config.RedirectLane)
	if err != nil {
		return false
	}
	if cl, ok := target.(*ChannelLane); ok {
		accepted, err := cl.offer(t)
		return err == nil && accepted
	}
	return target.Submit(ctx, t.fn) == nil
}

// offer enqueues t without blocking and reports whether there was room.
func (l *ChannelLane) offer(t task) (bool, error) {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed.Load() {
		return false, &LaneClosedError{LaneName: l.config.Name}
	}
	return l.tryEnqueue(t), nil
}

func (l *ChannelLane) tryEnqueue(t task) bool {
	select {
	case l.taskCh <- t:
		l.accepted()
		return true
	default:
		return false
	}
}

func (l *ChannelLane) accepted() {
	l.pending.Add(1)
	l.metrics.IncQueueDepth(l.config.Name)
}

func (l *ChannelLane) drop() error {
	l.dropped.Add(1)
	l.metrics.RecordDropped(l.config.Name)
	return &TaskDroppedError{LaneName: l.config.Name, Capacity: l.config.Capacity}
}

// executeTask is called by the worker pool for every dequeued task.
func (l *ChannelLane) executeTask(t task) {
	l.pending.Add(-1)
	l.metrics.DecQueueDepth(l.config.Name)

	wait := time.Since(t.enqueuedAt)
	l.totalWait.Add(int64(wait))
	l.metrics.RecordWaitDuration(l.config.Name, wait)

	if l.limiter != nil {
		_ = l.limiter.Wait(l.limiterCtx)
	}

	l.running.Add(1)
	defer l.running.Add(-1)

	start := time.Now()
	var pc panics.Catcher
	pc.Try(t.fn)
	l.totalProcess.Add(int64(time.Since(start)))
	l.taskCount.Add(1)

	if rec := pc.Recovered(); rec != nil {
		l.panicked.Add(1)
		l.log.Error("lane task panicked", "panic", rec.Value, "stack", string(rec.Stack))
	} else {
		l.completed.Add(1)
	}
	l.metrics.RecordThroughput(l.config.Name)
}

// Stats returns current lane statistics.
func (l *ChannelLane) Stats() Stats {
	stats := Stats{
		Name:           l.config.Name,
		Pending:        int(l.pending.Load()),
		Running:        int(l.running.Load()),
		Completed:      l.completed.Load(),
		Panicked:       l.panicked.Load(),
		Dropped:        l.dropped.Load(),
		Redirected:     l.redirected.Load(),
		Capacity:       l.config.Capacity,
		MaxConcurrency: l.config.MaxConcurrency,
	}
	if n := l.taskCount.Load(); n > 0 {
		stats.WaitTime = time.Duration(l.totalWait.Load() / n)
		stats.ProcessTime = time.Duration(l.totalProcess.Load() / n)
	}
	return stats
}

// Close stops accepting tasks and waits for queued ones to run.
func (l *ChannelLane) Close(ctx context.Context) error {
	var closeErr error

	l.closeOnce.Do(func() {
		// Wake blocked senders first so the write lock can be taken.
		close(l.closeCh)
		l.closeMu.Lock()
		l.closed.Store(true)
		l.closeMu.Unlock()
		l.cancelLimiter()

		done := make(chan struct{})
		go func() {
			l.pool.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			closeErr = ctx.Err()
		}
	})

	return closeErr
}

// IsClosed returns true if the lane is closed.
func (l *ChannelLane) IsClosed() bool {
	return l.closed.Load()
}

// SetManager sets the manager used to resolve RedirectLane.
func (l *ChannelLane) SetManager(m *Manager) {
	l.manager = m
}

// SetMetrics sets the metrics recorder for the lane.
func (l *ChannelLane) SetMetrics(m MetricsRecorder) {
	if m != nil {
		l.metrics = m
	}
}

// SetLogger sets the logger used for task panics.
func (l *ChannelLane) SetLogger(log logger.Logger) {
	if log != nil {
		l.log = log.With("lane", l.config.Name)
	}
}

type nopMetrics struct{}

func (nopMetrics) IncQueueDepth(string)                     {}
func (nopMetrics) DecQueueDepth(string)                     {}
func (nopMetrics) RecordWaitDuration(string, time.Duration) {}
func (nopMetrics) RecordThroughput(string)                  {}
func (nopMetrics) RecordDropped(string)                     {}
