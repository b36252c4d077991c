// Package lane provides named, bounded execution queues for asynchronous
// event delivery.
//
// A Lane owns a buffered channel and a fixed set of workers. Tasks are plain
// functions. A lane with MaxConcurrency 1 runs its tasks one at a time in
// submission order, which makes it a serial queue suitable for state that
// must not be touched concurrently.
//
// Every Lane satisfies eventbus.Executor, so it can be passed directly to
// Builder.OnQueue or eventbus.WithExecutor:
//
//	l, err := lane.New(&lane.Config{
//	    Name:           "ui",
//	    Capacity:       256,
//	    MaxConcurrency: 1,
//	    Backpressure:   lane.Drop,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close(context.Background())
//
//	eventbus.Subscribe[CountEvent](bus).OnQueue(l).OnNext(render).DisposedBy(bag)
package lane

import (
	"context"
	"fmt"
	"time"
)

// BackpressureStrategy defines how a full lane treats new tasks.
type BackpressureStrategy int

const (
	// Block blocks the submitter until space is available.
	Block BackpressureStrategy = iota
	// Drop rejects the task with TaskDroppedError.
	Drop
	// Redirect hands the task to RedirectLane, dropping it if that fails.
	Redirect
)

// String returns the string representation of BackpressureStrategy.
func (s BackpressureStrategy) String() string {
	switch s {
	case Block:
		return "block"
	case Drop:
		return "drop"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// ParseBackpressure parses "block", "drop" or "redirect".
func ParseBackpressure(s string) (BackpressureStrategy, error) {
	switch s {
	case "block", "":
		return Block, nil
	case "drop":
		return Drop, nil
	case "redirect":
		return Redirect, nil
	default:
		return Block, fmt.Errorf("unknown backpressure strategy %q", s)
	}
}

// Config holds the configuration for a Lane.
type Config struct {
	// Name is the unique name of the lane.
	Name string

	// Capacity is the maximum number of queued tasks.
	Capacity int

	// MaxConcurrency is the number of workers. 1 gives FIFO execution.
	MaxConcurrency int

	// Backpressure is the strategy when the queue is full.
	Backpressure BackpressureStrategy

	// RedirectLane receives overflow when Backpressure is Redirect.
	RedirectLane string

	// RateLimit caps task starts per second, 0 = unlimited.
	RateLimit float64

	// Burst is the rate limiter bucket size. Defaults to MaxConcurrency.
	Burst int
}

// Validate validates the lane configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("lane config cannot be nil")
	}
	if c.Name == "" {
		return fmt.Errorf("lane name cannot be empty")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("lane capacity must be positive, got %d", c.Capacity)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.Backpressure == Redirect {
		if c.RedirectLane == "" {
			return fmt.Errorf("redirect lane must be specified when using redirect strategy")
		}
		if c.RedirectLane == c.Name {
			return fmt.Errorf("lane %s cannot redirect to itself", c.Name)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst cannot be negative")
	}
	return nil
}

// Lane is a named execution queue.
type Lane interface {
	// Name returns the lane name.
	Name() string

	// Execute queues task without a deadline. It implements
	// eventbus.Executor.
	Execute(task func()) error

	// Submit queues task. With Block backpressure it waits until there is
	// room or ctx is done.
	Submit(ctx context.Context, task func()) error

	// Stats returns current lane statistics.
	Stats() Stats

	// Close stops accepting tasks, runs what is queued and waits for the
	// workers, or for ctx.
	Close(ctx context.Context) error

	// IsClosed returns true if the lane is closed.
	IsClosed() bool
}

// Stats holds statistics for a Lane.
type Stats struct {
	Name           string        `json:"name"`
	Pending        int           `json:"pending"`
	Running        int           `json:"running"`
	Completed      int64         `json:"completed"`
	Panicked       int64         `json:"panicked"`
	Dropped        int64         `json:"dropped"`
	Redirected     int64         `json:"redirected"`
	Capacity       int           `json:"capacity"`
	MaxConcurrency int           `json:"max_concurrency"`
	WaitTime       time.Duration `json:"wait_time"`
	ProcessTime    time.Duration `json:"process_time"`
}

// Utilization returns the current utilization ratio (0.0 - 1.0).
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Pending+s.Running) / float64(s.Capacity+s.MaxConcurrency)
}

// IsFull returns true if the lane queue is at capacity.
func (s Stats) IsFull() bool {
	return s.Pending >= s.Capacity
}

// String returns a human-readable string representation of Stats.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats{Name: %s, Pending: %d, Running: %d, Completed: %d, Panicked: %d, Dropped: %d, Redirected: %d, Utilization: %.2f%%}",
		s.Name, s.Pending, s.Running, s.Completed, s.Panicked, s.Dropped, s.Redirected, s.Utilization()*100,
	)
}
