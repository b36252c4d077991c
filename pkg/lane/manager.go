package lane

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goclaw/typedbus/pkg/logger"
)

// Manager keeps the named lanes of a process.
type Manager struct {
	mu      sync.RWMutex
	lanes   map[string]Lane
	metrics MetricsRecorder
	log     logger.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics sets the recorder handed to every lane the manager creates.
func WithMetrics(m MetricsRecorder) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithLogger sets the logger handed to every lane the manager creates.
func WithLogger(l logger.Logger) ManagerOption {
	return func(mgr *Manager) {
		mgr.log = l
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{lanes: make(map[string]Lane)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates, starts and registers a ChannelLane.
func (m *Manager) Register(config *Config) (*ChannelLane, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.lanes[config.Name]; exists {
		return nil, &DuplicateLaneError{LaneName: config.Name}
	}

	l, err := New(config)
	if err != nil {
		return nil, err
	}
	l.SetManager(m)
	l.SetMetrics(m.metrics)
	l.SetLogger(m.log)

	m.lanes[config.Name] = l
	return l, nil
}

// RegisterLane registers an existing lane.
func (m *Manager) RegisterLane(l Lane) error {
	if l == nil {
		return fmt.Errorf("lane cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.lanes[l.Name()]; exists {
		return &DuplicateLaneError{LaneName: l.Name()}
	}
	m.lanes[l.Name()] = l
	return nil
}

// Get returns a lane by name.
func (m *Manager) Get(name string) (Lane, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.lanes[name]
	if !ok {
		return nil, &LaneNotFoundError{LaneName: name}
	}
	return l, nil
}

// Unregister closes a lane and removes it.
func (m *Manager) Unregister(ctx context.Context, name string) error {
	m.mu.Lock()
	l, ok := m.lanes[name]
	delete(m.lanes, name)
	m.mu.Unlock()

	if !ok {
		return &LaneNotFoundError{LaneName: name}
	}
	if err := l.Close(ctx); err != nil {
		return fmt.Errorf("close lane %s: %w", name, err)
	}
	return nil
}

// Names returns the registered lane names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.lanes))
	for name := range m.lanes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns the statistics of every lane, sorted by name.
func (m *Manager) Stats() []Stats {
	m.mu.RLock()
	out := make([]Stats, 0, len(m.lanes))
	for _, l := range m.lanes {
		out = append(out, l.Stats())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close closes every lane and empties the manager.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	lanes := m.lanes
	m.lanes = make(map[string]Lane)
	m.mu.Unlock()

	var errs []error
	for name, l := range lanes {
		if err := l.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close lane %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
