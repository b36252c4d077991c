package eventbus

import "sync"

var (
	sharedMu  sync.RWMutex
	sharedBus *Bus
)

// InitShared creates the process-wide bus. It returns the existing one if
// it is already initialized, ignoring opts.
func InitShared(opts ...Option) *Bus {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedBus == nil {
		sharedBus = New(opts...)
	}
	return sharedBus
}

// Shared returns the process-wide bus. It panics if InitShared has not been
// called; the shared bus is never created implicitly.
func Shared() *Bus {
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	if sharedBus == nil {
		panic("eventbus: shared bus not initialized, call InitShared first")
	}
	return sharedBus
}

// ShutdownShared closes and forgets the process-wide bus. A later
// InitShared creates a fresh one.
func ShutdownShared() {
	sharedMu.Lock()
	b := sharedBus
	sharedBus = nil
	sharedMu.Unlock()
	if b != nil {
		b.Close()
	}
}
