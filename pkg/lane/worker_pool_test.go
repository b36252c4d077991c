package lane

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_StopRunsQueuedTasks(t *testing.T) {
	ch := make(chan task, 10)
	var ran atomic.Int32
	p := NewWorkerPool(2, ch, func(t task) { t.fn() })

	for i := 0; i < 5; i++ {
		ch <- task{fn: func() { ran.Add(1) }, enqueuedAt: time.Now()}
	}
	p.Start()
	p.Stop()
	assert.Equal(t, int32(5), ran.Load())

	// Stop is idempotent.
	p.Stop()
}

func TestWorkerPool_StartTwiceKeepsWorkerCount(t *testing.T) {
	ch := make(chan task, 10)
	var active, peak atomic.Int32
	release := make(chan struct{})
	p := NewWorkerPool(2, ch, func(t task) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		active.Add(-1)
	})
	p.Start()
	p.Start()

	for i := 0; i < 4; i++ {
		ch <- task{enqueuedAt: time.Now()}
	}
	require.Eventually(t, func() bool { return active.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), peak.Load())

	close(release)
	p.Stop()
	assert.Zero(t, active.Load())
}
