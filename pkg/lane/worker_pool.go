package lane

import (
	"sync"
	"sync/atomic"
	"time"
)

// task is one queued unit of work.
type task struct {
	fn         func()
	enqueuedAt time.Time
}

// WorkerPool runs a fixed number of goroutines consuming a shared queue.
type WorkerPool struct {
	maxWorkers int
	taskCh     <-chan task
	process    func(task)

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorkerPool creates a pool of maxWorkers goroutines calling process
// for every task received from taskCh.
func NewWorkerPool(maxWorkers int, taskCh <-chan task, process func(task)) *WorkerPool {
	return &WorkerPool{
		maxWorkers: maxWorkers,
		taskCh:     taskCh,
		process:    process,
		stopCh:     make(chan struct{}),
	}
}

// Start starts the workers. Calling it again has no effect.
func (p *WorkerPool) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop asks the workers to finish what is queued and waits for them.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		p.running.Store(false)
	})
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case t := <-p.taskCh:
			p.process(t)
		case <-p.stopCh:
			for {
				select {
				case t := <-p.taskCh:
					p.process(t)
				default:
					return
				}
			}
		}
	}
}
