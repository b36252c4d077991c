package eventbus

// Executor runs deliveries for subscriptions that are not synchronous.
// Execute must not run task on the calling goroutine; an error means the
// delivery was not accepted.
//
// A nil Executor means inline delivery on the goroutine calling Post.
type Executor interface {
	Execute(task func()) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(task func()) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(task func()) error {
	return f(task)
}

// GoExecutor runs every delivery on its own goroutine. It gives no ordering
// guarantee between deliveries.
var GoExecutor Executor = ExecutorFunc(func(task func()) error {
	go task()
	return nil
})

func executorMode(e Executor) string {
	if e == nil {
		return "sync"
	}
	if n, ok := e.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "async"
}
