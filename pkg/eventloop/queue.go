package eventloop

import "sync"

// Queue is a Dispatcher that runs nothing until Flush is called on the owning
// goroutine. Tests and the console driver use it to step the UI loop by hand.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
}

// NewQueue returns an open queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Post implements Dispatcher. It is safe to call from any goroutine.
func (q *Queue) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, fn)
	return true
}

// Flush runs queued tasks, including any they post, until the queue is empty.
// It returns the number of tasks run.
func (q *Queue) Flush() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return n
		}
		fn := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		fn()
		n++
	}
}

// Len reports the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close drops queued tasks and rejects new ones.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.tasks = nil
	q.mu.Unlock()
}

// Inline is an Executor that runs work synchronously in the caller.
type Inline struct{}

// Go implements Executor.
func (Inline) Go(fn func()) { fn() }

// Manual is an Executor that holds work until Run is called, so tests can
// interleave UI actions with outstanding async calls.
type Manual struct {
	mu    sync.Mutex
	tasks []func()
}

// Go implements Executor.
func (m *Manual) Go(fn func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()
}

// Pending reports how many tasks wait to run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Run executes every held task in submission order and returns the count.
func (m *Manual) Run() int {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}
