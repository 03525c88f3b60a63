package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// taskMsg wakes the Update loop to run queued tasks.
type taskMsg struct{}

// taskQueue moves work from other goroutines onto the Update loop. Timer
// callbacks, loader alerts and refetch requests all arrive through it.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// post queues fn. A nil fn only wakes the loop.
func (q *taskQueue) post(fn func()) {
	q.mu.Lock()
	if fn != nil {
		q.tasks = append(q.tasks, fn)
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// drain runs everything queued so far. Tasks posted while draining run in
// the same call.
func (q *taskQueue) drain() int {
	n := 0
	for {
		q.mu.Lock()
		tasks := q.tasks
		q.tasks = nil
		q.mu.Unlock()
		if len(tasks) == 0 {
			return n
		}
		for _, fn := range tasks {
			fn()
		}
		n += len(tasks)
	}
}

// wait returns a Cmd that resolves once something is posted.
func (q *taskQueue) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-q.signal:
			return taskMsg{}
		case <-q.done:
			return nil
		}
	}
}

func (q *taskQueue) close() {
	q.once.Do(func() { close(q.done) })
}
