package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("queue is closed")

// Task is one unit of import work: either a listing URL to scrape or an
// uploaded PDF to process.
type Task struct {
	ID         string
	JobID      string
	URL        string
	Site       string
	PDFPath    string
	Filename   string
	MaxResults int
	Priority   int
	Retries    int
	CreatedAt  time.Time
}

// IsPDF reports whether the task refers to an uploaded document rather
// than a listing URL.
func (t *Task) IsPDF() bool {
	return t.PDFPath != ""
}

type Queue interface {
	Push(task *Task) error
	Pop(ctx context.Context) (*Task, error)
	Size() int
	Close() error
}

// InMemoryQueue is a priority queue with a blocking Pop. Waiters block on
// a notify channel that Push and Close replace under the lock, so a
// cancelled Pop never touches the mutex on its way out.
type InMemoryQueue struct {
	mu     sync.Mutex
	tasks  []*Task
	notify chan struct{}
	closed bool
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		tasks:  make([]*Task, 0),
		notify: make(chan struct{}),
	}
}

func (q *InMemoryQueue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.tasks = append(q.tasks, task)
	q.sortByPriority()
	q.wake()

	return nil
}

// Pop blocks until a task is available, the queue closes, or ctx is
// cancelled. A closed queue still drains its remaining tasks.
func (q *InMemoryQueue) Pop(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()
		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			return task, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	q.wake()

	return nil
}

// wake releases every blocked Pop. Callers must hold q.mu.
func (q *InMemoryQueue) wake() {
	close(q.notify)
	q.notify = make(chan struct{})
}

func (q *InMemoryQueue) sortByPriority() {
	for i := 0; i < len(q.tasks)-1; i++ {
		for j := 0; j < len(q.tasks)-i-1; j++ {
			if q.tasks[j].Priority < q.tasks[j+1].Priority {
				q.tasks[j], q.tasks[j+1] = q.tasks[j+1], q.tasks[j]
			}
		}
	}
}
