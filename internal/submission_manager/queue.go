package submissionmanager

import (
	"context"
	"errors"
	"sync"

	"github.com/ssuji15/rvsim/model"
)

var ErrQueueClosed = errors.New("submission queue closed")

// Queue is the bounded FIFO between admission and the dispatcher. Many
// goroutines may Enqueue; a single dispatcher Dequeues.
type Queue struct {
	tasks     chan *model.SubmissionTask
	done      chan struct{}
	closeOnce sync.Once

	// held shared by Enqueue so Close can wait out in-flight sends
	mu sync.RWMutex
}

func NewQueue(capacity int) *Queue {
	return &Queue{
		tasks: make(chan *model.SubmissionTask, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue blocks while the queue is full.
func (q *Queue) Enqueue(ctx context.Context, task *model.SubmissionTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks while the queue is empty. After Close it returns
// ErrQueueClosed; tasks still buffered are left for Drain.
func (q *Queue) Dequeue(ctx context.Context) (*model.SubmissionTask, error) {
	select {
	case <-q.done:
		return nil, ErrQueueClosed
	default:
	}

	select {
	case task := <-q.tasks:
		return task, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) Len() int {
	return len(q.tasks)
}

// Close stops admission. It returns once no Enqueue is in flight, so every
// accepted task is either dequeued or still in the buffer.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.mu.Lock()
	q.mu.Unlock()
}

// Drain empties the buffer without blocking. Call it after Close.
func (q *Queue) Drain() []*model.SubmissionTask {
	var tasks []*model.SubmissionTask
	for {
		select {
		case task := <-q.tasks:
			tasks = append(tasks, task)
		default:
			return tasks
		}
	}
}
