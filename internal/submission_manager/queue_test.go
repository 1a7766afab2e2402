package submissionmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task() *model.SubmissionTask {
	return &model.SubmissionTask{ID: uuid.Must(uuid.NewV7())}
}

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue(10)
	ctx := context.Background()

	var want []uuid.UUID
	for i := 0; i < 5; i++ {
		tk := task()
		want = append(want, tk.ID)
		require.NoError(t, q.Enqueue(ctx, tk))
	}
	require.Equal(t, 5, q.Len())

	for _, id := range want {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, id, got.ID)
	}
}

func TestQueue_EnqueueBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, task()))
	require.NoError(t, q.Enqueue(ctx, task()))

	tctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Enqueue(tctx, task()), context.DeadlineExceeded)

	// a slot frees up and the blocked producer proceeds
	blocked := task()
	done := make(chan error, 1)
	go func() { done <- q.Enqueue(ctx, blocked) }()

	select {
	case <-done:
		t.Fatal("enqueue should block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, 2, q.Len())
}

func TestQueue_DequeueBlocksWhenEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_Close(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, task()))

	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(ctx, task()) }()
	time.Sleep(20 * time.Millisecond)

	q.Close()
	q.Close()

	require.ErrorIs(t, <-blocked, ErrQueueClosed)
	require.ErrorIs(t, q.Enqueue(ctx, task()), ErrQueueClosed)

	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_DrainAfterClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(5)
	ctx := context.Background()

	var want []uuid.UUID
	for i := 0; i < 3; i++ {
		tk := task()
		want = append(want, tk.ID)
		require.NoError(t, q.Enqueue(ctx, tk))
	}
	q.Close()

	var got []uuid.UUID
	for _, tk := range q.Drain() {
		got = append(got, tk.ID)
	}
	require.Equal(t, want, got)
	require.Zero(t, q.Len())
	require.Empty(t, q.Drain())
}

func TestQueue_ManyProducers(t *testing.T) {
	t.Parallel()

	q := NewQueue(4)
	ctx := context.Background()

	const producers, perProducer = 8, 25
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Enqueue(ctx, task()))
			}
		}()
	}

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < producers*perProducer; i++ {
		tk, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.False(t, seen[tk.ID])
		seen[tk.ID] = true
	}
	wg.Wait()
	require.Zero(t, q.Len())
}
