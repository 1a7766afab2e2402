package submissionmanager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/model"
	"github.com/stretchr/testify/require"
)

func testConfig(capacity int) *config.PipelineConfig {
	return &config.PipelineConfig{
		TICKS_MAX:      100,
		CODESIZE_MAX:   64,
		QUEUE_CAPACITY: capacity,
	}
}

type collector struct {
	mu    sync.Mutex
	tasks []*model.SubmissionTask
	wg    sync.WaitGroup
}

func (c *collector) Process(ctx context.Context, task *model.SubmissionTask) {
	c.mu.Lock()
	c.tasks = append(c.tasks, task)
	c.mu.Unlock()
	c.wg.Done()
}

func TestSubmissionManager_SubmitRejectsBeforeQueueing(t *testing.T) {
	m := NewSubmissionManager(context.Background(), testConfig(10), &collector{}, job_tracer.NewPipelineMetrics())

	tests := []struct {
		name  string
		ticks uint32
		code  []byte
	}{
		{"ticks at max", 100, []byte("nop")},
		{"code at max", 1, make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := m.Submit(context.Background(), model.User{ID: 1}, tt.ticks, tt.code)
			var rejected *AdmissionRejected
			require.True(t, errors.As(err, &rejected))
			require.Equal(t, uuid.Nil, id)
			require.Zero(t, m.queue.Len())
		})
	}
}

func TestSubmissionManager_EndToEnd(t *testing.T) {
	c := &collector{}
	m := NewSubmissionManager(context.Background(), testConfig(10), c, job_tracer.NewPipelineMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	const n = 5
	c.wg.Add(n)
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id, err := m.Submit(ctx, model.User{ID: 3, Login: "octocat"}, uint32(i), []byte("nop"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	waitOrFail(t, &c.wg, 2*time.Second)

	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		require.Equal(t, uuid.Version(7), id.Version())
		require.False(t, seen[id], "identifiers must be unique")
		seen[id] = true
	}

	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	require.Equal(t, ids, sorted, "identifiers sort in submission order")

	c.mu.Lock()
	require.Len(t, c.tasks, n)
	for _, tk := range c.tasks {
		require.Equal(t, int64(3), tk.User.ID)
		require.False(t, tk.EnqueuedAt.IsZero())
	}
	c.mu.Unlock()

	cancel()
	require.NoError(t, <-runErr)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestSubmissionManager_Backpressure(t *testing.T) {
	m := NewSubmissionManager(context.Background(), testConfig(1), &collector{}, job_tracer.NewPipelineMetrics())

	_, err := m.Submit(context.Background(), model.User{ID: 1}, 1, []byte("a"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Submit(ctx, model.User{ID: 1}, 1, []byte("b"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmissionManager_SubmitAfterShutdown(t *testing.T) {
	m := NewSubmissionManager(context.Background(), testConfig(1), &collector{}, job_tracer.NewPipelineMetrics())
	require.NoError(t, m.Shutdown(context.Background()))

	_, err := m.Submit(context.Background(), model.User{ID: 1}, 1, []byte("a"))
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestSubmissionManager_ShutdownStartsQueuedTasks(t *testing.T) {
	c := &collector{}
	m := NewSubmissionManager(context.Background(), testConfig(10), c, job_tracer.NewPipelineMetrics())

	const n = 3
	c.wg.Add(n)
	accepted := map[uuid.UUID]bool{}
	for i := 0; i < n; i++ {
		id, err := m.Submit(context.Background(), model.User{ID: 1}, 1, []byte("nop"))
		require.NoError(t, err)
		accepted[id] = true
	}

	// the dispatcher stops on its context before reaching the queue
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))

	require.NoError(t, m.Shutdown(context.Background()))
	waitOrFail(t, &c.wg, 2*time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.tasks, n)
	for _, tk := range c.tasks {
		require.True(t, accepted[tk.ID])
	}
	require.Zero(t, m.queue.Len())
}

func TestSubmissionManager_ShutdownStopsRunningDispatcher(t *testing.T) {
	c := &collector{}
	m := NewSubmissionManager(context.Background(), testConfig(10), c, job_tracer.NewPipelineMetrics())

	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(context.Background()) }()

	c.wg.Add(1)
	_, err := m.Submit(context.Background(), model.User{ID: 1}, 1, []byte("nop"))
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, <-runErr)
	waitOrFail(t, &c.wg, 2*time.Second)

	_, err = m.Submit(context.Background(), model.User{ID: 1}, 1, []byte("nop"))
	require.ErrorIs(t, err, ErrQueueClosed)
	require.NoError(t, m.Run(context.Background()))
}
