package submissionmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/model"
	"go.opentelemetry.io/otel/trace"
)

// SubmissionManager owns the path from an accepted request to a running
// pipeline worker: admission, the bounded queue, the dispatcher and the
// supervisor of detached workers.
type SubmissionManager struct {
	gate       *Gate
	queue      *Queue
	supervisor *Supervisor
	dispatcher *Dispatcher
	metrics    *job_tracer.PipelineMetrics

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

func NewSubmissionManager(ctx context.Context, cfg *config.PipelineConfig, worker Processor, metrics *job_tracer.PipelineMetrics) *SubmissionManager {
	q := NewQueue(cfg.QUEUE_CAPACITY)
	s := NewSupervisor(ctx)
	return &SubmissionManager{
		gate:       NewGate(cfg.TICKS_MAX, cfg.CODESIZE_MAX),
		queue:      q,
		supervisor: s,
		dispatcher: NewDispatcher(q, s, worker),
		metrics:    metrics,
	}
}

// Submit validates and enqueues a job and returns its identifier. It blocks
// while the queue is full, until ctx gives up.
func (m *SubmissionManager) Submit(ctx context.Context, user model.User, ticks uint32, code []byte) (uuid.UUID, error) {
	if err := m.gate.Check(ticks, len(code)); err != nil {
		m.metrics.RecordRejected(ctx, "admission")
		return uuid.Nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("mint submission id: %w", err)
	}

	task := &model.SubmissionTask{
		ID:         id,
		User:       user,
		Ticks:      ticks,
		Code:       code,
		EnqueuedAt: time.Now(),
		Origin:     trace.SpanContextFromContext(ctx),
	}
	if err := m.queue.Enqueue(ctx, task); err != nil {
		if !errors.Is(err, ErrQueueClosed) {
			m.metrics.RecordRejected(ctx, "backpressure")
		}
		return uuid.Nil, err
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("submission_id", id.String()).
		Int("size", len(code)).
		Uint32("ticks", ticks).
		Int("queued", m.queue.Len()).
		Msg("Submitted task")
	return id, nil
}

func (m *SubmissionManager) Name() string {
	return "submission-dispatcher"
}

// Run consumes the queue until ctx is cancelled or Shutdown is called.
func (m *SubmissionManager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.running.Add(1)
	m.mu.Unlock()
	defer m.running.Done()

	return m.dispatcher.Run(ctx)
}

// Shutdown stops admission and waits for the dispatcher to stop. Tasks still
// queued get a worker like any other, then all workers are cancelled and
// awaited. A cancelled worker still records a terminal result.
func (m *SubmissionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.queue.Close()
	if err := waitGroup(ctx, &m.running); err != nil {
		return fmt.Errorf("dispatcher still running: %w", err)
	}

	if n := m.dispatcher.Drain(); n > 0 {
		logger.Log.Info().Int("count", n).Msg("Started workers for queued submissions")
	}
	return m.supervisor.Shutdown(ctx)
}
