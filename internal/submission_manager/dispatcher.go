package submissionmanager

import (
	"context"
	"errors"

	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/model"
)

type spawner interface {
	Go(name string, fn func(ctx context.Context))
}

// Processor runs one submission to completion.
type Processor interface {
	Process(ctx context.Context, task *model.SubmissionTask)
}

// Dispatcher is the single consumer of the queue. It hands every task to
// its own supervised worker and goes straight back to the queue.
type Dispatcher struct {
	queue  *Queue
	spawn  spawner
	worker Processor
}

func NewDispatcher(q *Queue, s spawner, w Processor) *Dispatcher {
	return &Dispatcher{queue: q, spawn: s, worker: w}
}

// Run returns nil once the queue is closed or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	for {
		task, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				log.Info().Msg("Dispatcher stopped")
				return nil
			}
			return err
		}

		log.Debug().Str("submission_id", task.ID.String()).Msg("Received task")
		d.start(task)
	}
}

// Drain starts a worker for every task left in a closed queue and reports
// how many it started.
func (d *Dispatcher) Drain() int {
	tasks := d.queue.Drain()
	for _, task := range tasks {
		d.start(task)
	}
	return len(tasks)
}

func (d *Dispatcher) start(task *model.SubmissionTask) {
	d.spawn.Go(task.ID.String(), func(ctx context.Context) {
		d.worker.Process(ctx, task)
	})
}
