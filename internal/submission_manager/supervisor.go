package submissionmanager

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/ssuji15/rvsim/internal/service/logger"
)

// Supervisor runs detached tasks. It never blocks the caller, recovers
// panics, and on Shutdown cancels what is still running and waits for it.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSupervisor(parent context.Context) *Supervisor {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Supervisor{ctx: ctx, cancel: cancel}
}

// Go starts fn on its own goroutine with the supervisor's context.
func (s *Supervisor) Go(name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log := logger.FromContext(s.ctx)
				log.Error().
					Str("task", name).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("Recovered panic in supervised task")
			}
		}()
		fn(s.ctx)
	}()
}

// Shutdown cancels running tasks and waits for them until ctx expires.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.cancel()
	if err := waitGroup(ctx, &s.wg); err != nil {
		return fmt.Errorf("supervised tasks still running: %w", err)
	}
	return nil
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
