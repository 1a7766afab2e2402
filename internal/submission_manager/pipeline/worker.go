package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/internal/submission_manager/toolchain"
	"github.com/ssuji15/rvsim/internal/util"
	"github.com/ssuji15/rvsim/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecordStore is what a worker needs from the result store.
type RecordStore interface {
	CreateSubmission(ctx context.Context, id uuid.UUID, userID int64) (*model.Submission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus) error
	PutResult(ctx context.Context, id uuid.UUID, data []byte) error
	PublishCompleted(ctx context.Context, id uuid.UUID)
}

// Runner drives the external tools inside a working area.
type Runner interface {
	Assemble(ctx context.Context, dir string) error
	Link(ctx context.Context, dir string) error
	Simulate(ctx context.Context, dir string, ticks uint32) ([]byte, error)
}

type Worker struct {
	store           RecordStore
	tools           Runner
	root            string
	compileTimeout  time.Duration
	simulateTimeout time.Duration
	metrics         *job_tracer.PipelineMetrics
}

func NewWorker(cfg *config.PipelineConfig, store RecordStore, tools Runner, metrics *job_tracer.PipelineMetrics) (*Worker, error) {
	if err := util.EnsureDirExist(cfg.SUBMISSIONS_FOLDER); err != nil {
		return nil, err
	}
	return &Worker{
		store:           store,
		tools:           tools,
		root:            cfg.SUBMISSIONS_FOLDER,
		compileTimeout:  cfg.COMPILE_TIMEOUT,
		simulateTimeout: cfg.SIMULATE_TIMEOUT,
		metrics:         metrics,
	}, nil
}

// Process takes one submission from AWAITING to COMPLETED. Every failure
// after the record exists ends up in the result document. Persistence runs
// on a context that outlives cancellation of ctx, so a job interrupted by
// shutdown still records its terminal state.
func (w *Worker) Process(ctx context.Context, task *model.SubmissionTask) {
	id := task.ID.String()
	log := logger.ForSubmission(ctx, id)
	ctx = logger.WithContext(ctx, log)

	opts := []trace.SpanStartOption{
		trace.WithAttributes(attribute.String("id", id), attribute.Int("ticks", int(task.Ticks))),
	}
	if task.Origin.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: task.Origin}))
	}
	ctx, span := job_tracer.GetTracer().Start(ctx, "Pipeline/Process", opts...)
	defer span.End()

	persistCtx := context.WithoutCancel(ctx)

	if !task.EnqueuedAt.IsZero() {
		w.metrics.RecordQueueWait(ctx, time.Since(task.EnqueuedAt))
	}

	if _, err := w.store.CreateSubmission(persistCtx, task.ID, task.User.ID); err != nil {
		util.RecordSpanError(span, err)
		log.Error().Err(err).Msg("Failed to create submission record")
		return
	}
	log.Info().Str("user", task.User.Login).Int64("user_id", task.User.ID).Msg("Processing submission")

	result := Result{ID: task.ID, Ticks: task.Ticks, Code: task.Code}

	dir := util.GetSubmissionDir(w.root, id)
	if err := w.prepare(dir, task.Code); err != nil {
		result.Err = stageErrorf(KindWorkingArea, "%v", err)
		w.finish(persistCtx, span, log, result)
		return
	}

	if err := w.store.UpdateStatus(persistCtx, task.ID, model.StatusInProgress); err != nil {
		log.Error().Err(err).Msg("Failed to update submission status to IN_PROGRESS")
	}

	report, serr := w.run(ctx, dir, task.Ticks)
	result.Report = report
	result.Err = serr
	w.finish(persistCtx, span, log, result)
}

func (w *Worker) prepare(dir string, code []byte) error {
	if err := os.Mkdir(dir, 0755); err != nil {
		return fmt.Errorf("create working area: %w", err)
	}
	if err := util.WriteFileOnce(filepath.Join(dir, util.SourceFile), code); err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	return nil
}

func (w *Worker) run(ctx context.Context, dir string, ticks uint32) (map[string]json.RawMessage, *StageError) {
	log := logger.FromContext(ctx)

	if serr := w.compile(ctx, dir); serr != nil {
		return nil, serr
	}
	log.Debug().Msg("Elf ready")

	stdout, serr := w.simulate(ctx, dir, ticks)
	if serr != nil {
		return nil, serr
	}

	if err := util.WriteFileOnce(filepath.Join(dir, util.TranscriptFile), stdout); err != nil {
		log.Error().Err(err).Msg("Failed to save simulator transcript")
	}

	if !utf8.Valid(stdout) {
		return nil, stageErrorf(KindExecutionFailed, "simulator output is not valid UTF-8")
	}
	report, err := parseReport(stdout)
	if err != nil {
		return nil, stageErrorf(KindMalformedOutput, "%v", err)
	}
	return report, nil
}

func (w *Worker) compile(ctx context.Context, dir string) *StageError {
	start := time.Now()
	defer func() { w.metrics.RecordStage(ctx, "compile", time.Since(start)) }()

	cctx, cancel := context.WithTimeout(ctx, w.compileTimeout)
	defer cancel()

	if err := w.tools.Assemble(cctx, dir); err != nil {
		return compileError(err, "Assembler", w.compileTimeout)
	}
	if err := w.tools.Link(cctx, dir); err != nil {
		return compileError(err, "Linker", w.compileTimeout)
	}
	return nil
}

func (w *Worker) simulate(ctx context.Context, dir string, ticks uint32) ([]byte, *StageError) {
	start := time.Now()
	defer func() { w.metrics.RecordStage(ctx, "simulate", time.Since(start)) }()

	sctx, cancel := context.WithTimeout(ctx, w.simulateTimeout)
	defer cancel()

	stdout, err := w.tools.Simulate(sctx, dir, ticks)
	if err == nil {
		return stdout, nil
	}

	var exitErr *toolchain.ExitError
	switch {
	case errors.Is(err, toolchain.ErrTimeout):
		return nil, stageErrorf(KindExecutionTimeout, "simulation did not finish within %s", w.simulateTimeout)
	case errors.As(err, &exitErr):
		return nil, stageErrorf(KindExecutionFailed, "Simulation error: %s", exitErr.Stderr)
	default:
		return nil, stageErrorf(KindExecutionFailed, "simulating: %v", err)
	}
}

func compileError(err error, tool string, timeout time.Duration) *StageError {
	var exitErr *toolchain.ExitError
	switch {
	case errors.Is(err, toolchain.ErrTimeout):
		return stageErrorf(KindCompilationTimeout, "compilation did not finish within %s", timeout)
	case errors.As(err, &exitErr):
		return stageErrorf(KindCompilationFailed, "%s error:\n%s\n%s", tool, exitErr.Stderr, exitErr.Stdout)
	default:
		return stageErrorf(KindCompilationFailed, "%s: %v", tool, err)
	}
}

// finish stores the result document and then marks the record COMPLETED,
// whatever the outcome.
func (w *Worker) finish(ctx context.Context, span trace.Span, log zerolog.Logger, result Result) {
	kind := ""
	if result.Err != nil {
		kind = string(result.Err.Kind)
		util.RecordSpanError(span, result.Err)
		log.Warn().Str("kind", kind).Str("error", result.Err.Message).Msg("Submission failed")
	}
	w.metrics.RecordOutcome(ctx, kind)

	data, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode submission result")
	} else if err := w.store.PutResult(ctx, result.ID, data); err != nil {
		log.Error().Err(err).Msg("Failed to write submission result")
	}

	if err := w.store.UpdateStatus(ctx, result.ID, model.StatusCompleted); err != nil {
		log.Error().Err(err).Msg("Failed to update final submission status")
		return
	}
	w.store.PublishCompleted(ctx, result.ID)
	log.Info().Msg("Completed submission")
}
