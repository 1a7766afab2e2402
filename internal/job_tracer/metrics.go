package job_tracer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics groups the instruments recorded by the submission pipeline.
// Instruments are resolved lazily from the global meter provider, so a
// provider installed by InitTracer after construction is still honoured.
type PipelineMetrics struct {
	queueWait     metric.Float64Histogram
	stageDuration metric.Float64Histogram
	outcomes      metric.Int64Counter
	rejected      metric.Int64Counter
}

func NewPipelineMetrics() *PipelineMetrics {
	meter := otel.Meter("rvsim/pipeline")
	queueWait, _ := meter.Float64Histogram("submission_queue_duration_seconds")
	stageDuration, _ := meter.Float64Histogram("submission_stage_duration_seconds")
	outcomes, _ := meter.Int64Counter("submission_outcomes_total")
	rejected, _ := meter.Int64Counter("submission_rejected_total")
	return &PipelineMetrics{
		queueWait:     queueWait,
		stageDuration: stageDuration,
		outcomes:      outcomes,
		rejected:      rejected,
	}
}

func (m *PipelineMetrics) RecordQueueWait(ctx context.Context, d time.Duration) {
	if m == nil || m.queueWait == nil {
		return
	}
	m.queueWait.Record(ctx, d.Seconds())
}

func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordOutcome counts a finished submission. An empty kind means success.
func (m *PipelineMetrics) RecordOutcome(ctx context.Context, kind string) {
	if m == nil || m.outcomes == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *PipelineMetrics) RecordRejected(ctx context.Context, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
