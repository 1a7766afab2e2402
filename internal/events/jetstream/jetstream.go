package jetstream

import (
	"context"
	"errors"
	"net/http"

	"github.com/nats-io/nats.go"
	cj "github.com/ssuji15/rvsim/internal/component/jetstream"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/events"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/internal/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type JetStreamPublisher struct {
	connection *nats.Conn
	context    nats.JetStreamContext
}

func NewJetStreamPublisher(cfg *config.NatsConfig) (*JetStreamPublisher, error) {
	nc, err := cj.NewJetStreamClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     cfg.STREAM_NAME,
		Subjects: []string{"events.>"},
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, err
	}

	return &JetStreamPublisher{
		connection: nc,
		context:    js,
	}, nil
}

func (c *JetStreamPublisher) PublishEvent(ctx context.Context, event events.Event, id string) error {
	ctx, span := job_tracer.GetTracer().Start(ctx, "Nats/Publish")
	defer span.End()

	span.AddEvent("nats.context",
		trace.WithAttributes(attribute.String("subject", string(event)), attribute.String("id", id)),
	)

	msg := nats.NewMsg(string(event))
	msg.Data = []byte(id)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))

	if _, err := c.context.PublishMsg(msg, nats.Context(ctx), nats.MsgId(string(event)+":"+id)); err != nil {
		util.RecordSpanError(span, err)
		return err
	}
	return nil
}

func (c *JetStreamPublisher) ShutDown(ctx context.Context) {
	done := make(chan struct{})
	c.connection.SetClosedHandler(func(_ *nats.Conn) {
		close(done)
	})

	if err := c.connection.Drain(); err != nil {
		logger.Log.Error().Err(err).Msg("unable to drain nats connection")
		c.connection.Close()
	}

	select {
	case <-done:
	case <-ctx.Done():
		c.connection.Close()
	}
	cj.ResetJetStreamClient()
}
