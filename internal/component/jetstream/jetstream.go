package jetstream

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/service/logger"
)

var (
	nc        *nats.Conn
	once      sync.Once
	initError error
)

// NewJetStreamClient returns the process-wide nats connection.
func NewJetStreamClient(cfg *config.NatsConfig) (*nats.Conn, error) {
	once.Do(func() {
		nc, initError = nats.Connect(cfg.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(1*time.Second),
			nats.Name("rvsim"),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Log.Info().Str("url", nc.ConnectedUrl()).Msg("NATs reconnected")
			}),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				logger.Log.Error().Err(err).Msg("NATs disconnected")
			}),
			nats.ClosedHandler(func(nc *nats.Conn) {
				logger.Log.Warn().Msg("NATs closed")
			}),
		)
	})
	return nc, initError
}

func ResetJetStreamClient() {
	nc = nil
	once = sync.Once{}
	initError = nil
}
