package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ssuji15/rvsim/internal/service/logger"
)

const shutdownTimeout = 10 * time.Second

// HTTPService runs the API as a member of a service.Group.
type HTTPService struct {
	srv *http.Server
}

func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      75 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (h *HTTPService) Name() string {
	return "http-server"
}

// Run serves until ctx is cancelled, then drains open connections.
func (h *HTTPService) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, l)
}

func (h *HTTPService) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", l.Addr().String()).Msg("HTTP server started")
		errCh <- h.srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
