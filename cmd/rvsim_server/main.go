package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ssuji15/rvsim/internal/component"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/internal/service"
	"github.com/ssuji15/rvsim/internal/service/logger"
	submissionservice "github.com/ssuji15/rvsim/internal/service/submission_service"
	submissionmanager "github.com/ssuji15/rvsim/internal/submission_manager"
	"github.com/ssuji15/rvsim/internal/submission_manager/pipeline"
	"github.com/ssuji15/rvsim/internal/submission_manager/toolchain"
	"github.com/ssuji15/rvsim/internal/web"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger.Init(cfg.SERVICE_NAME, cfg.LOG_LEVEL)

	pcfg, err := config.GetPipelineConfig()
	if err != nil {
		log.Fatalf("pipeline config error: %v", err)
	}
	acfg, err := config.GetAuthConfig()
	if err != nil {
		log.Fatalf("auth config error: %v", err)
	}

	if cfg.TRACE_URL != "" {
		shutdownTracer, err := job_tracer.InitTracer(ctx, cfg.SERVICE_NAME, cfg.TRACE_URL)
		if err != nil {
			log.Fatalf("error initialising trace: %v", err)
		}
		defer func() {
			sctx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = shutdownTracer(sctx)
		}()
	}

	repo, closeRepo, err := component.GetRepository(ctx, cfg.RECORD_STORE_TYPE)
	if err != nil {
		log.Fatalf("record store initialization error: %v", err)
	}
	defer closeRepo()

	cache, err := component.GetCache(ctx, cfg.CACHE_TYPE)
	if err != nil {
		log.Fatalf("cache initialization error: %v", err)
	}

	results, err := component.GetResultStore(ctx, cfg.STORAGE_TYPE, pcfg.SUBMISSIONS_FOLDER)
	if err != nil {
		log.Fatalf("storage initialization error: %v", err)
	}

	publisher, err := component.GetPublisher(cfg.EVENTS_TYPE)
	if err != nil {
		log.Fatalf("events initialization error: %v", err)
	}

	metrics := job_tracer.NewPipelineMetrics()
	svc := submissionservice.NewSubmissionService(repo, cache, results, publisher)

	worker, err := pipeline.NewWorker(pcfg, svc, toolchain.New(pcfg), metrics)
	if err != nil {
		log.Fatalf("worker initialization error: %v", err)
	}
	manager := submissionmanager.NewSubmissionManager(ctx, pcfg, worker, metrics)

	server := web.NewServer(manager, svc, web.NewAuthenticator(acfg), web.Options{
		StaticDir:   cfg.STATIC_DIR,
		CodesizeMax: pcfg.CODESIZE_MAX,
	})

	logger.Log.Info().
		Str("addr", cfg.LISTEN_ADDR).
		Str("records", cfg.RECORD_STORE_TYPE).
		Str("cache", cfg.CACHE_TYPE).
		Str("storage", cfg.STORAGE_TYPE).
		Str("events", cfg.EVENTS_TYPE).
		Msg("starting rvsim")

	group := service.Group{
		web.NewHTTPService(cfg.LISTEN_ADDR, server.Router()),
		manager,
	}
	if err := group.Run(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("service group stopped with error")
	}

	logger.Log.Info().Msg("trying to shutdown gracefully...")
	if err := shutdown(manager, cache.ShutDown, results.ShutDown, publisher.ShutDown); err != nil {
		logger.Log.Error().Err(err).Msg("graceful shutdown incomplete")
		return
	}
	logger.Log.Info().Msg("server shutdown gracefully.")
}

// shutdown waits for in-flight submissions first, then releases the shared
// components concurrently.
func shutdown(manager *submissionmanager.SubmissionManager, closers ...func(context.Context)) error {
	var result error

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, fn := range closers {
		wg.Add(1)
		go func(fn func(context.Context)) {
			defer wg.Done()
			fn(ctx)
		}(fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		result = multierror.Append(result, ctx.Err())
	}
	return result
}
