package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Jarvis/internal/middleware"
	"Jarvis/pkg/config"
	xhttp "Jarvis/pkg/http"
	pkgkafka "Jarvis/pkg/kafka"
	applogger "Jarvis/pkg/logger"
	"Jarvis/pkg/queue"
	"Jarvis/pkg/scheduler"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	sched      *scheduler.Scheduler
	pipeline   *middleware.SamplePipeline
	consumer   *pkgkafka.Consumer
	queue      *queue.RedisQueue
	drain      func()
}

// New creates an App. drain blocks until in-process work started by
// requests has finished.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	sched *scheduler.Scheduler,
	pipe *middleware.SamplePipeline,
	drain func(),
) *App {
	return &App{cfg: cfg, log: l, httpServer: srv, sched: sched, pipeline: pipe, drain: drain}
}

// WithConsumer attaches the price sample consumer. Its handler must be
// registered already.
func (a *App) WithConsumer(c *pkgkafka.Consumer) { a.consumer = c }

// WithQueue attaches the backtest job queue.
func (a *App) WithQueue(q *queue.RedisQueue) { a.queue = q }

// Run starts the application and blocks until ctx ends, an interrupt
// arrives or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.pipeline.Start(ctx)

	if a.queue != nil {
		if err := a.queue.Start(ctx); err != nil {
			a.log.Error("backtest queue start error", applogger.Error(err))
			return err
		}
		a.log.Info("backtest queue started")
	}

	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
	}

	if err := a.sched.Start(ctx); err != nil {
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
	}
	a.shutdown()
	return runErr
}

// shutdown stops intake first, then drains in-flight work.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.log.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if err := a.sched.Stop(ctx); err != nil {
		a.log.Warn("scheduler stop error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("backtest queue stop error", applogger.Error(err))
		}
	}
	a.pipeline.Stop()
	if a.drain != nil {
		a.drain()
	}
	a.log.Info("shutdown complete")
}
