package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"MacroCompass/internal/middleware"
	"MacroCompass/internal/usecase"
	"MacroCompass/pkg/config"
	xhttp "MacroCompass/pkg/http"
	pkgkafka "MacroCompass/pkg/kafka"
	applogger "MacroCompass/pkg/logger"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handlers   []xhttp.Handler
	recorder   *usecase.SnapshotRecorder
	pipeline   *middleware.SnapshotPipeline
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	closers    []namedCloser
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler, recorder *usecase.SnapshotRecorder, pipeline *middleware.SnapshotPipeline) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:      cfg,
		log:      l,
		handlers: handlers,
		recorder: recorder,
		pipeline: pipeline,
	}
}

// SetConsumer attaches a Kafka consumer and the handler it should run.
func (a *App) SetConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = h
}

// AddCloser registers a resource closed on shutdown, in registration order.
func (a *App) AddCloser(name string, c io.Closer) {
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
		xhttp.WithMetricsPath(a.metricsPath()),
		xhttp.WithLogger(a.log),
	)

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("macrocompass started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Duration("cache_ttl", a.cfg.Regime.CacheTTL),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Flush aggregated error logs while the producer is still open.
	a.log.RemoveCollector()

	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
