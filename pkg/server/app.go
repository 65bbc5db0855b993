package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SignalFuse/internal/handler/api"
	mid "SignalFuse/internal/middleware"
	"SignalFuse/internal/services/predictors"
	"SignalFuse/internal/usecase"
	pkgch "SignalFuse/pkg/clickhouse"
	"SignalFuse/pkg/config"
	xhttp "SignalFuse/pkg/http"
	pkgkafka "SignalFuse/pkg/kafka"
	applogger "SignalFuse/pkg/logger"
	"SignalFuse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    *api.EngineHandler
	runner     *usecase.CycleRunner
	stream     *predictors.SentimentStream
	consumer   *pkgkafka.Consumer
	oh         *usecase.KafkaOutcomesHandler
	pipe       *mid.OutcomePipeline
	jobs       *queue.RedisQueue
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.EngineHandler,
	runner *usecase.CycleRunner,
	stream *predictors.SentimentStream,
	consumer *pkgkafka.Consumer,
	oh *usecase.KafkaOutcomesHandler,
	pipe *mid.OutcomePipeline,
	jobs *queue.RedisQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		handler:  handler,
		runner:   runner,
		stream:   stream,
		consumer: consumer,
		oh:       oh,
		pipe:     pipe,
		jobs:     jobs,
		producer: producer,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Sentiment WebSocket stream; the collector reads its latest readings
	if a.stream != nil && a.cfg.Predictors.Sentiment.WebSocketURL != "" {
		go func() {
			if err := a.stream.Run(ctx); err != nil {
				l.Error("sentiment stream error", applogger.Error(err))
			}
		}()
		l.Info("sentiment stream started",
			applogger.String("url", a.cfg.Predictors.Sentiment.WebSocketURL))
	}

	// Outcome feedback consumer, behind the intake pipeline
	if a.pipe != nil {
		a.pipe.Start(ctx)
	}
	if a.consumer != nil && a.oh != nil {
		a.consumer.RegisterHandler(a.oh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.oh.Topic()))
	}

	// Forced-cycle job queue
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
		} else {
			a.jobs.StartRetryProcessor()
		}
	}

	// Periodic evaluation cycles
	go a.runner.Loop(ctx, a.cfg.Engine.CycleInterval)
	l.Info("cycle loop started",
		applogger.Duration("interval", a.cfg.Engine.CycleInterval),
		applogger.Int("instruments", len(a.cfg.Engine.Instruments)),
		applogger.Strings("horizons", a.cfg.Engine.Horizons))

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop intake first so no new work lands mid-shutdown
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.pipe != nil {
		a.pipe.Stop()
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			l.Warn("sentiment stream close error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
