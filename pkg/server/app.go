package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/usecase"
	pkgch "github.com/n2ilva/MotoristaInteligente-sub003/pkg/clickhouse"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/config"
	xhttp "github.com/n2ilva/MotoristaInteligente-sub003/pkg/http"
	pkgkafka "github.com/n2ilva/MotoristaInteligente-sub003/pkg/kafka"
	applogger "github.com/n2ilva/MotoristaInteligente-sub003/pkg/logger"
)

// App encapsulates the entire application lifecycle. Exactly one ingest path
// is active: the websocket collector or the Kafka consumer.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	collector   *usecase.ObservationCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	bucketStore domrepo.BucketStore
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	Proc        *usecase.ObservationProcessor
}

// New creates a new App instance with all dependencies. collector or
// consumer may be nil depending on the configured ingest type.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.ObservationCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	bucketStore domrepo.BucketStore,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		collector:   collector,
		consumer:    consumer,
		kh:          kh,
		chClient:    chClient,
		bucketStore: bucketStore,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("observation collector started", applogger.String("gateway", a.cfg.Gateway.WebSocketURL))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.bucketStore != nil {
		if err := a.bucketStore.Close(); err != nil {
			l.Warn("bucket store close error", applogger.Error(err))
		}
	}

	// closes the downstream publisher
	if a.Proc != nil {
		a.Proc.Close()
	}

	l.Info("shutdown complete")
	return nil
}
