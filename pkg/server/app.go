package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketpulse/internal/domain/repository"
	"marketpulse/internal/service/stream"
	pkgch "marketpulse/pkg/clickhouse"
	"marketpulse/pkg/config"
	xhttp "marketpulse/pkg/http"
	pkgkafka "marketpulse/pkg/kafka"
	applogger "marketpulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	chClient *pkgch.Client
	consumer *pkgkafka.Consumer
	sh       pkgkafka.MessageHandler
	quotes   *stream.QuoteStream
	events   repository.EventPublisher

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	chClient *pkgch.Client,
	consumer *pkgkafka.Consumer,
	sh pkgkafka.MessageHandler,
	quotes *stream.QuoteStream,
	events repository.EventPublisher,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		chClient:    chClient,
		consumer:    consumer,
		sh:          sh,
		quotes:      quotes,
		events:      events,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start quote stream if configured
	if a.quotes != nil {
		go func() {
			if err := a.quotes.Connect(ctx); err != nil {
				a.log.Error("quote stream connect error", applogger.Error(err))
				return
			}
			if err := a.quotes.Subscribe(ctx); err != nil {
				a.log.Error("quote stream subscribe error", applogger.Error(err))
				return
			}
			a.quotes.Run(ctx)
		}()
		a.log.Info("quote stream started", applogger.Strings("symbols", a.cfg.Provider.Stream.Symbols))
	}

	// Start sentiment consumer if configured
	if a.consumer != nil && a.sh != nil {
		a.consumer.RegisterHandler(a.sh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.sh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.quotes != nil {
		if err := a.quotes.Close(); err != nil {
			a.log.Warn("quote stream close error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
