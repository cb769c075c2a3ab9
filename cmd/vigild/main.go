// Command vigild runs the proctoring engine: it accepts browser signal
// websockets, classifies each candidate's camera and environment, and
// delivers violations to the configured sinks.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/internal/adapters/http/swagger"
	"github.com/okian/vigil/internal/adapters/mq/worker"
	"github.com/okian/vigil/internal/adapters/transport"
	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		// Use stderr since the logger may not be available.
		os.Stderr.WriteString("vigild: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closeSinks, err := buildTransport(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	svc := app.New(sink,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithSettings(cfg.Settings()),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("service stop: %w", err))
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// newHandler registers every route on a fresh mux.
func newHandler(svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc, api.WithStreamLogger(log.Named("stream"))).Register(mux)
	return mux
}

// buildTransport assembles the configured sinks. With none configured,
// violations are only logged. The returned func releases broker connections.
func buildTransport(ctx context.Context, cfg *config.Config, log logger.Logger) (worker.Transport, func(), error) {
	var (
		sinks   []worker.Transport
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn(ctx, "sink close failed", logger.Error(err))
			}
		}
	}

	if cfg.TransportHTTPURL != "" {
		h, err := transport.NewHTTP(cfg.TransportHTTPURL,
			transport.WithHTTPTimeout(cfg.HTTPTimeout()),
			transport.WithHTTPLogger(log.Named("http_sink")),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("http sink: %w", err)
		}
		sinks = append(sinks, h)
	}

	if cfg.MQTTBroker != "" {
		m, err := transport.NewMQTT(cfg.MQTTBroker,
			transport.WithClientID(cfg.MQTTClientID),
			transport.WithTopic(cfg.MQTTTopic),
			transport.WithMQTTLogger(log.Named("mqtt_sink")),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("mqtt sink: %w", err)
		}
		if err := m.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("mqtt sink: %w", err)
		}
		sinks = append(sinks, m)
		closers = append(closers, m.Close)
	}

	if len(sinks) == 0 {
		log.Warn(ctx, "no transport configured; violations are only logged")
		sinks = append(sinks, transport.NewLog(log.Named("log_sink")))
	}

	return transport.NewMulti(sinks...), closeAll, nil
}
