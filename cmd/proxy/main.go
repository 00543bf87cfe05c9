// Package main runs the validator gateway: a single HTTP entry point that
// forwards JSON-RPC requests to one of a fixed set of validators.
//
// Configuration (flag / environment):
//   - --bind / BIND_ADDRESS: listen address (default "0.0.0.0:80")
//   - --validators / VALIDATORS_CSV: validators file (default "config/validators.csv")
//   - --request-timeout / REQUEST_TIMEOUT: forward timeout (default 15s)
//   - --rate-limit / RATE_LIMIT, --rate-burst / RATE_BURST: proxy rate limit
//   - --metrics / METRICS_ENABLED: serve /metrics
//   - --log-level / LOG_LEVEL, --log-dev / LOG_DEV, --log-file / LOG_FILE
//
// Example usage:
//
//	VALIDATORS_CSV=config/validators.csv BIND_ADDRESS=:8080 ./proxy
//
//	curl -X POST 'localhost:8080/?server=frankfurt-1' \
//	  -H 'Content-Type: application/json' \
//	  -d '{"jsonrpc":"2.0","id":1,"method":"getVersion","params":[]}'
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dreamware/valgate/internal/config"
	"github.com/dreamware/valgate/internal/forward"
	"github.com/dreamware/valgate/internal/logging"
	"github.com/dreamware/valgate/internal/metrics"
	"github.com/dreamware/valgate/internal/registry"
	"github.com/dreamware/valgate/internal/server"
)

// logFatal is a variable so tests can intercept fatal exits.
var logFatal = log.Fatalf

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logFatal("valgate: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "valgate",
		Usage: "forward JSON-RPC requests to a fleet of validators",
		Flags: config.Flags(),
		Action: func(c *cli.Context) error {
			settings, err := config.FromContext(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings)
		},
	}
}

// setup loads the registry and builds the HTTP handler. Any error here is a
// load-time failure and the process must not start serving.
func setup(settings config.Settings, logger *zap.Logger) (*server.Server, *registry.Registry, error) {
	reg, err := registry.LoadFile(settings.ValidatorsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load validators: %w", err)
	}

	opts := []server.Option{server.WithRateLimit(settings.RateLimit, settings.RateBurst)}
	if settings.MetricsEnabled {
		opts = append(opts, server.WithMetrics(metrics.New()))
	}

	fwd := forward.New(forward.WithTimeout(settings.RequestTimeout))
	return server.New(reg, fwd, logger, opts...), reg, nil
}

func run(ctx context.Context, settings config.Settings) error {
	logger, err := logging.New(logging.Options{
		Level:       settings.LogLevel,
		Development: settings.LogDevelopment,
		File:        logging.FileOptions{Filename: settings.LogFile, MaxBackups: 5, Compress: true},
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	handler, reg, err := setup(settings, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}

	httpSrv := &http.Server{
		Addr:              settings.BindAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("bind_address", settings.BindAddress),
		zap.String("validators_source", settings.ValidatorsPath),
		zap.Int("validators", reg.Len()),
		zap.Strings("locations", reg.Locations()),
		zap.Duration("request_timeout", settings.RequestTimeout),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
