// Package app wires the configured adapters together and runs the HTTP server
// until the context is canceled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadimbarashkov/tinyurl/internal/config"
	"github.com/vadimbarashkov/tinyurl/internal/usecase"
	"github.com/vadimbarashkov/tinyurl/pkg/postgres"
	"github.com/vadimbarashkov/tinyurl/pkg/redis"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/tinyurl/internal/adapter/delivery/http"
	metrics "github.com/vadimbarashkov/tinyurl/internal/adapter/metrics/prometheus"
	ratelimit "github.com/vadimbarashkov/tinyurl/internal/adapter/ratelimit/redis"
	repository "github.com/vadimbarashkov/tinyurl/internal/adapter/repository/postgres"
)

const (
	migrationsURL = "file://migrations"
	swaggerFile   = "docs/swagger.yml"
)

func newLogger(cfg *config.Config) *httplog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	return httplog.NewLogger("tinyurl", httplog.Options{
		JSON:     cfg.Env == config.EnvProd,
		LogLevel: level,
		Concise:  cfg.Env != config.EnvDev,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

// newHandler builds the use case and the router around it. A nil limiter
// disables rate limiting.
func newHandler(
	logger *httplog.Logger,
	cfg *config.Config,
	db *sqlx.DB,
	limiter *ratelimit.Limiter,
	reg *prometheus.Registry,
) (http.Handler, error) {
	const op = "app.newHandler"

	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create metrics recorder: %w", op, err)
	}

	urlRepo := repository.NewURLRepository(db)
	urlUseCase := usecase.New(usecase.Config{
		BaseURL:           cfg.Shortener.BaseURL,
		CodeLength:        cfg.Shortener.CodeLength,
		MaxRetries:        cfg.Shortener.MaxRetries,
		DefaultExpiryDays: cfg.Shortener.DefaultExpiryDays,
	}, urlRepo, usecase.WithMetrics(recorder))

	opts := []delivery.RouterOption{
		delivery.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		delivery.WithSwagger(swaggerFile),
	}
	if limiter != nil {
		opts = append(opts, delivery.WithRateLimiter(limiter))
	}

	return delivery.NewRouter(logger, urlUseCase, opts...), nil
}

// Run connects to the configured stores, applies migrations and serves HTTP
// until ctx is done.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg)

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(migrationsURL, cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rdb, err := redis.New(
			ctx,
			cfg.Redis.Addr(),
			redis.WithPassword(cfg.Redis.Password),
			redis.WithDB(cfg.Redis.DB),
		)
		if err != nil {
			return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}
		defer rdb.Close()

		limiter = ratelimit.NewLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r, err := newHandler(logger, cfg, db, limiter, reg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
