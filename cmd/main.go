package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"query-api/configs"
	"query-api/internal/catalog"
	"query-api/internal/metrics"
	"query-api/internal/query"
	"query-api/pkg/cache"
	"query-api/pkg/db"
	"query-api/pkg/logger"
	"query-api/pkg/middleware"
	"query-api/pkg/redis"
	"query-api/pkg/res"
	"query-api/pkg/telemetry"
)

// App builds everything the handlers share: pool, catalog and cache. The
// returned func releases them and must be called once the server stops.
func App(conf *configs.Config) (http.Handler, func(), error) {
	conn, err := db.NewConnection(conf)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() {
		_ = conn.Close()
		logger.Info().Msg("Database connection pool closed")
	}}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := telemetry.RegisterDBStats(conn.DB, conf.DbConfig.Database); err != nil {
		logger.Warn().Err(err).Msg("Pool metrics not registered")
	}

	queries, err := catalog.Load(conf.Queries.Path)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if conf.Queries.EnforceReadOnly {
		if err := queries.ValidateReadOnly(); err != nil {
			closeAll()
			return nil, nil, &catalog.ConfigError{Source: conf.Queries.Path, Err: err}
		}
	}

	var store cache.Store
	switch conf.Cache.Backend {
	case "redis":
		rdb, err := redis.NewRedis(conf)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		store = cache.NewRedis(rdb.Client())
	case "none":
		store = cache.Nop{}
	default:
		store = cache.NewMemory()
	}
	cached := cache.Middleware(store, conf.Cache.TTL)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logging)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		res.Error(w, "Not found", http.StatusNotFound)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		res.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// services
	queryService := query.NewService(queries, query.NewRepository(conn), conf.DbConfig.QueryTimeout)

	// controllers
	query.NewController(router, query.ControllerDeps{
		Service: queryService,
		Cache:   cached,
	})
	metrics.NewController(router, metrics.ControllerDeps{
		Service: queryService,
		Cache:   cached,
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Probe(r.Context()); err != nil {
			logger.Ctx(r.Context()).Error().Err(err).Msg("Health probe failed")
			res.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		res.Json(w, map[string]string{"status": res.StatusSuccess}, http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	logger.Info().
		Int("queries", queries.Len()).
		Str("cache", conf.Cache.Backend).
		Dur("cache_ttl", conf.Cache.TTL).
		Msg("Application initialised")

	return router, closeAll, nil
}

func run() error {
	conf, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Level:      conf.Log.Level,
		Format:     conf.Log.Format,
		File:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
	})
	logger.Info().Msg("Starting query API service")

	app, closeApp, err := App(conf)
	if err != nil {
		return err
	}
	defer closeApp()

	server := http.Server{
		Addr:    conf.Server.Addr,
		Handler: app,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", conf.Server.Addr).Msg("Server is listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func main() {
	if err := run(); err != nil {
		var cfgErr *catalog.ConfigError
		switch {
		case errors.Is(err, db.ErrPoolInit):
			logger.Error().Err(err).Msg("Failed to create connection pool")
		case errors.As(err, &cfgErr):
			logger.Error().Err(err).Str("source", cfgErr.Source).Msg("Failed to load query catalog")
		default:
			logger.Error().Err(err).Msg("Service stopped with error")
		}
		os.Exit(1)
	}
}
