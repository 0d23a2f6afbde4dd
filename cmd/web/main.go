package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/tourney-engine/internal/cache"
	"github.com/AdamBeresnev/tourney-engine/internal/config"
	"github.com/AdamBeresnev/tourney-engine/internal/db"
	"github.com/AdamBeresnev/tourney-engine/internal/events"
	"github.com/AdamBeresnev/tourney-engine/internal/service"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		defer nats.Close()
		publisher = nats
		log.Info("publishing events", "subject", cfg.NATSSubject)
	}

	engine := service.NewEngine(service.Deps{
		Store:        st,
		Cache:        c,
		Publisher:    publisher,
		Logger:       log,
		StandingsTTL: cfg.StandingsTTL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(engine, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.DBDriver == config.DBMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	database, err := db.Open(cfg.SQLDriver(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(database.DB, cfg.SQLDriver()); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store.NewSQLStore(database), func() { database.Close() }, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	switch cfg.CacheDriver {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, "tourney:")
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil
	case config.CacheNone:
		return cache.Nop{}, func() {}, nil
	default:
		return cache.NewMemoryCache(), func() {}, nil
	}
}
