package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"medeasy/pos/internal/api"
	"medeasy/pos/internal/auth"
	"medeasy/pos/internal/cache"
	"medeasy/pos/internal/catalog"
	"medeasy/pos/internal/checkout"
	"medeasy/pos/internal/config"
	"medeasy/pos/internal/database"
	"medeasy/pos/internal/events"
	"medeasy/pos/internal/inventory"
	"medeasy/pos/internal/migrations"
	"medeasy/pos/internal/obs"
	"medeasy/pos/internal/seed"
	"medeasy/pos/internal/store"
)

func main() {
	cfg := config.Load()
	logger := obs.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database connect failed", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Run(db, cfg.DatabaseDriver); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	if cfg.SeedCSV != "" {
		if _, err := seed.LoadDrugsFile(context.Background(), db, cfg.SeedCSV, logger); err != nil {
			logger.Warn("drug seed skipped", "path", cfg.SeedCSV, "error", err)
		}
	}

	st := store.New(db)
	reader := catalog.NewReader(st)

	deps := checkout.Deps{
		Store:    st,
		Catalog:  reader,
		Flags:    st,
		Identity: auth.Identity{},
		Logger:   logger,
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		deps.Cache = cache.NewRedisCache(client)
		logger.Info("cart cache enabled", "addr", cfg.RedisAddr)
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer publisher.Close()
		deps.Events = publisher
		logger.Info("sale events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		deps.Events = events.NewLogPublisher(logger)
	}

	sessions := checkout.NewService(deps, cfg.CommitTimeout)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go sessions.Janitor(janitorCtx, time.Minute)

	handler := api.New(api.Options{
		Store:    st,
		Catalog:  reader,
		Checkout: sessions,
		Tokens:   auth.NewTokens(cfg.Secret),
		Alerts:   inventory.Options{LowStockLimit: cfg.LowStockLimit, ExpiryWindowDays: cfg.ExpiryWindowDays},
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.CommitTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("MedEasy POS server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	s := <-quit
	logger.Info("shutting down", "signal", s.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
