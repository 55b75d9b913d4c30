package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/insominiac/dancelink-staging-sub000/internal/app"
	"github.com/insominiac/dancelink-staging-sub000/internal/clock"
	"github.com/insominiac/dancelink-staging-sub000/internal/config"
	"github.com/insominiac/dancelink-staging-sub000/internal/metrics"
	"github.com/insominiac/dancelink-staging-sub000/internal/storage/postgres"
	"github.com/insominiac/dancelink-staging-sub000/internal/storage/rediscache"
	transporthttp "github.com/insominiac/dancelink-staging-sub000/internal/transport/http"
	"github.com/insominiac/dancelink-staging-sub000/migrations"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	logger := log.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse database config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)

	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var collectors *metrics.Metrics
	if cfg.Metrics.Enabled {
		collectors = metrics.New(cfg.Metrics.ServiceName)
		logger.Printf("metrics enabled at %s", cfg.Metrics.Path)
	}

	clk := clock.NewSystem()
	holdRepo := postgres.NewHoldRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)

	availabilitySvc := app.NewAvailabilityService(holdRepo, clk)
	availability := transporthttp.AvailabilityProvider(availabilitySvc)
	invalidator := app.NoopInvalidator()

	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.Addr,
			DB:   cfg.Cache.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(startupCtx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		cache := rediscache.New(availabilitySvc, rdb, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		availability = cache
		invalidator = cache
		logger.Printf("availability cache enabled addr=%s ttl=%ds", cfg.Cache.Addr, cfg.Cache.TTLSeconds)
	}

	ledgerSvc := app.NewLedgerService(holdRepo, clk,
		app.WithHoldDuration(time.Duration(cfg.Hold.DurationSeconds)*time.Second),
		app.WithMetrics(collectors),
		app.WithInvalidator(invalidator),
	)
	catalogSvc := app.NewCatalogService(itemRepo)

	sweeper := app.NewSweeper(holdRepo, clk,
		app.WithSweepInterval(time.Duration(cfg.Sweep.IntervalSeconds)*time.Second),
		app.WithSweepBatchSize(cfg.Sweep.BatchSize),
		app.WithSweepLogger(logger),
		app.WithSweepMetrics(collectors),
		app.WithSweepInvalidator(invalidator),
	)

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Ledger:       ledgerSvc,
		Availability: availability,
		Catalog:      catalogSvc,
		Logger:       logger,
		Metrics:      collectors,
		MetricsPath:  cfg.Metrics.Path,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper.Start(sweepCtx)

	logger.Printf("api listening on :%d hold_duration=%ds", cfg.Server.HTTPPort, cfg.Hold.DurationSeconds)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		logger.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server shutdown error: %v", err)
	}

	sweeper.Stop()
	logger.Printf("server stopped")
}
