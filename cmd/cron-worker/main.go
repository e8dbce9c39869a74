package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/namhbcf1/smartpos-sub019/internal/cron"
	"github.com/namhbcf1/smartpos-sub019/internal/reconcile"
	"github.com/namhbcf1/smartpos-sub019/internal/reservation"
	"github.com/namhbcf1/smartpos-sub019/internal/units"
	"github.com/namhbcf1/smartpos-sub019/pkg/config"
	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
	"github.com/namhbcf1/smartpos-sub019/pkg/metrics"
	"github.com/namhbcf1/smartpos-sub019/pkg/migrate"
	"github.com/namhbcf1/smartpos-sub019/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeClients(dbClient, redisClient); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	unitRepo := units.NewRepository(dbClient.DB())
	reconcileService := reconcile.NewService(dbClient, unitRepo, cfg.Warranty, logg)
	reservationManager := reservation.NewManager(dbClient, cfg.Reservation)

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	stockSyncJob, err := cron.NewStockSyncJob(cron.StockSyncJobParams{Logger: logg, Reconciler: reconcileService})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock sync job", err)
		os.Exit(1)
	}
	soldBackfillJob, err := cron.NewSoldBackfillJob(cron.SoldBackfillJobParams{Logger: logg, Reconciler: reconcileService})
	if err != nil {
		logg.Error(context.Background(), "failed to create sold backfill job", err)
		os.Exit(1)
	}
	warrantyBackfillJob, err := cron.NewWarrantyBackfillJob(cron.WarrantyBackfillJobParams{Logger: logg, Reconciler: reconcileService})
	if err != nil {
		logg.Error(context.Background(), "failed to create warranty backfill job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRunLock(redisClient, lockKey(redisClient, cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Schedule: cron.NewSchedule(stockSyncJob, soldBackfillJob, warrantyBackfillJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	sweeper, err := cron.NewSweeper(cron.SweeperParams{
		Logger:   logg,
		Manager:  reservationManager,
		Metrics:  jobMetrics,
		Interval: cfg.Reservation.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hold sweeper", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	go serveMetrics(ctx, logg, cfg.App.Port)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "hold sweeper stopped unexpectedly", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(redisClient *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return redisClient.LockKey(fmt.Sprintf("cron-worker:%s", env))
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func closeClients(dbClient *db.Client, redisClient *redis.Client) error {
	var err error
	if dbClient != nil {
		err = multierr.Append(err, dbClient.Close())
	}
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	return err
}
