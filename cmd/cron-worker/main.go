package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/chat"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/cron"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/instance"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/metrics"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/migrate"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/outbox"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName
	logg := logger.ForApp(serviceName, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"worker_id":   instance.ID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName), instance.ID(), cfg.Cron.Interval+time.Hour)
	if err != nil {
		return fmt.Errorf("create cron lock: %w", err)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		Repository:   outbox.NewRepository(dbClient.DB()),
		DLQ:          outbox.NewDLQRepository(dbClient.DB()),
		Retention:    cfg.Outbox.RetentionDays,
		DLQRetention: cfg.Outbox.DLQRetentionDays,
	})
	if err != nil {
		return fmt.Errorf("create outbox retention job: %w", err)
	}
	unreadJob, err := cron.NewUnreadReconcileJob(cron.UnreadReconcileJobParams{
		Logger:     logg,
		Repository: chat.NewRepository(dbClient.DB()),
		Lookback:   2 * cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("create unread reconcile job: %w", err)
	}

	promRegistry := metrics.NewProcessRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(retentionJob, unreadJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(promRegistry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(gctx, ":"+cfg.App.Port, promRegistry, logg)
	})
	g.Go(func() error {
		if err := service.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}
