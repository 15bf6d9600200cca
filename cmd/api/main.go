package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/routes"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/chat"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/orders"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/presence"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/realtime"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/auth/session"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/instance"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/metrics"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/migrate"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/outbox"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp("api", cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := metrics.NewProcessRegistry()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	chatService, err := chat.NewService(chat.ServiceParams{
		Repository: chat.NewRepository(dbClient.DB()),
		TxRunner:   dbClient,
		Outbox:     outboxService,
		Logger:     logg,
		Metrics:    metrics.NewChatMetrics(registry),
	})
	if err != nil {
		logg.Error(ctx, "failed to create chat service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(dbClient.DB()),
		TxRunner:   dbClient,
		Outbox:     outboxService,
		Logger:     logg,
		Metrics:    metrics.NewOrderMetrics(registry),
		Numbers:    orders.NewOrderNumber,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	gateway, err := realtime.NewGateway(realtime.GatewayParams{
		Config:   cfg.Realtime,
		Chat:     chatService,
		Presence: presence.NewRegistry(),
		Logger:   logg,
		Metrics:  metrics.NewRealtimeMetrics(registry),

		Limiter:   redisClient,
		RateLimit: cfg.RateLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create realtime gateway", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			registry,
			chatService,
			ordersService,
			gateway,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		gateway.Shutdown(shutdownCtx),
		server.Shutdown(shutdownCtx),
	)
	if err != nil {
		logg.Error(shutdownCtx, "api server shutdown incomplete", err)
	}
}
