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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/api/routes"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/remote"
	"github.com/angelmondragon/cartsync/internal/sessions"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/env"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
	"github.com/angelmondragon/cartsync/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartsync-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartsync-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(registry)

	client, err := remote.NewClientFromConfig(cfg.Remote)
	if err != nil {
		logg.Error(ctx, "failed to create cart service client", err)
		os.Exit(1)
	}

	var (
		flight      cart.Flight = cart.NewLocalFlight()
		redisPinger controllers.Pinger
	)
	if cfg.Redis.Enabled() {
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
		redisFlight, err := cart.NewRedisFlight(redisClient, cfg.Cart.CheckoutLockTTL, logg)
		if err != nil {
			logg.Error(ctx, "failed to create checkout lock", err)
			os.Exit(1)
		}
		flight = redisFlight
		redisPinger = redisClient
	}

	policy := cart.Policy{AllowVendor: cfg.Cart.AllowVendor}
	sessionRegistry, err := sessions.NewRegistry(sessions.Params{
		Factory: func() (*cart.Engine, error) {
			return cart.NewEngine(client, policy,
				cart.WithFlight(flight),
				cart.WithLogger(logg),
				cart.WithMetrics(cartMetrics),
				cart.WithMaxQuantity(cfg.Cart.MaxQuantity),
			)
		},
		Logger:  logg,
		IdleTTL: cfg.Cart.SessionIdleTTL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session registry", err)
		os.Exit(1)
	}
	if cfg.Cart.SessionIdleTTL > 0 {
		go func() {
			if err := sessionRegistry.Run(ctx, cfg.Cart.SessionIdleTTL/2); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "session sweeper stopped unexpectedly", err)
			}
		}()
	}

	addr := ":" + env.First(cfg.App.Port, "PORT")
	id := env.First("local", "DYNO")
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting cartsync api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, sessionRegistry, client, redisPinger, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down cartsync api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}
