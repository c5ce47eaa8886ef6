// cmd/forecast-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"forecast-narrator/internal/common/config"
	"forecast-narrator/internal/common/database"
	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/common/observability"
	"forecast-narrator/internal/forecast"
	"forecast-narrator/internal/provider"
	"forecast-narrator/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", "")
		bootLog.Error("config load failed", zap.Error(err))
		_ = bootLog.Sync()
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting forecast server",
		zap.String("environment", cfg.App.Environment),
		zap.String("model", cfg.Provider.Model),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel prometheus exporter unavailable, model metrics disabled", zap.Error(err))
	}

	providerCfg := provider.LoadConfig(cfg.Provider)
	client, err := provider.NewOpenAIClient(providerCfg, log, obs)
	if err != nil {
		zapLog.Fatal("model provider client init failed", zap.Error(err))
	}
	invoker := provider.WithRateLimit(client, providerCfg.RequestsPerSecond, providerCfg.Burst)

	svc := forecast.NewService(invoker, forecast.NewPromptBuilder(), forecast.NewParser(), log)

	opts := server.Options{
		Config:    cfg,
		Logger:    log,
		Forecast:  forecast.NewHandler(svc, log),
		Readiness: map[string]server.ReadinessCheck{},
	}

	if cfg.RateLimit.Enabled {
		redis := database.NewRedis(cfg.RateLimit.Redis)
		err = retryWithBackoff(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redis.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			// the limiter fails open, so serve without it being reachable yet
			zapLog.Warn("redis unreachable, rate limiting will fail open", zap.Error(err))
		} else {
			zapLog.Info("Redis connected successfully")
		}
		defer redis.Close()

		opts.RateLimiter = server.NewRateLimiter(redis, cfg.RateLimit.RequestsPerMinute, log)
		opts.Readiness["redis"] = redis.Ping
	}

	app := server.NewApp(opts)

	go func() {
		addr := cfg.Server.Addr()
		zapLog.Info("listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			zapLog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("shutting down server...")
	if err := app.ShutdownWithTimeout(config.GetDuration(cfg.Server.ShutdownTimeout)); err != nil {
		zapLog.Error("forced shutdown", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("server exited gracefully")
}
