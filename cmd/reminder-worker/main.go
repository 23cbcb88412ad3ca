package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/amaraspa/scheduling-platform/internal/config"
	"github.com/amaraspa/scheduling-platform/internal/observability/metrics"
	"github.com/amaraspa/scheduling-platform/internal/reminders"
	"github.com/amaraspa/scheduling-platform/internal/sms"
	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).WithComponent("reminder-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" || cfg.SMSGatewayBaseURL == "" || cfg.SMSAPIKey == "" {
		logger.Error("reminder worker requires DATABASE_URL, SMS_GATEWAY_BASE_URL and SMS_API_KEY")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	gateway, err := sms.NewClient(sms.Config{
		BaseURL:    cfg.SMSGatewayBaseURL,
		APIKey:     cfg.SMSAPIKey,
		SenderCode: cfg.SMSSenderCode,
		Timeout:    cfg.SMSRequestTimeout,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create SMS gateway client", "error", err)
		os.Exit(1)
	}
	sender := sms.NewRetrySender(gateway, cfg.SMSCountryCode, logger).
		WithMaxRetries(cfg.SMSMaxRetries).
		WithBaseDelay(cfg.SMSRetryBaseDelay)

	reminderMetrics := metrics.NewReminderMetrics(prometheus.DefaultRegisterer)
	dispatcher := reminders.NewDispatcher(
		reminders.NewSettingsStore(redisClient),
		reminders.NewStore(pool, cfg.HasOptOutColumn),
		sender,
		cfg.Location(),
		reminderMetrics,
		logger,
	).
		WithBatchLimit(cfg.ReminderBatchLimit).
		WithInterval(cfg.DispatchInterval)

	logger.Info("reminder worker started",
		"interval", cfg.DispatchInterval,
		"batch_limit", cfg.ReminderBatchLimit,
	)
	go dispatcher.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("reminder worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}
