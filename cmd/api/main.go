package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/amaraspa/scheduling-platform/internal/api/router"
	appconfig "github.com/amaraspa/scheduling-platform/internal/config"
	"github.com/amaraspa/scheduling-platform/internal/observability/metrics"
	"github.com/amaraspa/scheduling-platform/internal/reminders"
	"github.com/amaraspa/scheduling-platform/internal/scheduling"
	"github.com/amaraspa/scheduling-platform/internal/sms"
	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.ClinicTimezone,
	)

	ctx := context.Background()
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	schedulerMetrics := metrics.NewSchedulerMetrics(reg)
	reminderMetrics := metrics.NewReminderMetrics(reg)

	loc := cfg.Location()
	catalog := scheduling.NewCatalog(cfg.ServiceDurationsJSON, cfg.DefaultServiceMinutes, logger)
	schedStore := scheduling.NewStore(pool, cfg.HasOverridesTable)
	calculator := scheduling.NewCalculator(schedStore, loc, cfg.SlotGranularityMinutes, cfg.DefaultDayStart, cfg.DefaultDayEnd, logger)
	booking := scheduling.NewBookingService(schedStore, catalog, loc, schedulerMetrics, logger)
	schedulingHandler := scheduling.NewHandler(calculator, booking, schedStore, catalog, logger)

	settingsStore := reminders.NewSettingsStore(redisClient)
	reminderStore := reminders.NewStore(pool, cfg.HasOptOutColumn)

	// The dispatch loop lives in the reminder worker; the API only exposes the
	// manual trigger, and only when the gateway is configured.
	var dispatcher *reminders.Dispatcher
	if cfg.SMSGatewayBaseURL != "" && cfg.SMSAPIKey != "" {
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
		dispatcher = reminders.NewDispatcher(settingsStore, reminderStore, sender, loc, reminderMetrics, logger).
			WithBatchLimit(cfg.ReminderBatchLimit)
	} else {
		logger.Warn("SMS gateway not configured, manual reminder dispatch disabled")
	}
	remindersHandler := reminders.NewHandler(settingsStore, reminderStore, dispatcher, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		SchedulingHandler:  schedulingHandler,
		RemindersHandler:   remindersHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PublicRateLimit:    cfg.PublicRateLimit,
		PublicRateBurst:    cfg.PublicRateBurst,
		HealthCheck: func(req *http.Request) error {
			return pool.Ping(req.Context())
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
