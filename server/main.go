package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourhub/api/routes"
	"tourhub/internal/bookings"
	"tourhub/internal/cancellation"
	"tourhub/internal/disputes"
	"tourhub/internal/gateway"
	"tourhub/internal/notifications"
	"tourhub/internal/policies"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/config"
	"tourhub/internal/shared/constants"
	"tourhub/internal/shared/database"
	"tourhub/internal/shared/idempotency"
	"tourhub/pkg/logger"
	"tourhub/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)
	appLogger = logger.NewWithLevel(cfg.LogLevel)
	logger.SetDefault(appLogger)

	db, err := database.InitDB(cfg,
		&bookings.Booking{},
		&policies.CancellationPolicy{},
		&policies.CancellationRule{},
		&cancellation.CancellationRequest{},
		&refunds.RefundRecord{},
		&disputes.DisputeCase{},
		&disputes.Evidence{},
		&disputes.Communication{},
		&idempotency.Record{},
	)
	if err != nil {
		appLogger.Error("failed to initialize databases", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Rate limiter
	var rateLimiter *ratelimit.RateLimiter
	switch {
	case !cfg.RateLimit.Enabled:
		appLogger.Info("Rate limiting disabled")
	case db.GetRedis() == nil:
		appLogger.Warn("Rate limiting skipped: Redis unavailable")
	default:
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedis(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			KeyPrefix:       constants.RATE_LIMIT_PREFIX,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			CommandRequests: cfg.RateLimit.CommandRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			GatewayRequests: cfg.RateLimit.GatewayRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("command_requests", cfg.RateLimit.CommandRequests),
		)
	}

	// Notifications
	notificationDispatcher := notifications.NewDispatcher(newNotificationProducer(cfg, appLogger), cfg.Kafka.NotificationBuffer, appLogger.Logger)
	notificationCtx, notificationCancel := context.WithCancel(context.Background())
	defer notificationCancel()
	if err := notificationDispatcher.Start(notificationCtx); err != nil {
		appLogger.Error("Failed to start notification dispatcher", slog.Any("error", err))
	}
	defer func() {
		appLogger.Info("Stopping notification dispatcher...")
		if err := notificationDispatcher.Stop(); err != nil {
			appLogger.Error("Error stopping notification dispatcher", slog.Any("error", err))
		}
	}()

	// Payment gateway
	transferDispatcher, closeTransfers := newTransferDispatcher(cfg, appLogger)
	defer closeTransfers()

	appRouter := routes.NewRouter(cfg, db, notificationDispatcher, transferDispatcher, appLogger)

	if cfg.Kafka.Enabled {
		consumerConfig := gateway.DefaultConsumerConfig()
		consumerConfig.Brokers = cfg.Kafka.Brokers
		consumerConfig.GroupID = cfg.Kafka.ConsumerGroupID
		consumerConfig.Topics = []string{cfg.Kafka.ResultTopic}

		consumer, err := gateway.NewResultConsumer(consumerConfig, appRouter.GatewayResultHandler(), appLogger.Logger)
		if err != nil {
			appLogger.Error("Failed to start refund result consumer, relying on the HTTP callback", slog.Any("error", err))
		} else {
			consumer.Start(context.Background(), cfg.Kafka.ConsumerWorkers)
			defer func() {
				if err := consumer.Stop(); err != nil {
					appLogger.Error("Error stopping refund result consumer", slog.Any("error", err))
				}
			}()
		}
	}

	router := setupRouter(appRouter, rateLimiter, appLogger)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.ErrorWithContext(context.Background(), "Server failed", err, map[string]interface{}{
				"address": cfg.GetServerAddress(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

// newNotificationProducer publishes to Kafka when it is reachable and
// falls back to logging notifications otherwise.
func newNotificationProducer(cfg *config.Config, appLogger *logger.Logger) notifications.Producer {
	if !cfg.Kafka.Enabled {
		return notifications.LogProducer{Logger: appLogger.Logger}
	}
	producerConfig := notifications.DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producerConfig.Topic = cfg.Kafka.NotificationTopic

	producer, err := notifications.NewKafkaProducer(producerConfig, appLogger.Logger)
	if err != nil {
		appLogger.Error("Kafka notification producer unavailable, logging notifications instead", slog.Any("error", err))
		return notifications.LogProducer{Logger: appLogger.Logger}
	}
	return producer
}

func newTransferDispatcher(cfg *config.Config, appLogger *logger.Logger) (gateway.Dispatcher, func()) {
	manual := gateway.ManualDispatcher{Logger: appLogger.Logger}
	if !cfg.Kafka.Enabled {
		return manual, func() {}
	}
	dispatcher, err := gateway.NewKafkaDispatcher(cfg.Kafka.Brokers, cfg.Kafka.TransferTopic, appLogger.Logger)
	if err != nil {
		appLogger.Error("Kafka transfer dispatcher unavailable, refunds will be settled manually", slog.Any("error", err))
		return manual, func() {}
	}
	return dispatcher, func() {
		if err := dispatcher.Close(); err != nil {
			appLogger.Error("Error closing transfer dispatcher", slog.Any("error", err))
		}
	}
}

func setupRouter(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) *gin.Engine {
	engine := gin.New()

	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
