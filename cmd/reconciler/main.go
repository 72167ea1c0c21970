package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/tair/payreto-reconciler/internal/config"
	"github.com/tair/payreto-reconciler/internal/reconciliation"
	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/handler"
	"github.com/tair/payreto-reconciler/internal/reconciliation/repository"
	"github.com/tair/payreto-reconciler/internal/reconciliation/usecase/command"
	"github.com/tair/payreto-reconciler/kafka"
	"github.com/tair/payreto-reconciler/pkg/database"
	"github.com/tair/payreto-reconciler/pkg/lock"
	"github.com/tair/payreto-reconciler/pkg/logger"
	"github.com/tair/payreto-reconciler/pkg/tracing"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	logger.Init(logger.Options{
		ServiceName: cfg.ServiceName,
		Development: cfg.Development(),
		Level:       cfg.LogLevel,
	})

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("storage", cfg.StorageDriver).
		Msg("Starting Payreto reconciler")

	// Initialize tracer
	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "1.0.0",
		JaegerEndpoint: cfg.JaegerEndpoint,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	stores, sqlDB := openStores(cfg)
	if sqlDB != nil {
		defer sqlDB.Close()
	}

	var locker lock.Locker = lock.NoopLocker{}
	var limiter *handler.RateLimiter
	if redisClient := openRedis(cfg); redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Redis.LockTTL)
		if cfg.Redis.RateLimitPerMinute > 0 {
			limiter = handler.NewRateLimiter(redisClient, cfg.Redis.RateLimitPerMinute, time.Minute)
		}
	}

	// Ledger events are optional; the booking itself never depends on them
	var publisher domain.RecordPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.LedgerTopic)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to initialize Kafka publisher, ledger events disabled")
		} else {
			defer kafkaPublisher.Close()
			publisher = kafkaPublisher
		}
	}

	metrics := handler.NewMetrics(prometheus.DefaultRegisterer)

	// Initialize handler with Wire DI
	reconciliationHandler, err := reconciliation.InitializeHandler(
		stores,
		reconciliation.Options{
			Namespace:    cfg.Payreto.PluginNamespace,
			MethodPrefix: cfg.Payreto.MethodPrefix,
			Policy:       command.Policy{StrictTransitions: cfg.Payreto.StrictTransitions},
		},
		publisher,
		metrics,
		locker,
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	logger.Logger.Info().
		Str("namespace", cfg.Payreto.PluginNamespace).
		Bool("strict_transitions", cfg.Payreto.StrictTransitions).
		Msg("Reconciliation handler initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, []string{cfg.Kafka.NotificationTopic})
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to initialize Kafka consumer, relayed notifications disabled")
		} else {
			defer consumer.Close()
			reconciliationHandler.RegisterEventHandlers(consumer)
			if err := consumer.Start(ctx); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to start Kafka consumer")
			}
		}
	}

	middlewareConfig := handler.DefaultMiddlewareConfig(metrics)
	middlewareConfig.RateLimiter = limiter
	server := newHTTPServer(reconciliationHandler, middlewareConfig, sqlDB, cfg.HTTPPort)
	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}
}

func openStores(cfg *config.Config) (repository.Stores, *sql.DB) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Logger.Warn().Msg("Using in-memory storage, records are lost on restart")
		return repository.NewMemoryStores(repository.NewMemoryStore()), nil
	}

	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}

	if err := repository.AutoMigrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")
	return repository.NewGormStores(db), sqlDB
}

func openRedis(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Logger.Warn().Msg("REDIS_ADDR not set, transaction locking and rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}

	logger.Logger.Info().
		Str("addr", cfg.Redis.Addr).
		Dur("lock_ttl", cfg.Redis.LockTTL).
		Int("rate_limit_per_minute", cfg.Redis.RateLimitPerMinute).
		Msg("Redis connected")
	return client
}

func newHTTPServer(h *handler.ReconciliationHandler, middlewareConfig handler.MiddlewareConfig, db *sql.DB, port string) *http.Server {
	router := mux.NewRouter()

	handler.RegisterMiddlewares(router, middlewareConfig)

	h.RegisterRoutes(router)
	h.RegisterHealthCheck(router, db)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return &http.Server{
		Addr:              ":" + port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
