package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/payreto-reconciler/pkg/database"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// KafkaConfig holds broker and topic settings
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	NotificationTopic string
	LedgerTopic       string
	ConsumerGroup     string
}

// RedisConfig holds the lock store settings. An empty Addr disables locking and rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
	// RateLimitPerMinute caps requests per client address; 0 disables the limiter
	RateLimitPerMinute int
}

// PayretoConfig holds gateway specific settings
type PayretoConfig struct {
	PluginNamespace   string
	MethodPrefix      string
	StrictTransitions bool
}

// Config holds the reconciler service configuration
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	HTTPPort       string
	JaegerEndpoint string
	StorageDriver  string
	Database       database.Config
	Kafka          KafkaConfig
	Redis          RedisConfig
	Payreto        PayretoConfig
}

// Development reports whether the service runs in a development environment
func (c *Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load reads an optional .env file and then the process environment
func Load() *Config {
	// .env is optional; real deployments inject the environment
	_ = godotenv.Load()

	return &Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "payreto-reconciler"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPPort:       getEnv("HTTP_PORT", "8084"),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "reconciler_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled:           getEnvBool("KAFKA_ENABLED", true),
			Brokers:           getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "payreto-notifications"),
			LedgerTopic:       getEnv("KAFKA_LEDGER_TOPIC", "ledger-records"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "payreto-reconciler"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("LOCK_TTL", 30*time.Second),

			RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
		},
		Payreto: PayretoConfig{
			PluginNamespace:   getEnv("PAYRETO_PLUGIN_NAMESPACE", "Payreto"),
			MethodPrefix:      getEnv("PAYRETO_METHOD_PREFIX", "PAYRETO_"),
			StrictTransitions: getEnvBool("STRICT_TRANSITIONS", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
