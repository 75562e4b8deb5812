package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type StoreKind string

const (
	StoreRedis    StoreKind = "redis"
	StoreMongo    StoreKind = "mongo"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	// REST backend shared by the address, order, product and auth clients
	BackendURL      string
	UpstreamTimeout time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	TaxRate        decimal.Decimal
	LiveStockCheck bool

	Store         StoreKind
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration
	MongoURI      string
	MongoDBName   string
	SQLitePath    string
	PostgresDSN   string

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint string
	LogLevel     string
}

func Load() (*Config, error) {
	taxRate, err := decimal.NewFromString(getenv("TAX_RATE", "0.19"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid TAX_RATE %s: must be in [0, 1)", taxRate)
	}

	cfg := &Config{
		HTTPPort:           getenv("HTTP_PORT", "8080"),
		RequestTimeout:     parseDuration(getenv("REQUEST_TIMEOUT", "30s"), 30*time.Second),
		ShutdownTimeout:    parseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		BackendURL:      strings.TrimRight(getenv("BACKEND_URL", "http://localhost:8080"), "/"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),
		BreakerFailures: uint32(parseInt(getenv("BREAKER_MAX_FAILURES", "5"), 5)),
		BreakerTimeout:  parseDuration(getenv("BREAKER_TIMEOUT", "30s"), 30*time.Second),

		TaxRate:        taxRate,
		LiveStockCheck: parseBool(getenv("LIVE_STOCK_CHECK", "false")),

		Store:         StoreKind(strings.ToLower(getenv("CART_STORE", string(StoreRedis)))),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       parseInt(getenv("REDIS_DB", "0"), 0),
		CartTTL:       parseDuration(getenv("CART_TTL", "720h"), 30*24*time.Hour),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getenv("MONGO_DB_NAME", "storefront"),
		SQLitePath:    getenv("SQLITE_PATH", "storefront.db"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),

		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "checkout.completed"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}

	switch cfg.Store {
	case StoreRedis, StoreMongo, StoreSQLite, StoreMemory:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required when CART_STORE=%s", StorePostgres)
		}
	default:
		return nil, fmt.Errorf("unsupported CART_STORE %q", cfg.Store)
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
