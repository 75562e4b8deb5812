package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/clients"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/fjod/go_cart/storefront/internal/telemetry"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	providers, err := telemetry.Setup(ctx, telemetry.Settings{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Error("failed to flush telemetry", "error", err)
		}
	}()
	logger.Info("telemetry ready", "tracing", providers.Tracing())

	recorder, err := metrics.New(providers.MeterProvider)
	if err != nil {
		logger.Error("failed to create metric instruments", "error", err)
		os.Exit(1)
	}

	cartStore, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize cart store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("cart store ready", "store", cfg.Store)

	opts := clients.Options{
		Timeout:        cfg.UpstreamTimeout,
		MaxFailures:    cfg.BreakerFailures,
		BreakerTimeout: cfg.BreakerTimeout,
		Logger:         logger,
	}
	users := clients.NewUserClient(clients.NewClient("auth", cfg.BackendURL, opts))
	products := clients.NewProductClient(clients.NewClient("products", cfg.BackendURL, opts))
	addresses := clients.NewAddressClient(clients.NewClient("addresses", cfg.BackendURL, opts))
	orders := clients.NewOrderClient(clients.NewClient("orders", cfg.BackendURL, opts))

	deps := checkout.Deps{
		Addresses: addresses,
		Orders:    orders,
		Logger:    logger,
	}
	if cfg.LiveStockCheck {
		deps.Catalog = products
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub := publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("failed to close kafka writer", "error", err)
			}
		}()
		deps.Events = pub
	}

	carts := h.NewCarts(cartStore, cfg.TaxRate, logger)
	handler := h.NewRouter(h.RouterConfig{
		Auth:               users,
		Cart:               h.NewCartHandler(carts, products, recorder, logger, cfg.RequestTimeout),
		Checkout:           h.NewCheckoutHandler(checkout.NewRegistry(), carts, deps, recorder, cfg.RequestTimeout),
		Metrics:            providers.MetricsHandler,
		Logger:             logger,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("storefront starting", "port", cfg.HTTPPort, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server exited")
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store.NewRedisStore(client, cfg.CartTTL), func() { _ = client.Close() }, nil

	case config.StoreMongo:
		db, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		ms := store.NewMongoStore(db)
		if err := ms.CreateIndexes(ctx, cfg.CartTTL); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, nil, err
		}
		return ms, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	case config.StoreSQLite, config.StorePostgres:
		dialect, dsn := store.DialectSQLite, cfg.SQLitePath
		if cfg.Store == config.StorePostgres {
			dialect, dsn = store.DialectPostgres, cfg.PostgresDSN
		}
		ss, err := store.NewSQLStore(dialect, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := ss.Migrate(); err != nil {
			_ = ss.Close()
			return nil, nil, err
		}
		return ss, func() { _ = ss.Close() }, nil

	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}
