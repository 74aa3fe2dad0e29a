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

	"github.com/fjod/go_pizza/internal/cache"
	"github.com/fjod/go_pizza/internal/catalog"
	"github.com/fjod/go_pizza/internal/config"
	"github.com/fjod/go_pizza/internal/events"
	h "github.com/fjod/go_pizza/internal/http"
	"github.com/fjod/go_pizza/internal/logger"
	"github.com/fjod/go_pizza/internal/metrics"
	"github.com/fjod/go_pizza/internal/repository"
	"github.com/fjod/go_pizza/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pizza api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(os.Stdout, cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)

	// Incoming traceparent headers reach request contexts and the logs.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx := context.Background()

	catalogRepo, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer catalogRepo.Close()

	orderRepo, err := openOrders(ctx, cfg)
	if err != nil {
		return err
	}
	defer orderRepo.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg, "api")
	orderMetrics := metrics.NewOrderMetrics(reg)

	opts := []service.Option{service.WithLogger(log), service.WithMetrics(orderMetrics)}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
		opts = append(opts, service.WithCache(cache.NewRedisCache(redisClient)))
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()
	opts = append(opts, service.WithPublisher(publisher))

	router := h.NewRouter(h.RouterConfig{
		Orders:             service.NewOrderService(orderRepo, opts...),
		Catalog:            catalog.NewService(catalogRepo),
		Logger:             log,
		Metrics:            serverMetrics,
		MetricsHandler:     metrics.Handler(reg),
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, cfg.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("pizza api starting", "port", cfg.HTTPPort,
			"catalog_store", cfg.CatalogStore, "order_store", cfg.OrderStore, "events_broker", cfg.EventsBroker)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func openCatalog(cfg *config.Config) (catalog.Repository, error) {
	if cfg.CatalogStore == config.CatalogJSONFile {
		repo, err := catalog.NewJSONFileRepository(cfg.CatalogDataDir)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	repo, err := catalog.NewSQLiteRepository(cfg.CatalogDBPath)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

func openOrders(ctx context.Context, cfg *config.Config) (repository.OrderRepository, error) {
	switch cfg.OrderStore {
	case config.OrdersMemory:
		return repository.NewMemoryStore(), nil
	case config.OrdersPostgres:
		repo, err := repository.NewPostgresRepository(ctx, &cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(&cfg.Postgres); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	case config.OrdersMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		slog.Info("connected to mongodb", "db", cfg.MongoDBName)
		return repo, nil
	default:
		repo, err := repository.NewJSONFileStore(cfg.OrdersFile)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

func openPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsBroker {
	case config.BrokerKafka:
		p := events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		return events.NewBreakerPublisher(p, events.BreakerSettings{Name: "kafka"}), nil
	case config.BrokerRabbitMQ:
		p, err := events.DialRabbit(cfg.RabbitMQURL, cfg.RabbitExchange)
		if err != nil {
			return nil, err
		}
		return events.NewBreakerPublisher(p, events.BreakerSettings{Name: "rabbitmq"}), nil
	default:
		return events.Noop{}, nil
	}
}
