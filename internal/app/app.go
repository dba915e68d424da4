package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/GratienSA/escargotAPI/internal/auth"
	"github.com/GratienSA/escargotAPI/internal/catalog"
	"github.com/GratienSA/escargotAPI/internal/config"
	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/internal/event"
	handler "github.com/GratienSA/escargotAPI/internal/handler/http"
	"github.com/GratienSA/escargotAPI/internal/payment"
	postgresrepo "github.com/GratienSA/escargotAPI/internal/repository/postgres"
	redisrepo "github.com/GratienSA/escargotAPI/internal/repository/redis"
	"github.com/GratienSA/escargotAPI/internal/service"
	"github.com/GratienSA/escargotAPI/migrations"
	"github.com/GratienSA/escargotAPI/pkg/database"
	"github.com/GratienSA/escargotAPI/pkg/health"
	"github.com/GratienSA/escargotAPI/pkg/httpclient"
	pkgkafka "github.com/GratienSA/escargotAPI/pkg/kafka"
	"github.com/GratienSA/escargotAPI/pkg/middleware"
	"github.com/GratienSA/escargotAPI/pkg/tracing"
)

const serviceName = "escargot-api"

// App wires together all dependencies and runs the storefront API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	paymentEvents  *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing(serviceName, "0.1.0"))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL pool for orders.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	prometheus.MustRegister(database.NewPoolStatsCollector(pool, serviceName))

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis for session carts.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	// Kafka producer for domain events.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// HTTP client with circuit breaker for the catalog and payment services.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 100,
	})
	cbClient := httpclient.NewCircuitBreakerClient(
		baseClient,
		httpclient.DefaultCircuitBreakerConfig(serviceName+"-downstream"),
		logger,
	)

	catalogClient := catalog.NewClient(cbClient, cfg.CatalogBaseURL, logger)
	paymentClient := payment.NewClient(cbClient, cfg.PaymentBaseURL, logger)

	// Repositories, domain services and event plumbing.
	cartRepo := redisrepo.NewCartRepository(redisClient, cfg.CartTTL())
	orderRepo := postgresrepo.NewOrderRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	pricing := domain.PricingPolicy{
		TaxRateBps:       cfg.TaxRateBps,
		ShippingFeeCents: cfg.ShippingFeeCents,
		Currency:         cfg.Currency,
	}

	cartService := service.NewCartService(cartRepo, catalogClient, eventProducer, pricing, logger)
	checkoutService := service.NewCheckoutService(cartRepo, orderRepo, paymentClient, eventProducer, pricing, logger)

	// Payment settlement consumer. Dedup lives in Redis so replayed events
	// survive restarts.
	idempotency := pkgkafka.NewRedisIdempotencyStore(redisClient, 24*time.Hour)
	eventConsumer := event.NewConsumer(checkoutService, idempotency, logger)
	paymentEvents := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: serviceName,
		Topic:   event.TopicPaymentSucceeded,
	}, eventConsumer.HandlePaymentSucceeded, logger)

	verifier := auth.NewVerifier(cfg.JWTSecret)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins
	corsConfig.Environment = cfg.Environment
	corsConfig.AllowCredentials = true

	router := handler.NewRouter(
		cartService,
		checkoutService,
		catalogClient,
		verifier,
		healthHandler,
		logger,
		corsConfig,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		paymentEvents:  paymentEvents,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the payment event consumer, blocking until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting payment event consumer",
			slog.String("topic", "escargot.payment.succeeded"),
		)
		if err := a.paymentEvents.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("payment event consumer stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in dependency order: drain HTTP
// first, then flush spans, then the messaging layer, then the stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.paymentEvents.Close(); err != nil {
		a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
