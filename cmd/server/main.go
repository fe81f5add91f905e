package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dukerupert/atelier/internal"
	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/email"
	"github.com/dukerupert/atelier/internal/handler/admin"
	"github.com/dukerupert/atelier/internal/handler/storefront"
	"github.com/dukerupert/atelier/internal/jobs"
	"github.com/dukerupert/atelier/internal/lock"
	"github.com/dukerupert/atelier/internal/memstore"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/notify"
	"github.com/dukerupert/atelier/internal/postgres"
	"github.com/dukerupert/atelier/internal/router"
	"github.com/dukerupert/atelier/internal/routes"
	"github.com/dukerupert/atelier/internal/service"
	"github.com/dukerupert/atelier/internal/storage"
	"github.com/dukerupert/atelier/internal/telemetry"
	"github.com/dukerupert/atelier/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Storage backend
	var (
		store domain.Store
		pool  *pgxpool.Pool
	)
	if cfg.DatabaseUrl != "" {
		pool, err = openDatabase(ctx, cfg.DatabaseUrl, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = memstore.NewStore()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewMetrics("atelier", registry)
	businessMetrics := telemetry.NewBusinessMetrics("atelier", registry)

	// Product image storage
	images, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Image storage initialized", "provider", cfg.Storage.Provider)

	// Initialize services
	clk := clock.Real{}
	pricingService := service.NewPricingService(store.Products, clk, businessMetrics, logger)
	catalogService := service.NewCatalogService(store, pricingService, images, clk, businessMetrics, logger)
	saleService := service.NewSaleService(store, pricingService, clk, businessMetrics, logger)
	cartService := service.NewCartService(store, clk, businessMetrics, logger)
	orderService := service.NewOrderService(store, clk, businessMetrics, logger)
	addressService := service.NewAddressService(store, logger)

	// Sale lifecycle scheduler
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		redisLock, err := lock.NewRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisLock.Close()
		locker = redisLock
		logger.Info("Using redis lock for sale scheduler")
	}
	scheduler := worker.NewScheduler(saleService, locker, cfg.Scheduler, logger, businessMetrics)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Order notifications
	handleOrderPlaced, err := orderPlacedHandler(cfg, store, logger)
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if cfg.NatsURL != "" {
		conn, err := notify.Connect(cfg.NatsURL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer conn.Close()

		consumer := worker.NewNotificationConsumer(conn, handleOrderPlaced, logger, businessMetrics)
		if err := consumer.Start(); err != nil {
			return fmt.Errorf("failed to start notification consumer: %w", err)
		}
		defer consumer.Stop()

		notifier = notify.NewNATSNotifier(conn, logger, businessMetrics)
	} else {
		logNotifier := notify.NewLogNotifier(handleOrderPlaced, logger, businessMetrics)
		defer logNotifier.Wait()
		notifier = logNotifier
	}

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	defaultLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer defaultLimiter.Stop()
	writeLimiter := middleware.NewRateLimiter(middleware.CheckoutRateLimiterConfig())
	defer writeLimiter.Stop()

	storefrontDeps := routes.StorefrontDeps{
		CatalogHandler: storefront.NewCatalogHandler(catalogService),
		CartHandler:    storefront.NewCartHandler(cartService),
		OrderHandler:   storefront.NewOrderHandler(orderService, cartService, notifier, logger),
		AddressHandler: storefront.NewAddressHandler(addressService),
		WriteLimit:     writeLimiter.Middleware,
	}

	adminDeps := routes.AdminDeps{
		CatalogHandler: admin.NewCatalogHandler(catalogService),
		UploadHandler:  admin.NewUploadHandler(images, logger),
		SaleHandler:    admin.NewSaleHandler(saleService),
		OrderHandler:   admin.NewOrderHandler(orderService),
	}

	opsDeps := routes.OpsDeps{
		Health:  healthHandler(pool),
		Metrics: httpMetrics.Handler(),
	}
	if cfg.Storage.Provider == "local" {
		opsDeps.UploadsDir = cfg.Storage.LocalPath
		opsDeps.UploadsURL = cfg.Storage.LocalURL
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0
	}

	auth := middleware.NewAuthenticator(cfg.JWTSecret)

	r := router.New(
		router.Recovery(logger),
		telemetry.SentryMiddleware(),
		middleware.RequestID,
		httpMetrics.Middleware,
		middleware.Timeout(middleware.DefaultTimeout),
		auth.Authenticate,
		middleware.SecurityHeaders(securityConfig),
		defaultLimiter.Middleware,
		telemetry.SentryContextMiddleware(sentryUser),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	routes.RegisterStorefrontRoutes(r, storefrontDeps)
	routes.RegisterAdminRoutes(r, adminDeps)
	routes.RegisterOpsRoutes(r, opsDeps)

	var h http.Handler = r
	if len(cfg.CORSOrigins) > 0 {
		h = router.CORS(cfg.CORSOrigins)(r)
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// openDatabase runs pending migrations and returns the application pool.
func openDatabase(ctx context.Context, url string, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// orderPlacedHandler returns the confirmation mailer when SMTP is configured,
// otherwise a handler that only logs the event.
func orderPlacedHandler(cfg *internal.Config, store domain.Store, logger *slog.Logger) (notify.Handler, error) {
	if !cfg.Email.Enabled() {
		logger.Info("SMTP not configured, order confirmations will only be logged")
		return func(ctx context.Context, event notify.OrderPlacedEvent) error {
			logger.Info("order placed", "order_id", event.OrderID, "total", event.Total)
			return nil
		}, nil
	}

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     int(cfg.Email.Port),
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}, logger)
	mailer, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	return jobs.NewOrderConfirmation(mailer, store.Colors).Handle, nil
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func sentryUser(ctx context.Context) *telemetry.UserInfo {
	id := middleware.GetIdentity(ctx)
	if id == nil {
		return nil
	}
	return &telemetry.UserInfo{ID: id.UserID, Role: string(id.Role)}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
