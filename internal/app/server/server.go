package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/identity"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/notifications"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/workflow"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/cache"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/config"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/db"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/email"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/events"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/logger"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/metrics"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/tracing"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/api"
	notificationshandler "github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/handlers/notifications"
	requestshandler "github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/handlers/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/middleware"
)

const (
	serviceName  = "intranet-approvals"
	maxBodyBytes = 1 << 20
)

// Deps is everything the HTTP router needs. Nil Redis disables idempotency
// replay and nil Ready reports ready unconditionally.
type Deps struct {
	Logger             *zap.Logger
	Metrics            *metrics.Collector
	MetricsEnabled     bool
	JWTSecret          string
	Resolver           middleware.ActorResolver
	Ready              func(ctx context.Context) error
	Redis              redis.Cmdable
	IdempotencyTTL     time.Duration
	RateLimitPerMinute int
	Production         bool

	Requests      requestshandler.Engine
	Notifications notificationshandler.Service
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	perMinute := d.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 120
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log, d.Metrics))
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.SecureHeaders(d.Production))
	router.Use(middleware.BodyLimit(maxBodyBytes))
	router.Use(middleware.Auth(d.JWTSecret, d.Resolver, log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				log.Warn("readiness check failed", zap.Error(err))
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if d.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, d.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RateLimit(perMinute, middleware.WithRateLimitLogger(log)))
		r.Use(middleware.Idempotency(d.Redis, ttl, log))

		requestshandler.NewHandler(d.Requests).RegisterRoutes(r)
		notificationshandler.NewHandler(d.Notifications, log).RegisterRoutes(r)
	})

	return router
}

// Run loads configuration, wires the stores and the workflow engine, and
// serves until SIGINT or SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: cfg.LogOutput})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := tracing.Init(serviceName, os.Stdout)
		if err != nil {
			return fmt.Errorf("tracing init failed: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn("tracing shutdown failed", zap.Error(err))
			}
		}()
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, log); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg, log); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cache.Options{}, log.Named("cache"))
	if err != nil {
		return err
	}
	var idempotencyStore redis.Cmdable
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		idempotencyStore = rdb
	}

	publisher := events.NewNoopPublisher()
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		log.Info("publishing request events", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", zap.Error(err))
		}
	}()

	collector := metrics.New()
	identityStore := identity.NewStore(pool)
	notifier := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom, log, collector)

	engine := workflow.New(workflow.Options{
		Store:     requests.NewStore(pool, log),
		Identity:  identityStore,
		Employees: balance.NewStore(pool),
		Notifier:  notifier,
		Events:    publisher,
		Metrics:   collector,
		Logger:    log,
		Company:   cfg.CompanyName,
	})

	router := NewRouter(Deps{
		Logger:             log,
		Metrics:            collector,
		MetricsEnabled:     cfg.MetricsEnabled,
		JWTSecret:          cfg.JWTSecret,
		Resolver:           identityStore,
		Ready:              pool.Ping,
		Redis:              idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Production:         cfg.Environment == "production",
		Requests:           engine,
		Notifications:      notifier,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
