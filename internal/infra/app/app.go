package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/config"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/database"
	kafkainfra "github.com/Will-Gue/APLICACIONVISITAS/internal/infra/kafka"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/logger"
	redisinfra "github.com/Will-Gue/APLICACIONVISITAS/internal/infra/redis"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/security"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/telemetry"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/repository/memory"
	postgresrepo "github.com/Will-Gue/APLICACIONVISITAS/internal/repository/postgres"
	redisrepo "github.com/Will-Gue/APLICACIONVISITAS/internal/repository/redis"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/middleware"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/routes"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase/command"
)

// Application owns the HTTP server and every resource it must release on shutdown.
type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// New builds the dependency graph. Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.close(context.WithoutCancel(ctx))
		}
	}()

	if cfg.Telemetry.TracingEnabled {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.onClose("tracer", tp.Shutdown)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.onClose("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})

	if cfg.Postgres.AutoMigrate {
		if err := migrate(ctx, pool, log); err != nil {
			return nil, err
		}
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokens, err := security.NewTokenService(security.TokenConfig{
		Secret:   cfg.JWT.Secret,
		TTL:      cfg.JWT.TTL,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	publisher, err := a.eventPublisher()
	if err != nil {
		return nil, err
	}

	rateLimitStore, cache, err := a.rateLimitStore(ctx)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.NewMetrics()
	policy := security.NewPasswordPolicy(nil)
	repos := postgresrepo.NewRepositories(pool, log)

	authService, err := usecase.NewAuthService(usecase.AuthDependencies{
		Principals: repos.Users,
		Roles:      repos.Roles,
		UnitOfWork: repos.UnitOfWork,
		Hasher:     hasher,
		Policy:     policy,
		Tokens:     tokens,
		Publisher:  publisher,
		Metrics:    metrics,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	dispatcher := command.NewDispatcher()
	if err := command.RegisterAuthHandlers(dispatcher, authService); err != nil {
		return nil, fmt.Errorf("register auth commands: %w", err)
	}

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Auth:        authService,
		Advisor:     policy,
		Dispatcher:  dispatcher,
		Tokens:      tokens,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:     metrics,
		Database:    pool,
	}
	if cache != nil {
		deps.Cache = cache
	}
	a.engine = routes.Register(deps)

	return a, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	migrator := database.NewMigrator(pool, log)
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Warn("close migrator", zap.Error(err))
		}
	}()

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// eventPublisher falls back to logging events when Kafka is disabled or unreachable.
func (a *Application) eventPublisher() (port.EventPublisher, error) {
	if !a.cfg.Kafka.Enabled {
		a.logger.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger), nil
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger), nil
	}
	a.onClose("kafka", func(context.Context) error { return producer.Close() })

	return kafkainfra.NewEventPublisher(producer, a.cfg.App), nil
}

// rateLimitStore returns Redis when enabled so limits hold across replicas,
// and a process-local store otherwise.
func (a *Application) rateLimitStore(ctx context.Context) (port.RateLimitStore, *redisinfra.Client, error) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("redis disabled, rate limits are per process")
		return memory.NewRateLimitStore(2 * a.cfg.RateLimit.WindowDuration), nil, nil
	}

	client, err := redisinfra.NewClient(ctx, a.cfg.Redis, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}
	a.onClose("redis", func(context.Context) error { return client.Close() })

	store := redisrepo.NewRateLimitStore(client.Redis(), redisrepo.RateLimitConfig{
		KeyPrefix: a.cfg.Redis.KeyPrefix,
		TTL:       2 * a.cfg.RateLimit.WindowDuration,
	})
	return store, client, nil
}

func (a *Application) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// close releases resources in reverse acquisition order.
func (a *Application) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Warn("release resource", zap.String("resource", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

// Handler exposes the configured engine, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.engine
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              a.cfg.App.Address(),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting visitapp auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
		close(serverErrCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		timeout := a.cfg.App.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		a.logger.Info("shutting down", zap.Duration("timeout", timeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("shutdown server: %w", err)
		}
		a.close(shutdownCtx)
	case err := <-serverErrCh:
		runErr = err
		a.close(context.WithoutCancel(ctx))
	}

	return runErr
}
