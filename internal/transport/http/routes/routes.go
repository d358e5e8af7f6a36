package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/config"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/handlers"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/middleware"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase/command"
)

// Pinger is satisfied by the pgx pool and the Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Auth        handlers.AuthService
	Advisor     handlers.PasswordAdvisor
	Dispatcher  *command.Dispatcher
	Tokens      middleware.TokenValidator
	RateLimiter *middleware.RateLimiter
	Metrics     MetricsExporter
	Database    Pinger
	Cache       Pinger
}

// MetricsExporter records HTTP metrics and serves the scrape endpoint.
type MetricsExporter interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// Register configures the gin engine with middleware and routes.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.Config.Telemetry.ServiceName))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.Ping))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	opts := handlers.AuthRouteOptions{
		Login:    rateLimited(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts),
		Register: rateLimited(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts),
		PasswordStrength: rateLimited(deps, "auth_password_strength_ip",
			deps.Config.RateLimit.PasswordStrengthMaxAttempts),
	}
	if deps.Tokens != nil {
		opts.RequireAuth = middleware.RequireAuth(deps.Tokens)
	}

	if deps.Auth != nil {
		handlers.NewAuthHandler(deps.Auth, deps.Advisor).RegisterRoutes(r.Group("/api/v1/auth"), opts)
	}
	if deps.Dispatcher != nil {
		handlers.NewCommandAuthHandler(deps.Dispatcher).RegisterRoutes(r.Group("/api/v2/auth"), opts)
	}

	return r
}

func rateLimited(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	settings := deps.Config.RateLimit
	if deps.RateLimiter == nil || !settings.Enabled || limit <= 0 || settings.WindowDuration <= 0 {
		return nil
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     settings.WindowDuration,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}
