package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/config"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/security"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/telemetry"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/repository/memory"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/middleware"
	httproutes "github.com/Will-Gue/APLICACIONVISITAS/internal/transport/http/routes"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/usecase"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stubAuth struct{}

func (stubAuth) Login(context.Context, string, string) (domain.AuthResult, error) {
	return domain.AuthResult{}, &usecase.AuthError{Kind: usecase.ErrUnauthorized, Message: usecase.MsgInvalidCredentials}
}

func (stubAuth) Register(context.Context, usecase.RegisterInput) (domain.AuthResult, error) {
	return domain.AuthResult{Token: "t", ExpiresAt: time.Now(), Message: usecase.MsgRegisterSuccessful}, nil
}

func (stubAuth) ValidateToken(context.Context, string) bool { return false }

func (stubAuth) GetCurrentPrincipal(context.Context, int64) (domain.PrincipalView, error) {
	return domain.PrincipalView{}, nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App:       config.AppSettings{Env: "test", CORSAllowedOrigins: []string{"*"}},
		Telemetry: config.TelemetrySettings{ServiceName: "visitapp-auth"},
		RateLimit: config.RateLimitSettings{Enabled: true, WindowDuration: time.Minute, LoginMaxAttempts: 2, RegisterMaxAttempts: 2,
			PasswordStrengthMaxAttempts: 2},
	}
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: zaptest.NewLogger(t),
	})

	rr := serve(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config:   testConfig(),
		Logger:   zaptest.NewLogger(t),
		Database: pingFunc(func(context.Context) error { return nil }),
		Cache:    pingFunc(func(context.Context) error { return errors.New("down") }),
	})

	rr := serve(r, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"redis":"unavailable"`)
	assert.Contains(t, rr.Body.String(), `"database":"ok"`)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config:      testConfig(),
		Logger:      zaptest.NewLogger(t),
		Auth:        stubAuth{},
		RateLimiter: middleware.NewRateLimiter(memory.NewRateLimitStore(time.Minute), zaptest.NewLogger(t)),
	})

	body := `{"email":"a@x.com","password":"wrong"}`
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/auth/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/auth/login", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/v1/auth/login", body).Code)

	// validate is not limited.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/auth/validate", `{"token":"x"}`).Code)
}

func TestPasswordStrengthIsRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config:      testConfig(),
		Logger:      zaptest.NewLogger(t),
		Auth:        stubAuth{},
		Advisor:     security.NewPasswordPolicy(nil),
		RateLimiter: middleware.NewRateLimiter(memory.NewRateLimitStore(time.Minute), zaptest.NewLogger(t)),
	})

	body := `{"password":"Visit@2024"}`
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/auth/password/strength", body).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/auth/password/strength", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/v1/auth/password/strength", body).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config:  testConfig(),
		Logger:  zaptest.NewLogger(t),
		Metrics: telemetry.NewMetrics(),
	})

	serve(r, http.MethodGet, "/healthz", "")
	rr := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "visitapp_http_requests_total")
}

func TestMeRequiresBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: zaptest.NewLogger(t),
		Auth:   stubAuth{},
		Tokens: rejectAll{},
	})

	rr := serve(r, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type rejectAll struct{}

func (rejectAll) Validate(string) (*domain.TokenClaims, error) {
	return nil, errors.New("invalid")
}
