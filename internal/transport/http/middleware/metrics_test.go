package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/telemetry"
)

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{method: method, route: route, status: status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/users/:id", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(observer.seen) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observer.seen))
	}
	if got := observer.seen[0]; got.route != "/users/:id" || got.status != http.StatusCreated {
		t.Fatalf("unexpected observation: %+v", got)
	}
	if got := observer.seen[1]; got.route != "unmatched" || got.status != http.StatusNotFound {
		t.Fatalf("unexpected observation for unmatched path: %+v", got)
	}
}

func TestMetricsFeedsPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	metrics := telemetry.NewMetrics()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/hello", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hello", nil))

	count, err := testutil.GatherAndCount(metrics.Registry(), "visitapp_http_requests_total")
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one request series, got %d", count)
	}
}

func TestMetricsNoopWhenNil(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Metrics(nil))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
