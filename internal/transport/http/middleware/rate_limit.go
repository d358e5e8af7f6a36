package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
	appLogger "github.com/Will-Gue/APLICACIONVISITAS/internal/infra/logger"
)

const (
	rateLimitProblemType  = "https://visitapp.example.com/problems/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// IdentifierFunc extracts the identity a limit is scoped to, such as the client IP.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule is a sliding-window limit of Limit requests per Window.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter evaluates rules against a shared attempt store.
// Store failures fail open so an outage of Redis never blocks logins.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails is an RFC 9457 error payload.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}

type decision struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock replaces the time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule to gin's resolved client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit returns a middleware enforcing rules in order. The first exhausted
// rule rejects the request; otherwise the tightest rule drives the headers.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var tightest *decision

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			d, err := rl.evaluate(c, rule, rule.Name+":"+identifier, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("identifier", appLogger.MaskIP(identifier)),
					zap.Error(err))
				continue
			}

			if !d.allowed {
				rl.writeHeaders(c, d)
				rl.reject(c, d)
				return
			}
			if tightest == nil || d.remaining < tightest.remaining ||
				(d.remaining == tightest.remaining && d.reset.Before(tightest.reset)) {
				snapshot := d
				tightest = &snapshot
			}
		}

		if tightest != nil {
			rl.writeHeaders(c, *tightest)
		}
		c.Next()
	}
}

func (rl *RateLimiter) evaluate(c *gin.Context, rule RateLimitRule, key string, now time.Time) (decision, error) {
	res, err := rl.store.Acquire(c.Request.Context(), key, rule.Limit, rule.Window, now)
	if err != nil {
		return decision{}, err
	}

	d := decision{allowed: res.Allowed, limit: rule.Limit, reset: now.Add(rule.Window)}
	if !res.Oldest.IsZero() {
		d.reset = res.Oldest.Add(rule.Window)
	}
	d.retryAfter = max(d.reset.Sub(now), 0)

	if res.Allowed {
		d.remaining = max(rule.Limit-res.Count-1, 0)
	}
	return d, nil
}

func (rl *RateLimiter) writeHeaders(c *gin.Context, d decision) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(d.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))
	if !d.allowed {
		headers.Set("Retry-After", strconv.Itoa(retrySeconds(d)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, d decision) {
	seconds := retrySeconds(d)
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retrySeconds(d decision) int {
	return int(math.Ceil(d.retryAfter.Seconds()))
}
