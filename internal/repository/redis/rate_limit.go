package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
)

var errNonPositiveWindow = errors.New("rate limit: window must be positive")

// acquireScript trims, counts and conditionally records in one server-side step.
// KEYS[1] window key; ARGV: threshold ms, now ms, limit, member, ttl ms.
var acquireScript = redis.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[1])
local count = redis.call('ZCOUNT', key, '(' .. ARGV[1], ARGV[2])
local allowed = 0
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', key, ARGV[2], ARGV[4])
	redis.call('PEXPIRE', key, ARGV[5])
	allowed = 1
end
local oldest = redis.call('ZRANGEBYSCORE', key, '(' .. ARGV[1], ARGV[2], 'WITHSCORES', 'LIMIT', '0', '1')
local score = ''
if #oldest > 0 then
	score = oldest[2]
end
return {allowed, count, score}
`)

// RateLimitConfig scopes the keys written by RateLimitStore.
type RateLimitConfig struct {
	KeyPrefix string
	// TTL bounds how long an idle key survives. It never drops below the window.
	TTL time.Duration
}

// RateLimitStore keeps attempt timestamps in Redis sorted sets scored by unix milliseconds.
type RateLimitStore struct {
	client redis.Cmdable
	cfg    RateLimitConfig
}

// NewRateLimitStore constructs a store on top of any go-redis client.
func NewRateLimitStore(client redis.Cmdable, cfg RateLimitConfig) *RateLimitStore {
	return &RateLimitStore{client: client, cfg: cfg}
}

// Acquire runs the sliding-window check and record as a single Lua script, so
// concurrent requests for one identifier cannot overshoot the limit.
func (s *RateLimitStore) Acquire(ctx context.Context, identifier string, limit int, window time.Duration, at time.Time) (port.RateLimitDecision, error) {
	if window <= 0 {
		return port.RateLimitDecision{}, errNonPositiveWindow
	}

	nowMs := at.UnixMilli()
	threshold := strconv.FormatInt(at.Add(-window).UnixMilli(), 10)
	// Members carry a random suffix so two attempts in the same millisecond are both counted.
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()
	ttl := max(s.cfg.TTL, window)

	raw, err := acquireScript.Run(ctx, s.client, []string{s.key(identifier)},
		threshold, nowMs, limit, member, ttl.Milliseconds()).Slice()
	if err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit acquire: %w", err)
	}

	return parseDecision(raw)
}

func parseDecision(raw []any) (port.RateLimitDecision, error) {
	if len(raw) != 3 {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit acquire: unexpected reply length %d", len(raw))
	}
	allowed, ok := raw[0].(int64)
	if !ok {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit acquire: unexpected allowed type %T", raw[0])
	}
	count, ok := raw[1].(int64)
	if !ok {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit acquire: unexpected count type %T", raw[1])
	}

	decision := port.RateLimitDecision{Allowed: allowed == 1, Count: int(count)}
	if score, _ := raw[2].(string); score != "" {
		ms, err := strconv.ParseFloat(score, 64)
		if err != nil {
			return port.RateLimitDecision{}, fmt.Errorf("redis rate limit acquire: parse oldest score: %w", err)
		}
		decision.Oldest = time.UnixMilli(int64(ms))
	}
	return decision, nil
}

func (s *RateLimitStore) key(identifier string) string {
	if s.cfg.KeyPrefix == "" {
		return identifier
	}
	return s.cfg.KeyPrefix + ":" + identifier
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
