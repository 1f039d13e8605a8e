package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"event-storefront/utils"
)

// RateLimitRule caps requests per client within a sliding window.
type RateLimitRule struct {
	Prefix   string
	Method   string
	Requests int
	Window   time.Duration
	Message  string
}

// DefaultRateLimitRules are checked in order; the first matching rule applies.
var DefaultRateLimitRules = []RateLimitRule{
	{
		Prefix:   "/api/payment/",
		Requests: 10,
		Window:   time.Minute,
		Message:  "Too many payment attempts. Please wait a minute.",
	},
	{
		Prefix:   "/api/session",
		Method:   http.MethodPost,
		Requests: 20,
		Window:   time.Minute,
		Message:  "Too many new sessions. Please wait a minute.",
	},
	{
		Prefix:   "/api/",
		Requests: 240,
		Window:   time.Minute,
		Message:  "Rate limit exceeded. Please slow down your requests.",
	},
}

// slidingWindowScript trims entries older than the window, then admits the
// request if the remaining count is under the limit.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return {1, limit - current - 1}
end
return {0, 0}
`

type RateLimiter struct {
	client *redis.Client
	rules  []RateLimitRule
	logger *zap.Logger
	script *redis.Script
	now    func() time.Time
}

func NewRateLimiter(ctx context.Context, redisURL string, logger *zap.Logger) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL for rate limiter: %w", err)
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}
	return NewRateLimiterWithClient(client, DefaultRateLimitRules, logger), nil
}

func NewRateLimiterWithClient(client *redis.Client, rules []RateLimitRule, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		client: client,
		rules:  rules,
		logger: logger,
		script: redis.NewScript(slidingWindowScript),
		now:    time.Now,
	}
}

// Middleware rejects requests over their rule's limit with 429. Redis errors
// fail open.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule, ok := rl.ruleFor(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.key(r, rule)
		allowed, remaining, err := rl.allow(r.Context(), key, rule)
		if err != nil {
			rl.logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			rl.logger.Info("rate limit exceeded", zap.String("key", key), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window.Seconds())))
			utils.SendErrorResponse(w, http.StatusTooManyRequests, rule.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) ruleFor(r *http.Request) (RateLimitRule, bool) {
	for _, rule := range rl.rules {
		if rule.Method != "" && rule.Method != r.Method {
			continue
		}
		if strings.HasPrefix(r.URL.Path, rule.Prefix) {
			return rule, true
		}
	}
	return RateLimitRule{}, false
}

// key groups requests by client address and rule. RemoteAddr is already the
// real client address once chi's RealIP has run.
func (rl *RateLimiter) key(r *http.Request, rule RateLimitRule) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return fmt.Sprintf("rate_limit:%s:%s:%s", rule.Method, rule.Prefix, ip)
}

func (rl *RateLimiter) allow(ctx context.Context, key string, rule RateLimitRule) (bool, int, error) {
	now := rl.now().UnixMilli()
	result, err := rl.script.Run(ctx, rl.client, []string{key},
		now, rule.Window.Milliseconds(), rule.Requests, uuid.NewString()).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis result format: %v", result)
	}
	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("failed to parse redis result: %v", result)
	}
	return allowed == 1, int(remaining), nil
}

func (rl *RateLimiter) Close() error {
	return rl.client.Close()
}
