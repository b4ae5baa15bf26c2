package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Key pattern: ratelimit:{ip}:uploads, expiring with the window.

type RateLimitConfig struct {
	UploadLimit  int
	UploadWindow time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		UploadLimit:  120,
		UploadWindow: time.Minute,
	}
}

// RateLimiter counts requests per key in fixed windows stored in Redis.
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.UploadLimit <= 0 {
		config.UploadLimit = def.UploadLimit
	}
	if config.UploadWindow < time.Second {
		config.UploadWindow = def.UploadWindow
	}
	return &RateLimiter{client: client, config: config}
}

func UploadKey(ip string) string {
	return fmt.Sprintf("ratelimit:%s:uploads", ip)
}

// AllowUpload checks and consumes one URL-issuance request for an IP.
func (r *RateLimiter) AllowUpload(ctx context.Context, ip string) (*RateLimitResult, error) {
	return r.Allow(ctx, UploadKey(ip), r.config.UploadLimit, r.config.UploadWindow)
}

// Allow atomically consumes one unit of key's budget if any is left.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := allowScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return parseAllowResult(result, limit)
}

var allowScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	end
	return {0, 0, ttl}
`)

func parseAllowResult(result interface{}, limit int) (*RateLimitResult, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	nums := make([]int64, 3)
	for i := range nums {
		n, ok := values[i].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected rate limit result format")
		}
		nums[i] = n
	}
	return &RateLimitResult{
		Allowed:   nums[0] == 1,
		Remaining: int(nums[1]),
		ResetIn:   time.Duration(nums[2]) * time.Second,
		Limit:     limit,
	}, nil
}

// Reset clears an IP's upload budget.
func (r *RateLimiter) Reset(ctx context.Context, ip string) error {
	return r.client.Del(ctx, UploadKey(ip)).Err()
}
