package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ellavondegurechaff/gohye-voice/backend/utils"
	"github.com/gofiber/fiber/v2"
	lru "github.com/hashicorp/golang-lru"
)

const rateLimitKeys = 4096

// RateLimiter is a sliding window limiter per key. Keys live in an LRU so
// the memory stays bounded without a cleanup loop.
type RateLimiter struct {
	mu     sync.Mutex
	hits   *lru.Cache
	window time.Duration
	limit  int
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	cache, _ := lru.New(rateLimitKeys)
	return &RateLimiter{hits: cache, window: window, limit: limit, now: time.Now}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	var recent []time.Time
	if v, ok := rl.hits.Get(key); ok {
		for _, t := range v.([]time.Time) {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
	}
	if len(recent) >= rl.limit {
		rl.hits.Add(key, recent)
		return false
	}
	rl.hits.Add(key, append(recent, now))
	return true
}

// RateLimit limits requests per client address.
func RateLimit(limit int, window time.Duration) fiber.Handler {
	limiter := NewRateLimiter(limit, window)

	return func(c *fiber.Ctx) error {
		ip := utils.GetIPAddress(c)
		if !limiter.Allow(ip) {
			slog.Warn("Rate limit exceeded",
				slog.String("type", "sys"),
				slog.String("ip", ip),
				slog.String("path", c.Path()))
			return utils.SendTooManyRequests(c, "Too many requests. Please try again later.")
		}
		return c.Next()
	}
}

func APIRateLimit() fiber.Handler {
	return RateLimit(120, time.Minute)
}
