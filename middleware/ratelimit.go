// middleware/ratelimit.go
package middleware

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Limiter is the capability handlers depend on; the concrete algorithm
// stays swappable behind it.
type Limiter interface {
	Allow(key string) bool
}

// FixedWindowLimiter allows maxRequests per key per window. Counters
// reset at window boundaries rather than sliding, which is enough for
// protecting expensive endpoints and keeps the bookkeeping trivial.
type FixedWindowLimiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	windows map[string]*requestWindow
}

type requestWindow struct {
	start time.Time
	count int
}

func NewFixedWindowLimiter(maxRequests int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		maxRequests: maxRequests,
		window:      window,
		windows:     make(map[string]*requestWindow),
	}
}

func (l *FixedWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.Sub(w.start) >= l.window {
		l.windows[key] = &requestWindow{start: now, count: 1}
		return true
	}
	if w.count >= l.maxRequests {
		return false
	}
	w.count++
	return true
}

// cleanup drops windows that expired before the last sweep.
func (l *FixedWindowLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}

var (
	generalLimiter    Limiter
	authLimiter       Limiter
	generationLimiter Limiter
)

func init() {
	generalMax := getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100)
	generalWindow := getEnvInt("RATE_LIMIT_WINDOW_MS", 900000)
	authMax := getEnvInt("AUTH_RATE_LIMIT_MAX", 5)
	authWindow := getEnvInt("AUTH_RATE_LIMIT_WINDOW_MS", 300000)
	// Generation endpoints are the expensive ones: 10 per minute default.
	generationMax := getEnvInt("GENERATION_RATE_LIMIT_MAX", 10)
	generationWindow := getEnvInt("GENERATION_RATE_LIMIT_WINDOW_MS", 60000)

	general := NewFixedWindowLimiter(generalMax, time.Duration(generalWindow)*time.Millisecond)
	auth := NewFixedWindowLimiter(authMax, time.Duration(authWindow)*time.Millisecond)
	generation := NewFixedWindowLimiter(generationMax, time.Duration(generationWindow)*time.Millisecond)

	generalLimiter = general
	authLimiter = auth
	generationLimiter = generation

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			general.cleanup()
			auth.cleanup()
			generation.cleanup()
		}
	}()
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func rateLimitDisabled() bool {
	// RATE_LIMIT_ENABLED=false disables limiter
	val := strings.ToLower(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")))
	return val == "false" || val == "0" || val == "no"
}

// rateLimitKey prefers the authenticated user over the client IP so a
// shared NAT does not starve unrelated users.
func rateLimitKey(c *fiber.Ctx) string {
	if id, err := GetUserID(c); err == nil {
		return fmt.Sprintf("user:%d", id)
	}
	return "ip:" + c.IP()
}

// FiberRateLimitMiddleware applies general rate limiting
func FiberRateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rateLimitDisabled() {
			return c.Next()
		}
		path := c.Path()
		if path == "/health" || path == "/api/health" {
			return c.Next()
		}

		if !generalLimiter.Allow("ip:" + c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Rate limit exceeded. Please try again later.",
			})
		}
		return c.Next()
	}
}

// FiberAuthRateLimitMiddleware applies stricter rate limiting to auth endpoints
func FiberAuthRateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rateLimitDisabled() {
			return c.Next()
		}
		if !authLimiter.Allow("ip:" + c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many authentication attempts. Please try again in 5 minutes.",
			})
		}
		return c.Next()
	}
}

// FiberGenerationRateLimitMiddleware guards AI generation endpoints,
// keyed per user. Runs after AuthMiddleware.
func FiberGenerationRateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rateLimitDisabled() {
			return c.Next()
		}
		if !generationLimiter.Allow(rateLimitKey(c)) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many generation requests. Please wait a minute and try again.",
			})
		}
		return c.Next()
	}
}
