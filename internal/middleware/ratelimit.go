package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type visitor struct {
	count       int
	windowStart time.Time
}

// RateLimiter is a fixed-window limiter keyed by user when authenticated and
// by client IP otherwise. With a Redis client the counters are shared across
// instances; without one they live in memory.
type RateLimiter struct {
	name   string
	limit  int
	window time.Duration
	redis  *redis.Client

	mu       sync.Mutex
	visitors map[string]*visitor
	stop     chan struct{}
	once     sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return newRateLimiter("local", limit, window, nil)
}

// NewRedisRateLimiter shares counters through Redis under ratelimit:<name>:*.
func NewRedisRateLimiter(name string, limit int, window time.Duration, client *redis.Client) *RateLimiter {
	return newRateLimiter(name, limit, window, client)
}

func newRateLimiter(name string, limit int, window time.Duration, client *redis.Client) *RateLimiter {
	rl := &RateLimiter{
		name:     name,
		limit:    limit,
		window:   window,
		redis:    client,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	if client == nil {
		go rl.cleanup()
	}
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if now.Sub(v.windowStart) > rl.window {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Allow records a hit for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl.redis != nil {
		redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.name, key)
		count, err := rl.redis.Incr(ctx, redisKey).Result()
		if err != nil {
			return true, err
		}
		if count == 1 {
			rl.redis.Expire(ctx, redisKey, rl.window)
		}
		return count <= int64(rl.limit), nil
	}

	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[key]
	if !ok || now.Sub(v.windowStart) > rl.window {
		rl.visitors[key] = &visitor{count: 1, windowStart: now}
		return rl.limit >= 1, nil
	}
	v.count++
	return v.count <= rl.limit, nil
}

func clientKey(r *http.Request) string {
	if id := GetUserID(r.Context()); id != uuid.Nil {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := rl.Allow(r.Context(), clientKey(r))
		if err != nil {
			// Fail open when the shared counter store is unreachable.
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
