// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
)

const keyPrefix = "vidshelf:rl"

type RateLimitConfig struct {
	// Name namespaces the counters so several limits can share one
	// Redis without colliding. Defaults to "requests".
	Name     string
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	Bypass   func(*http.Request) bool
	FailOpen bool
}

// RateLimiter enforces a limit shared across instances through Redis.
// Without Redis, or while Redis is failing, each instance keeps its own
// token buckets instead.
type RateLimiter struct {
	cfg    RateLimitConfig
	shared *redis_rate.Limiter
	local  *buckets
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.Name == "" {
		cfg.Name = "requests"
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	rl := &RateLimiter{
		cfg:   cfg,
		local: newBuckets(),
	}
	if rdb != nil {
		rl.shared = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.cfg.Bypass != nil && rl.cfg.Bypass(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := keyPrefix + ":" + rl.cfg.Name + ":" + rl.cfg.KeyFunc(r)

		res, backend, err := rl.take(r, key)
		if err != nil {
			if !rl.cfg.FailOpen {
				core.JSONError(w, core.NewAppError(
					http.StatusServiceUnavailable,
					"RATE_LIMIT_UNAVAILABLE",
					"Rate limiting is temporarily unavailable",
					err,
				))
				return
			}
			slog.Warn("rate limit check failed, allowing request",
				"limit", rl.cfg.Name,
				"key", key,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		writeLimitHeaders(w.Header(), rl.cfg.Limit, res)

		if res.Allowed == 0 {
			metrics.RateLimited.WithLabelValues(rl.cfg.Name, backend).Inc()
			rejectLimited(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) take(
	r *http.Request,
	key string,
) (*redis_rate.Result, string, error) {
	if rl.shared != nil {
		res, err := rl.shared.Allow(r.Context(), key, rl.cfg.Limit)
		if err == nil {
			return res, "redis", nil
		}
		slog.Debug("shared rate limit unavailable, using local buckets",
			"limit", rl.cfg.Name,
			"error", err,
		)
	}

	res, err := rl.local.take(key, rl.cfg.Limit, time.Now())
	return res, "local", err
}

// KeyByIP keys on the client address. Cloudflare's header wins, then the
// last X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func KeyByIP(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// KeyByUser keys on the resolved account when one is on the context and
// on the client address otherwise.
func KeyByUser(r *http.Request) string {
	if id := GetUserID(r.Context()); id != "" {
		return "account:" + id
	}
	return KeyByIP(r)
}

// KeyByUserAndEndpoint scopes KeyByUser to the route, with identifiers
// collapsed so /videos/<a> and /videos/<b> share a counter.
func KeyByUserAndEndpoint(r *http.Request) string {
	return KeyByUser(r) + ":" + routeShape(r.URL.Path)
}

func PerHour(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: time.Hour,
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("Cf-Connecting-Ip"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func routeShape(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if looksLikeID(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func looksLikeID(seg string) bool {
	if seg == "" {
		return false
	}
	if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
		return true
	}
	if len(seg) != 36 {
		return false
	}
	_, err := uuid.Parse(seg)
	return err == nil
}

func writeLimitHeaders(h http.Header, limit redis_rate.Limit, res *redis_rate.Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset",
		strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy",
		fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit",
		fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))
}

func rejectLimited(w http.ResponseWriter, res *redis_rate.Result) {
	wait := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(wait))
	core.JSONError(w, core.NewAppError(
		http.StatusTooManyRequests,
		"RATE_LIMITED",
		fmt.Sprintf("Too many requests, try again in %d seconds", wait),
		nil,
	))
}

const (
	bucketIdleTTL    = 10 * time.Minute
	bucketSweepEvery = 5 * time.Minute
)

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// buckets is the per-instance fallback. Idle entries are swept inline on
// access rather than by a background goroutine.
type buckets struct {
	mu      sync.Mutex
	entries map[string]*bucket
	swept   time.Time
}

func newBuckets() *buckets {
	return &buckets{
		entries: make(map[string]*bucket),
		swept:   time.Now(),
	}
}

func (b *buckets) take(
	key string,
	limit redis_rate.Limit,
	now time.Time,
) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid limit %d per %s", limit.Rate, limit.Period)
	}
	interval := limit.Period / time.Duration(limit.Rate)

	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.swept) >= bucketSweepEvery {
		for k, e := range b.entries {
			if now.Sub(e.seen) > bucketIdleTTL {
				delete(b.entries, k)
			}
		}
		b.swept = now
	}

	e, ok := b.entries[key]
	if !ok {
		e = &bucket{limiter: rate.NewLimiter(rate.Every(interval), limit.Burst)}
		b.entries[key] = e
	}
	e.seen = now

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
	}
	if e.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}

	res.Remaining = max(int(e.limiter.TokensAt(now)), 0)
	res.ResetAfter = interval * time.Duration(limit.Burst-res.Remaining)
	return res, nil
}
