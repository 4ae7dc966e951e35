package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const rateLimitedBody = `{"success":false,"message":"Too many requests"}`

const (
	defaultRateLimitMax    = 300
	defaultRateLimitWindow = time.Minute
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max is the request budget per bucket per Window. Non-positive values
	// use the default of 300.
	Max int
	// Window is the sliding window length. Non-positive values use the
	// default of one minute.
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// HeaderKey buckets requests by the value of header, falling back to the
// client IP when it is absent.
func HeaderKey(header string) func(*http.Request) string {
	return func(r *http.Request) string {
		if v := r.Header.Get(header); v != "" {
			return header + ":" + v
		}
		return ClientIP(r)
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
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

type window struct {
	prev, curr float64
	start      time.Time
}

type limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*window
}

// allow weights the previous window by its overlap with the sliding window.
func (l *limiter) allow(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, found := l.buckets[key]
	if !found {
		b = &window{start: now.Truncate(l.cfg.Window)}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.start); elapsed >= l.cfg.Window {
		if elapsed >= 2*l.cfg.Window {
			b.prev = 0
		} else {
			b.prev = b.curr
		}
		b.curr = 0
		b.start = now.Truncate(l.cfg.Window)
	}

	overlap := 1 - now.Sub(b.start).Seconds()/l.cfg.Window.Seconds()
	count := b.prev*math.Max(overlap, 0) + b.curr
	reset = b.start.Add(l.cfg.Window)
	if count >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	b.curr++
	return max(int(float64(l.cfg.Max)-count-1), 0), reset, true
}

func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.start) >= 2*l.cfg.Window {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests over cfg.Max per cfg.Window with 429. Stale
// buckets are evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Max <= 0 {
		cfg.Max = defaultRateLimitMax
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultRateLimitWindow
	}
	l := &limiter{cfg: cfg, buckets: make(map[string]*window)}
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			remaining, reset, ok := l.allow(cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Sub(now).Seconds()))))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(rateLimitedBody))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
