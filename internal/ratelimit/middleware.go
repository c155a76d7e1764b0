package ratelimit

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/utils"
)

type Limiter struct {
	Store  Store
	Max    int
	Window time.Duration
	Logger *logger.Logger
	// KeyFunc identifies the caller. Defaults to ClientKey.
	KeyFunc func(*http.Request) string
	now     func() time.Time
}

func NewLimiter(store Store, max int, window time.Duration, log *logger.Logger) *Limiter {
	return &Limiter{Store: store, Max: max, Window: window, Logger: log, KeyFunc: ClientKey, now: time.Now}
}

// ClientKey is the authenticated user id, else the remote host. Forwarding
// headers are ignored here; middleware.RealIP rewrites RemoteAddr when the
// server trusts its proxy.
func ClientKey(r *http.Request) string {
	if uid := auth.UserID(r.Context()); uid != "" {
		return "user:" + uid
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.KeyFunc(r)
		count, resetAt, err := l.Store.Increment(r.Context(), key, l.Window)
		if err != nil {
			// Fail open on store errors.
			l.Logger.Error("RATELIMIT", fmt.Sprintf("Counter store failed for %s: %v", key, err))
			next.ServeHTTP(w, r)
			return
		}

		remaining := l.Max - count
		if remaining < 0 {
			remaining = 0
		}
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.UnixMilli(), 10))

		if count > l.Max {
			retryAfter := int(math.Ceil(resetAt.Sub(l.now()).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			l.Logger.Warn("RATELIMIT", fmt.Sprintf("Limit exceeded for %s on %s", key, r.URL.Path))
			utils.WriteError(w, apperr.RateLimited())
			return
		}

		next.ServeHTTP(w, r)
	})
}
