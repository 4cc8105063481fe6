package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
	"golang.org/x/time/rate"
)

type contextKey string

// AccountIDKey holds the signed-in account id. It is absent for signed-out
// requests.
const AccountIDKey contextKey = "account_id"

const sessionCookie = "near_poll_session"

func accountID(ctx context.Context) string {
	id, _ := ctx.Value(AccountIDKey).(string)
	return id
}

// Session resolves the session cookie into the request context. A token that
// no longer verifies is treated as signed out and the cookie is dropped.
func Session(sessions ports.SessionService, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := sessions.AccountID(cookie.Value)
			if err != nil {
				log.WithError(err).Debug("dropping invalid session")
				expireSession(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func expireSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, MaxAge: -1, Path: "/"})
}

// RateLimiter throttles mutating requests per account, falling back to the
// client host for signed-out callers.
type RateLimiter struct {
	limiters map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	now      func() time.Time
	log      logrus.FieldLogger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perSecond float64, burst int, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Cleanup drops limiters not used for maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	for key, v := range rl.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(maxIdle)
			}
		}
	}()
}

func clientKey(r *http.Request) string {
	if id := accountID(r.Context()); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		if !rl.limiter(key).Allow() {
			rl.log.WithFields(logrus.Fields{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			}).Warn("rate limit exceeded")
			http.Error(w, "Too many requests, try again shortly", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
