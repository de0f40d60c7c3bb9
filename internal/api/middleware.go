package api

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"convobot-backend/internal/auth"
	"convobot-backend/pkg/httputil"
)

// --- Session Middleware ---

// SessionAuthMiddleware verifies the session token from the Authorization
// header and injects the session ID into the request context.
func SessionAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				httputil.RespondError(w, http.StatusUnauthorized, "Malformed Authorization header (Expected: Bearer <token>)")
				return
			}

			sessionID, err := auth.ParseSessionToken(parts[1], secret)
			if err != nil {
				log.Debug().Str("component", "api").Err(err).Msg("rejected session token")
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					httputil.RespondError(w, http.StatusUnauthorized, "Token has expired")
				case errors.Is(err, jwt.ErrTokenMalformed):
					httputil.RespondError(w, http.StatusUnauthorized, "Malformed token")
				default:
					httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSessionID(r.Context(), sessionID)))
		})
	}
}

// --- Rate Limiting ---

const limiterIdleTTL = 10 * time.Minute

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSeen  map[string]time.Time
	lastPrune time.Time
	limit     rate.Limit
	burst     int
	now       func() time.Time
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether ip may make a request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastPrune) > limiterIdleTTL {
		for k, seen := range l.lastSeen {
			if now.Sub(seen) > limiterIdleTTL {
				delete(l.limiters, k)
				delete(l.lastSeen, k)
			}
		}
		l.lastPrune = now
	}
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	l.lastSeen[ip] = now
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Middleware rejects clients over their budget with 429.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !l.Allow(ip) {
			httputil.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please wait before sending another message.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Request Logging ---

// RequestLogger logs each request with zerolog once it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
