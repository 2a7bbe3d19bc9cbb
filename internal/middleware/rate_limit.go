package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimitMiddleware is a Redis-backed fixed-window limiter for the
// send-OTP endpoint, keyed by client IP. It fails open: when Redis is
// unavailable the request goes through and the error is logged.
type RateLimitMiddleware struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *logrus.Logger
}

func NewRateLimitMiddleware(client *redis.Client, limit int, window time.Duration, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		key := fmt.Sprintf("ratelimit:otp:%s", ip)

		count, err := m.client.Incr(r.Context(), key).Result()
		if err != nil {
			m.logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if count == 1 {
			m.client.Expire(r.Context(), key, m.window)
		}

		if count > int64(m.limit) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many OTP requests. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
