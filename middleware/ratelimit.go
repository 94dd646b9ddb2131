package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"timekeeper/logger"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewIPLimiter builds an in-memory per-IP limiter from a formatted rate
// such as "10-M".
func NewIPLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", formatted, err)
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit rejects clients that exceed l with 429.
func RateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			log := logger.FromContext(r.Context())

			lctx, err := l.Get(r.Context(), ip)
			if err != nil {
				log.Error().Err(err).Str("ip", ip).Msg("rate limit check failed")
				writeError(w, http.StatusInternalServerError, "internal server error during rate limit check")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				log.Warn().Str("ip", ip).Int64("limit", lctx.Limit).Msg("rate limit exceeded")
				writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP reads RemoteAddr, which chi's RealIP has already rewritten when
// the request came through a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
