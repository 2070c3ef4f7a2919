package http

import (
	"math"
	"net"
	"net/http"
	"strconv"
)

// RateLimitMiddleware rejects requests from clients that have used up their
// bucket. When filters are given, only requests matching one of them are
// counted; the rest pass straight through.
func RateLimitMiddleware(
	limiter *RateLimiter,
	next http.Handler,
	filters ...func(*http.Request) bool,
) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(filters) > 0 && !matchesAny(r, filters) {
			next.ServeHTTP(w, r)
			return
		}

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ok, retryAfter := limiter.Allow(ip); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			WriteJSON(w, http.StatusTooManyRequests, APIResponse{Message: "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func matchesAny(r *http.Request, filters []func(*http.Request) bool) bool {
	for _, f := range filters {
		if f(r) {
			return true
		}
	}
	return false
}
