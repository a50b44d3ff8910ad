package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"pokedex/internal/audit"
	"pokedex/internal/metrics"
	"pokedex/internal/quota"
)

// RateLimit is the quota stage of the admission pipeline. Authenticated
// requests are counted per identity; anonymous requests fall back to the
// client address, so a single remote host cannot drain a public route
// class on its own.
func RateLimit(tracker *quota.Tracker, collector *metrics.Collector, sink audit.Sink) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := RouteOf(r.Context())
			identity := Identity(r.Context())

			key := identity
			if key == "" {
				key = "ip:" + clientHost(r)
			}

			decision, err := tracker.Admit(key, route.Class)

			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			}

			if err != nil {
				var denied *quota.DeniedError
				if errors.As(err, &denied) {
					retryAfter := int(denied.RetryAfter.Seconds())
					if retryAfter < 1 {
						retryAfter = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
					collector.RecordQuotaRejection()
					sink.Emit(audit.Event{
						Kind:     audit.RateLimited,
						Identity: identity,
						Route:    r.URL.Path,
						Detail:   "route class " + route.Class,
					})
					http.Error(w, "too many requests", http.StatusTooManyRequests)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			// Terminal Admitted transition for an authenticated request.
			if identity != "" && !route.Public {
				sink.Emit(audit.Event{
					Kind:     audit.AuthSuccess,
					Identity: identity,
					Route:    r.URL.Path,
				})
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
