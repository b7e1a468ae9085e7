package middleware

import (
	"net/http"
	"time"

	"github.com/apper-apps/holo-toybox-market/internal/logger"
)

// Option configures the request logger.
type Option func(*config)

type config struct {
	skips map[string]struct{}
}

// WithSkips suppresses logging for the given exact paths (health probes
// and similar high-frequency noise).
func WithSkips(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.skips[p] = struct{}{}
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LogRequests returns mux middleware that logs method, path, status and
// duration for every request not in the skip list.
func LogRequests(opts ...Option) func(http.Handler) http.Handler {
	c := &config{skips: map[string]struct{}{}}
	for _, opt := range opts {
		opt(c)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := c.skips[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			logger.Infof("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
