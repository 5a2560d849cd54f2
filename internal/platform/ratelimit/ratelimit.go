package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// Config holds the sliding window limit applied per client.
type Config struct {
	// Requests is the maximum number of requests allowed in Window.
	Requests int
	Window   time.Duration
	// KeyFunc extracts the limit key from the request. Defaults to the client IP.
	KeyFunc func(r *http.Request) (string, error)
}

// Middleware returns chi middleware enforcing cfg. A non-positive Requests
// disables limiting.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if cfg.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"statusCode":429,"message":"too many requests"}`))
		}),
	)
}
