package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
)

// RouterConfig holds the dependencies of the operational routes.
type RouterConfig struct {
	// Logger for access and panic logs.
	Logger *slog.Logger

	// Metrics serves GET /metrics. Nil disables the route.
	Metrics http.Handler

	// Ready reports whether the node can take traffic. Nil means always ready.
	Ready func() error

	// AllowList restricts clients to these IPs or CIDR blocks; empty allows all.
	AllowList []string
}

// NewRouter builds the operational mux wrapped in the middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":         "healthy",
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(); err != nil {
				writeError(w, r, http.StatusServiceUnavailable, CodeNotReady, err.Error())
				return
			}
		}
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, buildinfo.Get())
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	middlewares := []Middleware{Recover(logger), RequestID(), AccessLog(logger)}
	if len(cfg.AllowList) > 0 {
		middlewares = append(middlewares, NetworkACL(&NetworkACLConfig{
			AllowList: cfg.AllowList,
			Logger:    logger,
		}))
	}
	return Chain(mux, middlewares...)
}
