package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook is a named cleanup step run during shutdown.
type Hook struct {
	Name string
	Fn   func(context.Context) error
}

// Handler runs registered hooks once a termination signal arrives,
// the parent context ends, or Trigger is called.
type Handler struct {
	timeout time.Duration
	signals []os.Signal
	logger  *slog.Logger

	mu      sync.Mutex
	hooks   []Hook
	trigger chan string
	once    sync.Once
	done    chan struct{}
}

// Option configures a Handler.
type Option func(*Handler)

// WithSignals overrides the signals that start shutdown.
func WithSignals(sigs ...os.Signal) Option {
	return func(h *Handler) { h.signals = sigs }
}

// WithLogger sets the logger used to report hook progress.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates a handler whose hooks share a deadline of timeout.
func NewHandler(timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		timeout: timeout,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		logger:  slog.Default(),
		hooks:   make([]Hook, 0),
		trigger: make(chan string, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnShutdown registers an anonymous hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(fn func(context.Context) error) {
	h.Register("", fn)
}

// Register adds a named hook.
func (h *Handler) Register(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, Hook{Name: name, Fn: fn})
}

// Trigger starts shutdown without a signal, e.g. after a listener fails.
// Only the first reason is kept.
func (h *Handler) Trigger(reason string) {
	select {
	case h.trigger <- reason:
	default:
	}
}

// Wait blocks until a signal or Trigger, then runs the hooks.
func (h *Handler) Wait() error {
	return h.WaitContext(context.Background())
}

// WaitContext is Wait that also starts shutdown when ctx is done.
// The returned error joins every hook failure.
func (h *Handler) WaitContext(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.signals...)
	defer signal.Stop(sigCh)

	var reason string
	select {
	case sig := <-sigCh:
		reason = "signal " + sig.String()
	case r := <-h.trigger:
		reason = r
	case <-ctx.Done():
		reason = "context done"
	}
	h.logger.Info("shutting down", "reason", reason, "timeout", h.timeout)

	return h.run()
}

func (h *Handler) run() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		start := time.Now()
		if err := hook.Fn(ctx); err != nil {
			if hook.Name != "" {
				err = fmt.Errorf("%s: %w", hook.Name, err)
			}
			h.logger.Error("shutdown hook failed", "hook", hook.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		if hook.Name != "" {
			h.logger.Debug("shutdown hook done", "hook", hook.Name, "elapsed", time.Since(start))
		}
	}

	h.once.Do(func() { close(h.done) })
	return errors.Join(errs...)
}

// Done returns a channel that closes when all hooks have run.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
