package redisserver

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/internal/command"
	"github.com/yndnr/respkv/pkg/resp"
)

// Config holds the RESP server configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// ReadTimeout bounds reading the rest of a request once its first
	// bytes have arrived (default: 30s). Helps prevent slowloris attacks.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing a reply (default: 30s).
	WriteTimeout time.Duration
	// IdleTimeout is the timeout for idle connections (default: 5m).
	IdleTimeout time.Duration
	// RateLimit is the maximum number of requests per second per IP.
	// Set to 0 to disable rate limiting.
	RateLimit int
	// RateBurst is the bucket size of the rate limiter (default: RateLimit).
	RateBurst int
	// MaxConnections caps concurrent client connections. 0 means unlimited.
	MaxConnections int
	// Limits bounds what a single request may declare.
	Limits resp.Limits
	// TLS, when set, makes Start serve TLS on the TCP listener.
	TLS *tls.Config
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:        "127.0.0.1:6379",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    5 * time.Minute,
		RateLimit:      0,
		MaxConnections: 10000,
		Limits:         resp.DefaultLimits,
	}
}

// Metrics receives server events. *metric.Registry implements it.
type Metrics interface {
	ConnOpened()
	ConnClosed()
	ConnRejected(reason string)
	RecordCommand(command, status string, seconds float64)
	IncProtocolErrors()
	IncRateLimited()
}

type nopMetrics struct{}

func (nopMetrics) ConnOpened()                           {}
func (nopMetrics) ConnClosed()                           {}
func (nopMetrics) ConnRejected(string)                   {}
func (nopMetrics) RecordCommand(string, string, float64) {}
func (nopMetrics) IncProtocolErrors()                    {}
func (nopMetrics) IncRateLimited()                       {}

// Server represents the RESP protocol server.
type Server struct {
	cfg     *Config
	store   command.Store
	logger  *slog.Logger
	metrics Metrics
	limiter *rateLimiter

	ln       net.Listener
	stopCtx  func() bool
	running  atomic.Bool
	active   atomic.Int64
	wg       sync.WaitGroup
	connsMu  sync.Mutex
	conns    map[net.Conn]struct{}
	shutOnce sync.Once
}

// New creates a new RESP protocol server. A nil cfg takes DefaultConfig;
// nil logger and metrics are allowed.
func New(cfg *Config, store command.Store, logger *slog.Logger, metrics Metrics) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		metrics: metrics,
		conns:   make(map[net.Conn]struct{}),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return s
}

// Start listens on the configured address and serves connections in the
// background. It returns once the listener is bound. Cancelling ctx stops
// accepting new connections.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	if s.cfg.TLS != nil {
		ln = tls.NewListener(ln, s.cfg.TLS)
	}
	s.Serve(ctx, ln)
	return nil
}

// Serve accepts connections on ln in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) {
	s.ln = ln
	s.running.Store(true)
	s.stopCtx = context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	s.logger.Info("starting redis server",
		"address", ln.Addr().String(),
		"network", ln.Addr().Network(),
		"tls", s.cfg.TLS != nil)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ln); err != nil && s.running.Load() {
			s.logger.Error("redis server error", "error", err)
		}
	}()
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes every open connection and waits for
// connection goroutines to exit or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	s.shutOnce.Do(func() {
		s.running.Store(false)
		if s.stopCtx != nil {
			s.stopCtx()
		}
		if s.ln != nil {
			if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				firstErr = err
			}
		}

		s.connsMu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.connsMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

func (s *Server) acceptLoop(ln net.Listener) error {
	var tempDelay time.Duration

	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else if tempDelay *= 2; tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.logger.Warn("accept error, retrying", "error", err, "delay", tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		if max := s.cfg.MaxConnections; max > 0 && s.active.Load() >= int64(max) {
			s.reject(c)
			continue
		}

		if !s.track(c) {
			_ = c.Close()
			return nil
		}
		s.active.Add(1)
		s.metrics.ConnOpened()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.untrack(c)
				s.active.Add(-1)
				s.metrics.ConnClosed()
			}()
			s.serveConn(c)
		}()
	}
}

// reject tells a client over the connection limit and closes it. The write
// runs off the accept loop; a peer that never reads holds it until the
// deadline.
func (s *Server) reject(c net.Conn) {
	s.metrics.ConnRejected("max_clients")
	s.logger.Warn("connection rejected", "remote", c.RemoteAddr().String(), "reason", "max clients reached")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		_ = resp.NewWriter(c).WriteFrame(resp.ErrorFrame("ERR max number of clients reached"))
		_ = c.Close()
	}()
}

// track registers c for Shutdown. It returns false once shutdown began.
func (s *Server) track(c net.Conn) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}
