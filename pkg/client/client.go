package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/yndnr/respkv/pkg/resp"
)

// Config holds configuration for the client.
type Config struct {
	// Addr is the server address: host:port, or a socket path when
	// Network is "unix". Required.
	Addr string

	// Network is "tcp" (default) or "unix".
	Network string

	// TLS, when set, wraps every TCP connection in TLS. An empty
	// ServerName is taken from Addr.
	TLS *tls.Config

	// DialTimeout bounds connection establishment. Default 5s.
	DialTimeout time.Duration

	// PoolSize is the maximum number of open connections. Default 8.
	PoolSize int32

	// Breaker configures the circuit breaker. Nil uses DefaultBreakerSettings.
	Breaker *gobreaker.Settings

	// Limits bounds reply parsing. Zero fields use the codec defaults.
	Limits resp.Limits

	// Dialer overrides the dialer used for new connections.
	Dialer *net.Dialer
}

const (
	defaultDialTimeout = 5 * time.Second
	defaultPoolSize    = 8
)

// DefaultBreakerSettings trips after at least three requests of which
// 60% failed, and probes again after five seconds.
func DefaultBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
}

// Client is a pooled RESP client. It is safe for concurrent use.
type Client struct {
	addr    string
	pool    *puddle.Pool[*conn]
	breaker *gobreaker.CircuitBreaker[resp.Frame]

	closed    atomic.Bool
	requests  atomic.Uint64
	failures  atomic.Uint64
	created   atomic.Uint64
	destroyed atomic.Uint64
}

// New creates a client. No connection is opened until the first request.
func New(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("client: Addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.Network != "tcp" && cfg.Network != "unix" {
		return nil, fmt.Errorf("client: unsupported network %q", cfg.Network)
	}
	tlsCfg := cfg.TLS
	if tlsCfg != nil && tlsCfg.ServerName == "" && !tlsCfg.InsecureSkipVerify {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("client: server name from addr: %w", err)
		}
		tlsCfg = tlsCfg.Clone()
		tlsCfg.ServerName = host
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{KeepAlive: 30 * time.Second}
	}

	c := &Client{addr: cfg.Addr}

	pool, err := puddle.NewPool(&puddle.Config[*conn]{
		Constructor: func(ctx context.Context) (*conn, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
			nc, err := dialer.DialContext(ctx, cfg.Network, cfg.Addr)
			if err != nil {
				return nil, err
			}
			if tlsCfg != nil {
				tc := tls.Client(nc, tlsCfg)
				if err := tc.HandshakeContext(ctx); err != nil {
					_ = nc.Close()
					return nil, err
				}
				nc = tc
			}
			c.created.Add(1)
			return newConn(nc, cfg.Limits), nil
		},
		Destructor: func(cn *conn) {
			c.destroyed.Add(1)
			_ = cn.close()
		},
		MaxSize: cfg.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("client: create pool: %w", err)
	}
	c.pool = pool

	settings := DefaultBreakerSettings(cfg.Addr)
	if cfg.Breaker != nil {
		settings = *cfg.Breaker
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = isSuccessful
	}
	c.breaker = gobreaker.NewCircuitBreaker[resp.Frame](settings)

	return c, nil
}

// isSuccessful keeps caller cancellation from counting as a server fault.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends one command and returns the reply. An error reply from the
// server is returned as a frame with a nil error.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Frame, error) {
	if len(args) == 0 {
		return resp.Frame{}, errors.New("client: empty command")
	}
	return c.DoFrame(ctx, resp.CommandStrings(args...))
}

// DoFrame sends a prebuilt request frame.
func (c *Client) DoFrame(ctx context.Context, req resp.Frame) (resp.Frame, error) {
	if c.closed.Load() {
		return resp.Frame{}, ErrClosed
	}
	c.requests.Add(1)
	reply, err := c.breaker.Execute(func() (resp.Frame, error) {
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		c.failures.Add(1)
		return resp.Frame{}, err
	}
	return reply, nil
}

func (c *Client) roundTrip(ctx context.Context, req resp.Frame) (resp.Frame, error) {
	res, err := c.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return resp.Frame{}, ErrClosed
		}
		return resp.Frame{}, err
	}

	reply, err := res.Value().roundTrip(ctx, req)
	if err != nil {
		res.Destroy()
		return resp.Frame{}, err
	}
	res.Release()
	return reply, nil
}

// Ping checks that the server answers PONG.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.Do(ctx, "PING")
	if err != nil {
		return err
	}
	if err := asError(reply); err != nil {
		return err
	}
	if reply.Kind != resp.SimpleString || string(reply.Str) != "PONG" {
		return &UnexpectedReplyError{Command: "PING", Reply: reply}
	}
	return nil
}

// Get returns the value of key and whether it exists.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.Do(ctx, "GET", key)
	if err != nil {
		return nil, false, err
	}
	if err := asError(reply); err != nil {
		return nil, false, err
	}
	if reply.Kind != resp.BulkString {
		return nil, false, &UnexpectedReplyError{Command: "GET", Reply: reply}
	}
	if reply.Null {
		return nil, false, nil
	}
	return reply.Str, true, nil
}

// Set stores value under key. A positive ttl sets a millisecond expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := [][]byte{[]byte("SET"), []byte(key), value}
	if ttl > 0 {
		ms := ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		args = append(args, []byte("PX"), strconv.AppendInt(nil, ms, 10))
	}
	reply, err := c.DoFrame(ctx, resp.Command(args...))
	if err != nil {
		return err
	}
	if err := asError(reply); err != nil {
		return err
	}
	if reply.Kind != resp.SimpleString {
		return &UnexpectedReplyError{Command: "SET", Reply: reply}
	}
	return nil
}

// Del removes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return c.integer(ctx, append([]string{"DEL"}, keys...)...)
}

// TTL returns the remaining time to live of key. The second result is
// false when the key does not exist; a key without expiry reports -1.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ms, err := c.integer(ctx, "PTTL", key)
	if err != nil {
		return 0, false, err
	}
	switch {
	case ms == -2:
		return 0, false, nil
	case ms < 0:
		return -1, true, nil
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

// IncrBy adds delta to the integer stored at key and returns the result.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return c.integer(ctx, "INCRBY", key, strconv.FormatInt(delta, 10))
}

func (c *Client) integer(ctx context.Context, args ...string) (int64, error) {
	reply, err := c.Do(ctx, args...)
	if err != nil {
		return 0, err
	}
	if err := asError(reply); err != nil {
		return 0, err
	}
	if reply.Kind != resp.Integer {
		return 0, &UnexpectedReplyError{Command: args[0], Reply: reply}
	}
	return reply.Int, nil
}

// Close destroys all pooled connections. It blocks until acquired
// connections are released.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.pool.Close()
}

// PoolStats is a snapshot of connection pool counters.
type PoolStats struct {
	TotalConns     int32
	IdleConns      int32
	ActiveConns    int32
	AcquireCount   int64
	CreatedConns   uint64
	DestroyedConns uint64
}

// Stats is a snapshot of client counters.
type Stats struct {
	Addr         string
	Requests     uint64
	Failures     uint64
	Pool         PoolStats
	BreakerState gobreaker.State
	BreakerCount gobreaker.Counts
}

// Stats returns a snapshot of pool and breaker state.
func (c *Client) Stats() Stats {
	s := c.pool.Stat()
	return Stats{
		Addr:     c.addr,
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
		Pool: PoolStats{
			TotalConns:     s.TotalResources(),
			IdleConns:      s.IdleResources(),
			ActiveConns:    s.AcquiredResources(),
			AcquireCount:   s.AcquireCount(),
			CreatedConns:   c.created.Load(),
			DestroyedConns: c.destroyed.Load(),
		},
		BreakerState: c.breaker.State(),
		BreakerCount: c.breaker.Counts(),
	}
}
