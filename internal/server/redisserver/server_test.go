package redisserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

// ============================================================
// Test helpers
// ============================================================

func startServer(t *testing.T, cfg *Config, metrics Metrics) (*Server, *memory.Store) {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Address = "127.0.0.1:0"

	store := memory.New()
	srv := New(cfg, store, nil, metrics)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, store
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *resp.Reader
	w    *resp.Writer
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	return &testClient{
		t:    t,
		conn: conn,
		r:    resp.NewReader(conn),
		w:    resp.NewWriter(conn),
	}
}

func (c *testClient) do(args ...string) resp.Frame {
	c.t.Helper()
	if err := c.w.WriteFrame(resp.CommandStrings(args...)); err != nil {
		c.t.Fatalf("write %v: %v", args, err)
	}
	f, err := c.r.ReadFrame()
	if err != nil {
		c.t.Fatalf("read reply to %v: %v", args, err)
	}
	return f.Clone()
}

func (c *testClient) expect(want resp.Frame, args ...string) {
	c.t.Helper()
	if got := c.do(args...); !got.Equal(want) {
		c.t.Errorf("%v = %s, want %s", args, got, want)
	}
}

// expectClosed asserts that the server closed the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	if f, err := c.r.ReadFrame(); err == nil {
		c.t.Fatalf("expected connection to be closed, got %s", f)
	}
}

// ============================================================
// Test: request/response over TCP
// ============================================================

func TestServer_BasicCommands(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	c := dial(t, srv)

	c.expect(resp.SimpleFrame("PONG"), "PING")
	c.expect(resp.SimpleFrame("OK"), "SET", "k", "v")
	c.expect(resp.BulkStringFrame("v"), "GET", "k")
	c.expect(resp.NullBulk(), "GET", "missing")
	c.expect(resp.IntegerFrame(1), "DEL", "k")
	c.expect(resp.IntegerFrame(0), "DBSIZE")
}

func TestServer_WireBytes(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	br := bufio.NewReader(conn)

	tests := []struct {
		send string
		want string
	}{
		{"*1\r\n$4\r\nPING\r\n", "+PONG\r\n"},
		{"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n", "+OK\r\n"},
		{"*2\r\n$3\r\nGET\r\n$1\r\nk\r\n", "$1\r\nv\r\n"},
		{"*2\r\n$3\r\nGET\r\n$4\r\nnope\r\n", "$-1\r\n"},
	}

	for _, tt := range tests {
		if _, err := io.WriteString(conn, tt.send); err != nil {
			t.Fatalf("write: %v", err)
		}
		got := make([]byte, len(tt.want))
		if _, err := io.ReadFull(br, got); err != nil {
			t.Fatalf("read reply to %q: %v", tt.send, err)
		}
		if string(got) != tt.want {
			t.Errorf("reply to %q = %q, want %q", tt.send, got, tt.want)
		}
	}
}

func TestServer_FragmentedRequest(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	c := dial(t, srv)

	req := "*3\r\n$3\r\nSET\r\n$5\r\nhello\r\n$5\r\nworld\r\n"
	for i := 0; i < len(req); i++ {
		if _, err := c.conn.Write([]byte{req[i]}); err != nil {
			t.Fatalf("write byte %d: %v", i, err)
		}
		time.Sleep(time.Millisecond)
	}
	f, err := c.r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !f.Equal(resp.SimpleFrame("OK")) {
		t.Errorf("reply = %s, want +OK", f)
	}
	c.expect(resp.BulkStringFrame("world"), "GET", "hello")
}

func TestServer_RecoverableErrors(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	c := dial(t, srv)

	c.expect(resp.ErrorFrame("ERR unknown command 'FOO', with args beginning with: 'a'"), "FOO", "a")
	c.expect(resp.ErrorFrame("ERR wrong number of arguments for 'get' command"), "GET")
	c.expect(resp.ErrorFrame("ERR syntax error"), "SET", "k", "v", "NOPE")

	// A well-formed frame that is not a command keeps the connection open.
	if err := c.w.WriteFrame(resp.SimpleFrame("PING")); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := c.r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !f.Equal(resp.ErrorFrame("ERR Protocol error: expected array of bulk strings")) {
		t.Errorf("reply = %s", f)
	}

	c.expect(resp.SimpleFrame("PONG"), "PING")
}

func TestServer_MalformedInputClosesOnlyThatConnection(t *testing.T) {
	metrics := &recordingMetrics{}
	srv, _ := startServer(t, nil, metrics)

	good := dial(t, srv)
	good.expect(resp.SimpleFrame("OK"), "SET", "k", "v")

	bad := dial(t, srv)
	if _, err := io.WriteString(bad.conn, "*1\r\n$x\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := bad.r.ReadFrame()
	if err != nil {
		t.Fatalf("expected an error reply before close, got %v", err)
	}
	if !f.IsError() || !strings.HasPrefix(string(f.Str), "ERR Protocol error: ") {
		t.Errorf("reply = %s, want protocol error", f)
	}
	bad.expectClosed()

	good.expect(resp.BulkStringFrame("v"), "GET", "k")

	if n := metrics.count("protocol_error"); n != 1 {
		t.Errorf("protocol errors recorded = %d, want 1", n)
	}
}

func TestServer_Quit(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	c := dial(t, srv)

	c.expect(resp.SimpleFrame("OK"), "QUIT")
	c.expectClosed()
}

func TestServer_Expiry(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	c := dial(t, srv)

	c.expect(resp.SimpleFrame("OK"), "SET", "k", "v", "PX", "50")
	c.expect(resp.BulkStringFrame("v"), "GET", "k")
	time.Sleep(100 * time.Millisecond)
	c.expect(resp.NullBulk(), "GET", "k")
}

func TestServer_ConcurrentClients(t *testing.T) {
	srv, store := startServer(t, nil, nil)

	const clients = 20
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		c := dial(t, srv)
		wg.Add(1)
		go func(i int, c *testClient) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			for j := 0; j < 50; j++ {
				val := fmt.Sprintf("val-%d-%d", i, j)
				if f := c.do("SET", key, val); !f.Equal(resp.SimpleFrame("OK")) {
					t.Errorf("SET = %s", f)
					return
				}
				if f := c.do("GET", key); string(f.Str) != val {
					t.Errorf("GET %s = %s, want %s", key, f, val)
					return
				}
				c.do("INCR", "shared")
			}
		}(i, c)
	}
	wg.Wait()

	if got, _ := store.Get("shared"); string(got) != "1000" {
		t.Errorf("shared counter = %q, want 1000", got)
	}
}

// ============================================================
// Test: limits
// ============================================================

func TestServer_MaxConnections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 1
	metrics := &recordingMetrics{}
	srv, _ := startServer(t, cfg, metrics)

	first := dial(t, srv)
	first.expect(resp.SimpleFrame("PONG"), "PING")

	second := dial(t, srv)
	f, err := second.r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !f.Equal(resp.ErrorFrame("ERR max number of clients reached")) {
		t.Errorf("reply = %s", f)
	}
	second.expectClosed()

	first.expect(resp.SimpleFrame("PONG"), "PING")
	if n := metrics.count("rejected"); n != 1 {
		t.Errorf("rejected connections = %d, want 1", n)
	}
}

func TestServer_RejectDoesNotBlockAccept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 1
	metrics := &recordingMetrics{}
	srv := New(cfg, memory.New(), nil, metrics)
	ln := newPipeListener()
	srv.Serve(context.Background(), ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	first := ln.dial(t)
	first.expect(resp.SimpleFrame("PONG"), "PING")

	// net.Pipe writes block until the peer reads, and these peers never do.
	const stalled = 5
	for i := 0; i < stalled; i++ {
		ln.dial(t)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for metrics.count("rejected") < stalled {
		if time.Now().After(deadline) {
			t.Fatalf("rejected = %d after 500ms, want %d", metrics.count("rejected"), stalled)
		}
		time.Sleep(5 * time.Millisecond)
	}
	first.expect(resp.SimpleFrame("PONG"), "PING")
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 2
	srv, store := startServer(t, cfg, nil)
	c := dial(t, srv)

	c.expect(resp.SimpleFrame("PONG"), "PING")
	c.expect(resp.SimpleFrame("OK"), "SET", "a", "1")
	c.expect(resp.ErrorFrame("ERR rate limit exceeded"), "SET", "b", "2")

	if _, ok := store.Get("b"); ok {
		t.Error("rate-limited request reached the store")
	}
}

func TestServer_RequestLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits = resp.Limits{MaxBulkLen: 8}
	srv, _ := startServer(t, cfg, nil)
	c := dial(t, srv)

	c.expect(resp.SimpleFrame("OK"), "SET", "k", "12345678")

	if _, err := io.WriteString(c.conn, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$9\r\n123456789\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := c.r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !f.IsError() {
		t.Errorf("oversized bulk reply = %s, want protocol error", f)
	}
	c.expectClosed()
}

// ============================================================
// Test: lifecycle
// ============================================================

func TestServer_ShutdownClosesConnections(t *testing.T) {
	store := memory.New()
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	srv := New(cfg, store, nil, nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	c := dial(t, srv)
	c.expect(resp.SimpleFrame("PONG"), "PING")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	c.expectClosed()

	if _, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after Shutdown")
	}
	if n := srv.ActiveConnections(); n != 0 {
		t.Errorf("ActiveConnections() = %d after Shutdown", n)
	}
}

func TestServer_ContextCancelStopsAccepting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	srv := New(cfg, memory.New(), nil, nil)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Shutdown(context.Background())

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", srv.Addr().String(), 100*time.Millisecond)
		if err != nil {
			return
		}
		conn.Close()
		if time.Now().After(deadline) {
			t.Fatal("listener still accepting after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	srv, _ := startServer(t, cfg, nil)
	c := dial(t, srv)

	c.expect(resp.SimpleFrame("PONG"), "PING")
	time.Sleep(150 * time.Millisecond)
	c.expectClosed()
}

func TestServer_Metrics(t *testing.T) {
	metrics := &recordingMetrics{}
	srv, _ := startServer(t, nil, metrics)
	c := dial(t, srv)

	c.do("SET", "k", "v")
	c.do("GET", "k")
	c.do("BOGUS")

	if n := metrics.count("cmd:SET:ok"); n != 1 {
		t.Errorf("SET ok = %d, want 1", n)
	}
	if n := metrics.count("cmd:GET:ok"); n != 1 {
		t.Errorf("GET ok = %d, want 1", n)
	}
	if n := metrics.count("cmd:unknown:error"); n != 1 {
		t.Errorf("unknown error = %d, want 1", n)
	}
	if n := metrics.count("opened"); n != 1 {
		t.Errorf("opened = %d, want 1", n)
	}
}

// recordingMetrics counts events by name.
// pipeListener hands out in-memory connections from net.Pipe.
type pipeListener struct {
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
}

func newPipeListener() *pipeListener {
	return &pipeListener{conns: make(chan net.Conn), done: make(chan struct{})}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *pipeListener) Addr() net.Addr { return pipeAddr{} }

// dial blocks until the server accepts and returns the client side.
func (l *pipeListener) dial(t *testing.T) *testClient {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	select {
	case l.conns <- server:
	case <-time.After(time.Second):
		t.Fatal("server did not accept within 1s")
	}
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))
	return &testClient{t: t, conn: client, r: resp.NewReader(client), w: resp.NewWriter(client)}
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

type recordingMetrics struct {
	mu     sync.Mutex
	events map[string]int
}

func (m *recordingMetrics) add(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[string]int)
	}
	m.events[name]++
}

func (m *recordingMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[name]
}

func (m *recordingMetrics) ConnOpened()         { m.add("opened") }
func (m *recordingMetrics) ConnClosed()         { m.add("closed") }
func (m *recordingMetrics) ConnRejected(string) { m.add("rejected") }
func (m *recordingMetrics) IncProtocolErrors()  { m.add("protocol_error") }
func (m *recordingMetrics) IncRateLimited()     { m.add("rate_limited") }
func (m *recordingMetrics) RecordCommand(name, status string, _ float64) {
	m.add("cmd:" + name + ":" + status)
}
