// Package tests runs the server components together the way
// respkv-server wires them.
package tests

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/server/httpserver"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/client"
)

type stack struct {
	store   *memory.Store
	redis   *redisserver.Server
	http    *httpserver.Server
	client  *client.Client
	handler *shutdown.Handler
}

func startStack(t *testing.T) *stack {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New(memory.WithShards(4))
	sweeper := memory.NewSweeper(store, memory.SweeperConfig{Interval: 10 * time.Millisecond}, log)

	reg := metric.NewRegistry()
	reg.MustRegister(metric.NewKeyspaceCollector(func() metric.KeyspaceStats {
		s := store.Stats()
		return metric.KeyspaceStats{Keys: s.Keys, ExpiredLazy: s.ExpiredLazy, ExpiredSwept: s.ExpiredSwept}
	}))

	cfg := redisserver.DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	redisSrv := redisserver.New(cfg, store, log, reg)
	require.NoError(t, redisSrv.Start(context.Background()))

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Logger:  log,
		Metrics: reg.Handler(),
		Ready:   func() error { return nil },
	})
	httpSrv := httpserver.New("127.0.0.1:0", router, log)
	require.NoError(t, httpSrv.Start())

	sweeper.Start()

	sh := shutdown.NewHandler(5*time.Second, shutdown.WithLogger(log))
	sh.Register("redis", redisSrv.Shutdown)
	sh.Register("sweeper", func(context.Context) error {
		sweeper.Stop()
		return nil
	})
	sh.Register("http", httpSrv.Shutdown)

	cl, err := client.New(client.Config{Addr: redisSrv.Addr().String()})
	require.NoError(t, err)

	st := &stack{store: store, redis: redisSrv, http: httpSrv, client: cl, handler: sh}
	t.Cleanup(func() {
		cl.Close()
		sh.Trigger("test done")
		_ = sh.Wait()
	})
	return st
}

func (s *stack) scrape(t *testing.T) string {
	t.Helper()
	res, err := http.Get("http://" + s.http.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}

func TestStack_ExpiryAndMetrics(t *testing.T) {
	st := startStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, st.client.Set(ctx, "short", []byte("v"), 50*time.Millisecond))
	require.NoError(t, st.client.Set(ctx, "long", []byte("v"), 0))

	// Nobody reads "short" again; only the sweeper can evict it.
	require.Eventually(t, func() bool {
		return st.store.Len() == 1
	}, 3*time.Second, 20*time.Millisecond)

	_, ok, err := st.client.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = st.client.Do(ctx, "NOSUCHCMD")
	require.NoError(t, err)

	body := st.scrape(t)
	assert.Contains(t, body, "respkv_keyspace_keys 1")
	assert.Contains(t, body, `respkv_keyspace_expired_keys_total{path="sweep"} 1`)
	assert.Contains(t, body, `respkv_commands_total{command="SET",status="ok"} 2`)
	assert.Contains(t, body, `respkv_commands_total{command="unknown",status="error"} 1`)
	assert.Contains(t, body, "respkv_connections_active 1")
}

func TestStack_HealthAndVersion(t *testing.T) {
	st := startStack(t)
	base := "http://" + st.http.Addr().String()

	for _, path := range []string{"/health", "/ready", "/version"} {
		res, err := http.Get(base + path)
		require.NoError(t, err, path)
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()

		assert.Equal(t, http.StatusOK, res.StatusCode, path)
		assert.True(t, strings.Contains(string(body), `"code":"OK"`), "%s body: %s", path, body)
	}
}

func TestStack_ShutdownClosesClients(t *testing.T) {
	st := startStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, st.client.Ping(ctx))

	st.handler.Trigger("test")
	require.NoError(t, st.handler.Wait())

	assert.Equal(t, 0, st.redis.ActiveConnections())
	assert.Error(t, st.client.Ping(ctx))
}
