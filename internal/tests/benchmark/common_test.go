package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/client"
)

// KeyCounts are the keyspace sizes for full runs.
var KeyCounts = []int{10000, 100000, 500000, 1000000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000, 100000}

// valueSizes are the payload sizes exercised by the wire benchmarks.
var valueSizes = []int{16, 256, 4096}

func benchKey(i int) string {
	return "bench:key:" + strconv.Itoa(i)
}

// prefillStore writes count keys, every fourth one with a TTL.
func prefillStore(store *memory.Store, count int) {
	value := []byte("value")
	deadline := time.Now().Add(time.Hour)
	for i := 0; i < count; i++ {
		opts := memory.SetOptions{}
		if i%4 == 0 {
			opts.ExpireAt = deadline
		}
		store.Set(benchKey(i), value, opts)
	}
}

// startServer serves store on a loopback port and returns a pooled client.
func startServer(b *testing.B, store *memory.Store) *client.Client {
	b.Helper()
	cfg := redisserver.DefaultConfig()
	cfg.Address = "127.0.0.1:0"

	srv := redisserver.New(cfg, store, nil, nil)
	if err := srv.Start(context.Background()); err != nil {
		b.Fatalf("Start() error = %v", err)
	}
	b.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	cl, err := client.New(client.Config{
		Addr:     srv.Addr().String(),
		PoolSize: int32(runtime.GOMAXPROCS(0) * 2),
	})
	if err != nil {
		b.Fatalf("client.New() error = %v", err)
	}
	b.Cleanup(cl.Close)
	return cl
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs benchFn once per keyspace size.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
