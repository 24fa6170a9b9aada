package config

import "time"

// Default configuration values.
const (
	DefaultRedisAddr      = "127.0.0.1:6379"
	DefaultHTTPAddr       = "127.0.0.1:9121"
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultMaxConnections = 10000
	DefaultMaxBulkLen     = 512 << 20
	DefaultMaxArrayLen    = 1 << 20
	DefaultUnixSocketPerm = 0o700

	DefaultShards        = 16
	DefaultSweepInterval = 100 * time.Millisecond
	DefaultSweepBudget   = 1024

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:           DefaultRedisAddr,
				ReadTimeout:    DefaultReadTimeout,
				WriteTimeout:   DefaultWriteTimeout,
				IdleTimeout:    DefaultIdleTimeout,
				MaxConnections: DefaultMaxConnections,
				MaxBulkLen:     DefaultMaxBulkLen,
				MaxArrayLen:    DefaultMaxArrayLen,
				UnixSocketPerm: DefaultUnixSocketPerm,
			},
			HTTP: HTTPConfig{
				Enabled: false,
				Addr:    DefaultHTTPAddr,
			},
		},
		Storage: StorageSection{
			Shards:        DefaultShards,
			SweepInterval: DefaultSweepInterval,
			SweepBudget:   DefaultSweepBudget,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
