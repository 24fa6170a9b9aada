package config

import "time"

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
}

// RedisConfig configures the RESP protocol server.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit int `koanf:"rate_limit"`
	RateBurst int `koanf:"rate_burst"`

	// MaxConnections caps concurrent clients; 0 means unlimited.
	MaxConnections int `koanf:"max_connections"`

	// MaxBulkLen is the largest bulk string a request may carry, in bytes.
	MaxBulkLen int `koanf:"max_bulk_len"`
	// MaxArrayLen is the largest element count a request may declare.
	MaxArrayLen int `koanf:"max_array_len"`

	// UnixSocket, when set, also serves RESP on this socket path.
	UnixSocket     string `koanf:"unix_socket"`
	UnixSocketPerm uint32 `koanf:"unix_socket_perm"`

	TLS TLSConfig `koanf:"tls"`
}

// TLSConfig enables TLS on the TCP listener. Certificate files are
// reloaded when they change on disk.
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	// ClientCAFile turns on mutual TLS when set.
	ClientCAFile string `koanf:"client_ca_file"`
}

// HTTPConfig configures the admin HTTP server (/health, /ready, /metrics).
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	// AllowList restricts clients to these IPs or CIDR blocks; empty allows all.
	AllowList []string `koanf:"allow_list"`
}

// StorageSection configures the in-memory keyspace.
type StorageSection struct {
	// Shards is the number of lock shards; must be a power of two.
	Shards int `koanf:"shards"`
	// SweepInterval is the period of the expired-key sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval"`
	// SweepBudget is the most entries the sweeper visits per shard lock.
	SweepBudget int `koanf:"sweep_budget"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
