package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
		return err
	}
	if cfg.HTTP.Enabled {
		if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
			return err
		}
		if sameEndpoint(cfg.HTTP.Addr, cfg.Redis.Addr) {
			return fmt.Errorf("server.http.addr and server.redis.addr both use %s", cfg.HTTP.Addr)
		}
		for _, entry := range cfg.HTTP.AllowList {
			if !validACLEntry(entry) {
				return fmt.Errorf("server.http.allow_list: invalid IP or CIDR %q", entry)
			}
		}
	}

	r := cfg.Redis
	switch {
	case r.ReadTimeout < 0, r.WriteTimeout < 0, r.IdleTimeout < 0:
		return errors.New("server.redis timeouts must not be negative")
	case r.RateLimit < 0:
		return errors.New("server.redis.rate_limit must not be negative")
	case r.RateBurst < 0:
		return errors.New("server.redis.rate_burst must not be negative")
	case r.MaxConnections < 0:
		return errors.New("server.redis.max_connections must not be negative")
	case r.MaxBulkLen < 0:
		return errors.New("server.redis.max_bulk_len must not be negative")
	case r.MaxArrayLen < 0:
		return errors.New("server.redis.max_array_len must not be negative")
	case r.UnixSocketPerm > 0o777:
		return fmt.Errorf("server.redis.unix_socket_perm %#o is not a permission mode", r.UnixSocketPerm)
	}

	if r.TLS.Enabled {
		if r.TLS.CertFile == "" || r.TLS.KeyFile == "" {
			return errors.New("server.redis.tls requires cert_file and key_file")
		}
	}
	return nil
}

func verifyAddr(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

// sameEndpoint reports whether two host:port addresses would collide.
// Port 0 asks the kernel for a free port and never collides.
func sameEndpoint(a, b string) bool {
	ha, pa, errA := net.SplitHostPort(a)
	hb, pb, errB := net.SplitHostPort(b)
	if errA != nil || errB != nil || pa != pb || pa == "0" {
		return false
	}
	return ha == hb || ha == "" || hb == "" || ha == "0.0.0.0" || hb == "0.0.0.0"
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.Shards <= 0 || cfg.Shards&(cfg.Shards-1) != 0 {
		return fmt.Errorf("storage.shards must be a power of two, got %d", cfg.Shards)
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("storage.sweep_interval must be positive")
	}
	if cfg.SweepBudget <= 0 {
		return errors.New("storage.sweep_budget must be positive")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

func validACLEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}
