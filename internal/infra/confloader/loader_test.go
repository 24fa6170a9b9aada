package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Redis struct {
			Address        string        `koanf:"address"`
			MaxConnections int           `koanf:"max_connections"`
			IdleTimeout    time.Duration `koanf:"idle_timeout"`
		} `koanf:"redis"`
		HTTP struct {
			Address string `koanf:"address"`
			Enabled bool   `koanf:"enabled"`
		} `koanf:"http"`
	} `koanf:"server"`
	Storage struct {
		SweepInterval string `koanf:"sweep_interval"`
	} `koanf:"storage"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantPrefix string
		wantFile   string
	}{
		{"defaults", nil, DefaultEnvPrefix, ""},
		{"options", []Option{WithEnvPrefix("TEST_"), WithConfigFile("/etc/respkv.yaml")}, "TEST_", "/etc/respkv.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(tt.opts...)
			if l.envPrefix != tt.wantPrefix {
				t.Errorf("envPrefix = %q, want %q", l.envPrefix, tt.wantPrefix)
			}
			if l.filePath != tt.wantFile {
				t.Errorf("filePath = %q, want %q", l.filePath, tt.wantFile)
			}
		})
	}
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	var cfg testConfig
	if err := NewLoader(WithConfigFile("/nonexistent/config.yaml")).Load(&cfg); err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoader_Load_EnvOnly(t *testing.T) {
	t.Setenv("RESPKV_SERVER__HTTP__ADDRESS", "127.0.0.1:8080")
	t.Setenv("RESPKV_SERVER__REDIS__MAX_CONNECTIONS", "500")
	t.Setenv("OTHER_SERVER__HTTP__ENABLED", "true")

	var cfg testConfig
	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Address != "127.0.0.1:8080" {
		t.Errorf("Address = %q, want %q", cfg.Server.HTTP.Address, "127.0.0.1:8080")
	}
	if cfg.Server.Redis.MaxConnections != 500 {
		t.Errorf("MaxConnections = %d, want 500", cfg.Server.Redis.MaxConnections)
	}
	if cfg.Server.HTTP.Enabled {
		t.Error("variables without the prefix must be ignored")
	}
}

func TestLoader_Load_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_STORAGE__SWEEP_INTERVAL", "2s")

	var cfg testConfig
	if err := NewLoader(WithEnvPrefix("MYAPP_")).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.SweepInterval != "2s" {
		t.Errorf("SweepInterval = %q, want %q", cfg.Storage.SweepInterval, "2s")
	}
}

func TestLoader_Load_Repeatable(t *testing.T) {
	path := writeConfig(t, "server:\n  http:\n    address: \"first:1\"\n")
	l := NewLoader(WithConfigFile(path))

	var first testConfig
	if err := l.Load(&first); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("storage:\n  sweep_interval: \"1s\"\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite config file: %v", err)
	}
	var second testConfig
	if err := l.Load(&second); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if second.Server.HTTP.Address != "" {
		t.Errorf("Address = %q, a key removed from the file must not linger", second.Server.HTTP.Address)
	}
	if second.Storage.SweepInterval != "1s" {
		t.Errorf("SweepInterval = %q, want %q", second.Storage.SweepInterval, "1s")
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	// Create temp config file with low priority value
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  http:
    address: "from-file:5080"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Set environment variable with high priority value
	t.Setenv("RESPKV_SERVER__HTTP__ADDRESS", "from-env:8080")

	l := NewLoader(WithConfigFile(configPath))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Environment should override file
	if cfg.Server.HTTP.Address != "from-env:8080" {
		t.Errorf("Address = %q, want %q (env should override file)",
			cfg.Server.HTTP.Address, "from-env:8080")
	}
}

func TestLoader_Load_File(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  http:
    address: "0.0.0.0:5080"
    enabled: true
storage:
  sweep_interval: "250ms"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	l := NewLoader(WithConfigFile(configPath))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Address != "0.0.0.0:5080" {
		t.Errorf("Address = %q, want %q", cfg.Server.HTTP.Address, "0.0.0.0:5080")
	}
	if !cfg.Server.HTTP.Enabled {
		t.Error("Enabled should be true")
	}
	if cfg.Storage.SweepInterval != "250ms" {
		t.Errorf("SweepInterval = %q, want %q", cfg.Storage.SweepInterval, "250ms")
	}
}

func TestLoader_Load_KeepsDefaultsAndParsesDurations(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  redis:
    idle_timeout: "90s"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	var cfg testConfig
	cfg.Server.Redis.Address = "127.0.0.1:6379"
	cfg.Server.Redis.MaxConnections = 10

	l := NewLoader(WithConfigFile(configPath))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s", cfg.Server.Redis.IdleTimeout)
	}
	if cfg.Server.Redis.Address != "127.0.0.1:6379" {
		t.Errorf("Address = %q, default should survive", cfg.Server.Redis.Address)
	}
	if cfg.Server.Redis.MaxConnections != 10 {
		t.Errorf("MaxConnections = %d, default should survive", cfg.Server.Redis.MaxConnections)
	}
}
