package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix marks the environment variables Load reads.
const DefaultEnvPrefix = "RESPKV_"

// Loader merges a YAML file and the environment into a config struct.
type Loader struct {
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile names the YAML file to read. Without it only the
// environment is consulted.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// NewLoader returns a Loader for the given options.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fills target from the file, then the environment. Fields neither
// source mentions keep the value target already holds, so callers pass
// a struct pre-filled with defaults. Each call starts from a clean slate.
func (l *Loader) Load(target any) error {
	k := koanf.New(".")

	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
	}

	// RESPKV_SERVER__REDIS__MAX_CONNECTIONS -> server.redis.max_connections
	prefix := l.envPrefix
	keyOf := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		return strings.ReplaceAll(s, "__", ".")
	}
	if err := k.Load(env.Provider(prefix, ".", keyOf), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
