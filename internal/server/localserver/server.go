package localserver

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// ErrInUse is returned when another process is accepting on the socket.
var ErrInUse = errors.New("localserver: socket already in use")

// Listen listens on the Unix socket at path and sets its mode to perm.
// A leftover socket file nobody answers on is removed first.
func Listen(path string, perm os.FileMode) (net.Listener, error) {
	if path == "" {
		return nil, errors.New("localserver: empty socket path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("localserver: create socket dir: %w", err)
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("localserver: listen: %w", err)
	}
	if err := os.Chmod(path, perm); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("localserver: chmod socket: %w", err)
	}
	return ln, nil
}

func removeStale(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("localserver: stat socket: %w", err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("localserver: %s exists and is not a socket", path)
	}

	c, err := net.DialTimeout("unix", path, 100*time.Millisecond)
	if err == nil {
		_ = c.Close()
		return fmt.Errorf("%w: %s", ErrInUse, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("localserver: remove stale socket: %w", err)
	}
	return nil
}
