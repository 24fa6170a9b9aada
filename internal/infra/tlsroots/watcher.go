package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// KeyPair holds a certificate and key loaded from disk and reloads them
// when the files change.
type KeyPair struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate

	reloadMu   sync.Mutex
	lastReload time.Time
}

// Option configures a KeyPair.
type Option func(*KeyPair)

// WithLogger sets the logger for reload events.
func WithLogger(logger *slog.Logger) Option {
	return func(kp *KeyPair) {
		kp.logger = logger
	}
}

// WithDebounce sets the minimum spacing between reloads.
func WithDebounce(d time.Duration) Option {
	return func(kp *KeyPair) {
		kp.debounce = d
	}
}

// LoadKeyPair loads certFile and keyFile. It fails if they do not form a
// valid pair.
func LoadKeyPair(certFile, keyFile string, opts ...Option) (*KeyPair, error) {
	kp := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(kp)
	}

	if err := kp.Reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return kp, nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (kp *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert, nil
}

// Reload reads the files again. On failure the previous pair stays in use.
func (kp *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}

	kp.mu.Lock()
	kp.cert = &cert
	kp.mu.Unlock()
	return nil
}

// Watch reloads the pair whenever the cert or key file is written or
// replaced. It blocks until ctx is done.
func (kp *KeyPair) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer watcher.Close()

	// Directories, not files, so editors that rename over the file are seen.
	certDir := filepath.Dir(kp.certFile)
	keyDir := filepath.Dir(kp.keyFile)
	if err := watcher.Add(certDir); err != nil {
		return fmt.Errorf("tlsroots: watch %s: %w", certDir, err)
	}
	if keyDir != certDir {
		if err := watcher.Add(keyDir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", keyDir, err)
		}
	}

	kp.logger.Info("certificate watcher started", "cert_file", kp.certFile, "key_file", kp.keyFile)

	certBase := filepath.Base(kp.certFile)
	keyBase := filepath.Base(kp.keyFile)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			if base != certBase && base != keyBase {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := kp.debouncedReload(); err != nil {
				kp.logger.Error("certificate reload failed", "error", err, "cert_file", kp.certFile)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			kp.logger.Error("certificate watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func (kp *KeyPair) debouncedReload() error {
	kp.reloadMu.Lock()
	defer kp.reloadMu.Unlock()

	if time.Since(kp.lastReload) < kp.debounce {
		return nil
	}

	// Cert and key are usually written back to back.
	time.Sleep(100 * time.Millisecond)

	// A failed load leaves lastReload alone so the next event retries.
	if err := kp.Reload(); err != nil {
		return err
	}
	kp.lastReload = time.Now()
	kp.logger.Info("certificate reloaded", "cert_file", kp.certFile)
	return nil
}
