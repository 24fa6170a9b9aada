package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when a PEM input holds no certificate.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")
)

// NewPool returns a pool holding the certificates of every file given.
// With no files it returns the system pool, or an empty pool where the
// system pool is unavailable.
func NewPool(files ...string) (*x509.CertPool, error) {
	if len(files) == 0 {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return x509.NewCertPool(), nil
		}
		return pool, nil
	}

	pool := x509.NewCertPool()
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: read CA file: %w", err)
		}
		if err := AppendPEM(pool, data); err != nil {
			return nil, fmt.Errorf("tlsroots: %s: %w", f, err)
		}
	}
	return pool, nil
}

// AppendPEM adds every CERTIFICATE block of pemData to pool. Other block
// types are skipped.
func AppendPEM(pool *x509.CertPool, pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// ClientConfig returns a config for dialing a TLS RESP listener. An empty
// caFile trusts the system roots. serverName overrides the name checked
// against the server certificate.
func ClientConfig(caFile, serverName string, insecure bool) (*tls.Config, error) {
	var files []string
	if caFile != "" {
		files = append(files, caFile)
	}
	pool, err := NewPool(files...)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		RootCAs:            pool,
		ServerName:         serverName,
		InsecureSkipVerify: insecure, //nolint:gosec // opt-in for self-signed test setups
		MinVersion:         tls.VersionTLS12,
	}, nil
}

// ServerConfig returns a listener config serving the key pair kp. A
// non-empty clientCAFile turns on mutual TLS against that CA.
func ServerConfig(kp *KeyPair, clientCAFile string) (*tls.Config, error) {
	cfg := &tls.Config{
		GetCertificate: kp.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
	if clientCAFile != "" {
		pool, err := NewPool(clientCAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}
