// Package main is the respkv-server entry point.
//
// respkv-server serves an in-memory key-value store over the Redis
// serialization protocol, plus an optional HTTP endpoint for health
// checks and Prometheus metrics.
//
// Usage:
//
//	respkv-server
//	respkv-server --config /etc/respkv/server.yaml
//	RESPKV_SERVER__REDIS__ADDR=0.0.0.0:6379 respkv-server
//
// A minimal configuration with TLS and a local socket:
//
//	server:
//	  redis:
//	    addr: 0.0.0.0:6379
//	    unix_socket: /run/respkv/respkv.sock
//	    tls:
//	      enabled: true
//	      cert_file: /etc/respkv/tls/server.crt
//	      key_file: /etc/respkv/tls/server.key
//	  http:
//	    enabled: true
//	    addr: 127.0.0.1:9121
//
// Certificate files are reloaded when they change. Changes to log.level in the config file apply without a restart.
package main
