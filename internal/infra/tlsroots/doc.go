// Package tlsroots builds the TLS configurations used by the RESP
// listener and its clients.
//
//   - roots.go: CA pools from PEM files, client configs
//   - watcher.go: server key pair with hot reload via fsnotify
//
// A server config takes its certificate from a KeyPair, so rotating the
// files on disk is picked up by new handshakes without a restart:
//
//	kp, err := tlsroots.LoadKeyPair(certFile, keyFile)
//	if err != nil {
//		return err
//	}
//	go kp.Watch(ctx)
//
//	tlsCfg, err := tlsroots.ServerConfig(kp, clientCAFile)
package tlsroots
