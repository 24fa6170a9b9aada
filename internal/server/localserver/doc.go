// Package localserver opens the Unix domain socket that serves RESP to
// clients on the same host.
//
// The socket file is created with a restrictive mode, a stale file left
// by a crashed process is replaced, and the file is removed again when
// the listener closes. Any RESP server that accepts a net.Listener can
// serve it:
//
//	ln, err := localserver.Listen("/run/respkv/respkv.sock", 0o700)
//	if err != nil {
//		return err
//	}
//	srv.Serve(ctx, ln)
package localserver
