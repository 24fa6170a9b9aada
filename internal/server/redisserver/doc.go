// Package redisserver serves the RESP2 protocol.
//
// Each accepted connection runs in its own goroutine and processes
// requests in strict lockstep: read one frame, parse it into a command,
// execute it against the shared store, write and flush the reply, then
// read the next frame. Malformed input ends only the offending connection.
//
// Start listens on TCP, optionally behind TLS; Serve accepts on any
// listener, such as the Unix socket opened by package localserver.
//
// Commands are listed in package command.
package redisserver
