// Package repl implements the interactive mode of respkv-cli.
//
//   - repl.go: read a line, split it, send it, print the reply
//   - split.go: quote-aware argument splitting
//   - completer.go: command name completion
//   - history.go: command history persisted under ~/.respkv
package repl
