// Package command defines the respkv-cli commands using urfave/cli/v2:
//
//   - root.go: application, global flags, client lifecycle
//   - keys.go: one subcommand per server command (get, set, del, ...)
//   - raw.go: raw passthrough and the interactive repl
//
// Every command opens the shared pooled client, sends one request, and
// prints the reply with the selected output format. Running the binary
// with no subcommand starts the repl.
package command
