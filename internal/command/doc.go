// Package command turns request frames into typed commands and executes
// them against the shared store.
//
// A request is an array of bulk strings. The first element selects the
// command by a case-insensitive table lookup; the rest are validated
// against that command's arity and option grammar. Unknown names parse to
// an Unknown command, which executes to an error reply so the connection
// can continue.
//
// Parsing and execution are separate so the whole command surface can be
// tested without a network:
//
//	cmd, err := command.Parse(frame)
//	if err != nil {
//		return command.ErrorFrame(err)
//	}
//	return command.Execute(store, cmd)
package command
