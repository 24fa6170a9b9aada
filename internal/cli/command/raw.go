package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/repl"
)

// RawCommand returns the raw command, which sends its arguments verbatim.
func RawCommand() *cli.Command {
	return &cli.Command{
		Name:            "raw",
		Usage:           "Send any command, e.g. raw SET k v EX 10",
		ArgsUsage:       "COMMAND [ARG...]",
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, -1); err != nil {
				return err
			}
			return send(c, c.Args().Slice()...)
		},
	}
}

// REPLCommand returns the interactive mode command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start an interactive session (default when no command is given)",
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("unknown command %q", c.Args().First())
	}
	cl := getClient(c)
	if cl == nil {
		return fmt.Errorf("client not initialized")
	}

	r := repl.New(cl, repl.Config{
		Input:     c.App.Reader,
		Output:    c.App.Writer,
		Prompt:    cl.Addr() + "> ",
		Formatter: getFormatter(c),
		History:   repl.NewHistory(),
		Timeout:   c.Duration("timeout"),
	})
	return r.Run(c.Context)
}
