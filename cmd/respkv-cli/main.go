package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/yndnr/respkv/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		// The error reply itself was already printed.
		if errors.Is(err, command.ErrReplyError) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
