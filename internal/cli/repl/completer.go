package repl

import (
	"sort"
	"strings"

	"github.com/yndnr/respkv/internal/command"
)

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the server command table plus
// the REPL's own commands.
func NewCompleter() *Completer {
	cmds := append(command.Names(), "HELP", "EXIT", "CLEAR")
	sort.Strings(cmds)
	return &Completer{commands: cmds}
}

// Complete returns the command names starting with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Commands returns every known command name in sorted order.
func (c *Completer) Commands() []string {
	return c.commands
}
