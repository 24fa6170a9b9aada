package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/pkg/resp"
)

// Doer sends one command and returns the reply.
type Doer interface {
	Do(ctx context.Context, args ...string) (resp.Frame, error)
}

// Config holds the REPL settings.
type Config struct {
	Input     io.Reader
	Output    io.Writer
	Prompt    string
	Formatter output.Formatter
	History   *History
	// Timeout bounds each command. Zero means no limit.
	Timeout time.Duration
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	client    Doer
	formatter output.Formatter
	completer *Completer
	history   *History
	timeout   time.Duration
}

// New creates a REPL that sends commands through client.
func New(client Doer, cfg Config) *REPL {
	r := &REPL{
		input:     cfg.Input,
		output:    cfg.Output,
		prompt:    cfg.Prompt,
		client:    client,
		formatter: cfg.Formatter,
		completer: NewCompleter(),
		history:   cfg.History,
		timeout:   cfg.Timeout,
	}
	if r.input == nil {
		r.input = os.Stdin
	}
	if r.output == nil {
		r.output = os.Stdout
	}
	if r.prompt == "" {
		r.prompt = "respkv> "
	}
	if r.formatter == nil {
		r.formatter = &output.TextFormatter{}
	}
	if r.history == nil {
		r.history = NewHistoryFile("")
	}
	return r
}

// Run reads commands until EOF, exit, or ctx is done. History is loaded
// first and saved on return.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: cannot load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: cannot save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			if line == "" {
				fmt.Fprintln(r.output)
				return nil
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		if quit := r.eval(ctx, line); quit {
			return nil
		}
	}
}

// eval runs one line and reports whether the REPL should stop.
func (r *REPL) eval(ctx context.Context, line string) bool {
	args, err := Split(line)
	if err != nil {
		fmt.Fprintf(r.output, "(error) %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		return true
	case "help":
		r.help(args[1:])
		return false
	case "clear":
		fmt.Fprint(r.output, "\033[H\033[2J")
		return false
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	reply, err := r.client.Do(ctx, args...)
	if err != nil {
		fmt.Fprintf(r.output, "(error) %v\n", err)
		return false
	}
	if err := r.formatter.Format(r.output, reply); err != nil {
		fmt.Fprintf(r.output, "(error) %v\n", err)
	}
	return false
}

func (r *REPL) help(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no command matches %q\n", prefix)
		return
	}
	fmt.Fprintln(r.output, strings.Join(matches, " "))
}
