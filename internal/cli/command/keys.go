package command

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
)

// checkArgs enforces a positional argument count. max < 0 means unbounded.
func checkArgs(c *cli.Context, min, max int) error {
	n := c.NArg()
	if n < min || (max >= 0 && n > max) {
		return fmt.Errorf("%s: wrong number of arguments\nusage: %s %s", c.Command.Name, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Check that the server answers",
		ArgsUsage: "[MESSAGE]",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 0, 1); err != nil {
				return err
			}
			return send(c, append([]string{"PING"}, c.Args().Slice()...)...)
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, 1); err != nil {
				return err
			}
			return send(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a value, optionally with an expiry",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ex",
				Usage: "expire after this duration (millisecond precision)",
			},
			&cli.BoolFlag{
				Name:  "nx",
				Usage: "only set if the key does not exist",
			},
			&cli.BoolFlag{
				Name:  "xx",
				Usage: "only set if the key exists",
			},
			&cli.BoolFlag{
				Name:  "keepttl",
				Usage: "keep the current expiry",
			},
			&cli.BoolFlag{
				Name:  "get",
				Usage: "print the previous value",
			},
		},
		Action: setAction,
	}
}

func setAction(c *cli.Context) error {
	if err := checkArgs(c, 2, 2); err != nil {
		return err
	}
	args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}

	if ttl := c.Duration("ex"); ttl != 0 {
		if ttl < 0 {
			return fmt.Errorf("set: --ex must be positive")
		}
		ms := ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		args = append(args, "PX", strconv.FormatInt(ms, 10))
	}
	if c.Bool("keepttl") {
		args = append(args, "KEEPTTL")
	}
	if c.Bool("nx") {
		args = append(args, "NX")
	}
	if c.Bool("xx") {
		args = append(args, "XX")
	}
	if c.Bool("get") {
		args = append(args, "GET")
	}
	return send(c, args...)
}

// DelCommand returns the del command.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Remove keys and print how many existed",
		ArgsUsage: "KEY [KEY...]",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, -1); err != nil {
				return err
			}
			return send(c, append([]string{"DEL"}, c.Args().Slice()...)...)
		},
	}
}

// ExistsCommand returns the exists command.
func ExistsCommand() *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "Count how many of the keys exist",
		ArgsUsage: "KEY [KEY...]",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, -1); err != nil {
				return err
			}
			return send(c, append([]string{"EXISTS"}, c.Args().Slice()...)...)
		},
	}
}

// TTLCommand returns the ttl command.
func TTLCommand() *cli.Command {
	return &cli.Command{
		Name:      "ttl",
		Usage:     "Print the remaining time to live (-1 no expiry, -2 missing)",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ms",
				Usage: "report milliseconds instead of seconds",
			},
		},
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, 1); err != nil {
				return err
			}
			name := "TTL"
			if c.Bool("ms") {
				name = "PTTL"
			}
			return send(c, name, c.Args().First())
		},
	}
}

// ExpireCommand returns the expire command.
func ExpireCommand() *cli.Command {
	return &cli.Command{
		Name:      "expire",
		Usage:     "Set a key's time to live",
		ArgsUsage: "KEY DURATION",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 2, 2); err != nil {
				return err
			}
			ttl, err := time.ParseDuration(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("expire: %w", err)
			}
			return send(c, "PEXPIRE", c.Args().First(), strconv.FormatInt(ttl.Milliseconds(), 10))
		},
	}
}

// PersistCommand returns the persist command.
func PersistCommand() *cli.Command {
	return &cli.Command{
		Name:      "persist",
		Usage:     "Remove a key's expiry",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, 1); err != nil {
				return err
			}
			return send(c, "PERSIST", c.Args().First())
		},
	}
}

// IncrCommand returns the incr command.
func IncrCommand() *cli.Command {
	return &cli.Command{
		Name:      "incr",
		Usage:     "Add to the integer stored at a key",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "by",
				Usage: "amount to add, may be negative",
				Value: 1,
			},
		},
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, 1); err != nil {
				return err
			}
			return send(c, "INCRBY", c.Args().First(), strconv.FormatInt(c.Int64("by"), 10))
		},
	}
}

// DBSizeCommand returns the dbsize command.
func DBSizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "dbsize",
		Usage: "Print the number of keys",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 0, 0); err != nil {
				return err
			}
			return send(c, "DBSIZE")
		},
	}
}
