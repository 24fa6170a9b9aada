package command

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/tlsroots"
	"github.com/yndnr/respkv/pkg/client"
)

// ErrReplyError is returned when the server answered with an error reply.
// The reply has already been printed.
var ErrReplyError = errors.New("server returned an error reply")

const (
	metaClient    = "client"
	metaFormatter = "formatter"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "respkv-cli",
		Usage:   "command-line client for respkv",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			PingCommand(),
			GetCommand(),
			SetCommand(),
			DelCommand(),
			ExistsCommand(),
			TTLCommand(),
			ExpireCommand(),
			PersistCommand(),
			IncrCommand(),
			DBSizeCommand(),
			RawCommand(),
			REPLCommand(),
		},
		Action: replAction,
		Before: openClient,
		After:  closeClient,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "server address",
			EnvVars: []string{"RESPKV_ADDR"},
			Value:   "127.0.0.1:6379",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, raw",
			EnvVars: []string{"RESPKV_OUTPUT"},
			Value:   string(output.FormatText),
		},
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"s"},
			Usage:   "Unix socket path, overrides --addr",
			EnvVars: []string{"RESPKV_SOCKET"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-command timeout, dial included",
			Value: 5 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "tls",
			Usage:   "connect with TLS",
			EnvVars: []string{"RESPKV_TLS"},
		},
		&cli.StringFlag{
			Name:      "cacert",
			Usage:     "CA certificate to verify the server with (default: system roots)",
			EnvVars:   []string{"RESPKV_CACERT"},
			TakesFile: true,
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip server certificate verification",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Addr     string
	Socket   string
	Output   output.Format
	Timeout  time.Duration
	TLS      bool
	CACert   string
	Insecure bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	flags := &GlobalFlags{
		Addr:     c.String("addr"),
		Socket:   c.String("socket"),
		Output:   format,
		Timeout:  c.Duration("timeout"),
		TLS:      c.Bool("tls"),
		CACert:   c.String("cacert"),
		Insecure: c.Bool("insecure"),
	}
	if flags.Socket != "" && flags.TLS {
		return nil, errors.New("--tls cannot be used with --socket")
	}
	return flags, nil
}

// clientConfig turns the global flags into a client configuration.
func (f *GlobalFlags) clientConfig() (client.Config, error) {
	cfg := client.Config{
		Addr:        f.Addr,
		DialTimeout: f.Timeout,
		PoolSize:    1,
	}
	if f.Socket != "" {
		cfg.Addr = f.Socket
		cfg.Network = "unix"
	}
	if f.TLS {
		tlsCfg, err := tlsroots.ClientConfig(f.CACert, "", f.Insecure)
		if err != nil {
			return client.Config{}, err
		}
		cfg.TLS = tlsCfg
	}
	return cfg, nil
}

func openClient(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	cfg, err := flags.clientConfig()
	if err != nil {
		return err
	}
	cl, err := client.New(cfg)
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaClient] = cl
	c.App.Metadata[metaFormatter] = output.NewFormatter(flags.Output)
	return nil
}

func closeClient(c *cli.Context) error {
	if cl := getClient(c); cl != nil {
		cl.Close()
	}
	return nil
}

func getClient(c *cli.Context) *client.Client {
	cl, _ := c.App.Metadata[metaClient].(*client.Client)
	return cl
}

func getFormatter(c *cli.Context) output.Formatter {
	if f, ok := c.App.Metadata[metaFormatter].(output.Formatter); ok {
		return f
	}
	return &output.TextFormatter{}
}

// send runs one command and prints its reply.
func send(c *cli.Context, args ...string) error {
	cl := getClient(c)
	if cl == nil {
		return errors.New("client not initialized")
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply, err := cl.Do(ctx, args...)
	if err != nil {
		return err
	}
	if err := getFormatter(c).Format(c.App.Writer, reply); err != nil {
		return err
	}
	if reply.IsError() {
		return ErrReplyError
	}
	return nil
}
