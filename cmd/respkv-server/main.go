package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/confloader"
	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/infra/tlsroots"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/httpserver"
	"github.com/yndnr/respkv/internal/server/localserver"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:    "respkv-server",
		Usage:   "in-memory key-value server speaking RESP",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"RESPKV_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "check-config",
				Usage: "validate the configuration and exit",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, c.String("config"), c.Bool("check-config"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, checkOnly bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if checkOnly {
		fmt.Println("configuration OK")
		return nil
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.Info("starting respkv-server", append(buildinfo.LogAttrs(), "config", configFile)...)

	store := memory.New(memory.WithShards(cfg.Storage.Shards))
	sweeper := memory.NewSweeper(store, memory.SweeperConfig{
		Interval:    cfg.Storage.SweepInterval,
		ShardBudget: cfg.Storage.SweepBudget,
	}, log.With("component", "sweeper"))

	metrics := metric.Global()
	metrics.MustRegister(metric.NewKeyspaceCollector(func() metric.KeyspaceStats {
		s := store.Stats()
		return metric.KeyspaceStats{Keys: s.Keys, ExpiredLazy: s.ExpiredLazy, ExpiredSwept: s.ExpiredSwept}
	}))

	sh := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(log))
	// abort runs the hooks registered so far and returns err.
	abort := func(err error) error {
		sh.Trigger("startup failed")
		_ = sh.WaitContext(context.Background())
		return err
	}

	rc := redisConfig(cfg)
	if cfg.Server.Redis.TLS.Enabled {
		tlsCfg, stop, err := serverTLS(ctx, cfg.Server.Redis.TLS, log.With("component", "tls"))
		if err != nil {
			return fmt.Errorf("load tls: %w", err)
		}
		rc.TLS = tlsCfg
		sh.Register("tls-watcher", func(context.Context) error {
			stop()
			return nil
		})
	}

	redisSrv := redisserver.New(rc, store, log.With("component", "redis"), metrics)
	if err := redisSrv.Start(ctx); err != nil {
		return abort(fmt.Errorf("start redis listener: %w", err))
	}
	sh.Register("redis", redisSrv.Shutdown)

	if path := cfg.Server.Redis.UnixSocket; path != "" {
		ln, err := localserver.Listen(path, os.FileMode(cfg.Server.Redis.UnixSocketPerm))
		if err != nil {
			return abort(fmt.Errorf("start unix listener: %w", err))
		}
		uc := *rc
		uc.Address = path
		uc.TLS = nil
		unixSrv := redisserver.New(&uc, store, log.With("component", "redis-unix"), metrics)
		unixSrv.Serve(ctx, ln)
		sh.Register("redis-unix", unixSrv.Shutdown)
	}

	sweeper.Start()
	sh.Register("sweeper", func(context.Context) error {
		sweeper.Stop()
		return nil
	})

	if cfg.Server.HTTP.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Logger:    log.With("component", "http"),
			Metrics:   metrics.Handler(),
			Ready:     readiness(redisSrv),
			AllowList: cfg.Server.HTTP.AllowList,
		})
		httpSrv := httpserver.New(cfg.Server.HTTP.Addr, router, log.With("component", "http"))
		if err := httpSrv.Start(); err != nil {
			return abort(fmt.Errorf("start http listener: %w", err))
		}
		sh.Register("http", httpSrv.Shutdown)
	}

	if configFile != "" {
		stop, err := watchConfig(configFile, cfg, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			sh.Register("config-watcher", func(context.Context) error { return stop() })
		}
	}

	log.Info("server started", "redis_addr", redisSrv.Addr().String())
	if err := sh.WaitContext(ctx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the optional file and RESPKV_ environment
// variables, then validates the result.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (*slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}

func redisConfig(cfg *config.ServerConfig) *redisserver.Config {
	r := cfg.Server.Redis
	return &redisserver.Config{
		Address:        r.Addr,
		ReadTimeout:    r.ReadTimeout,
		WriteTimeout:   r.WriteTimeout,
		IdleTimeout:    r.IdleTimeout,
		RateLimit:      r.RateLimit,
		RateBurst:      r.RateBurst,
		MaxConnections: r.MaxConnections,
		Limits: resp.Limits{
			MaxBulkLen:  r.MaxBulkLen,
			MaxArrayLen: r.MaxArrayLen,
		},
	}
}

// serverTLS loads the listener key pair and keeps it fresh until ctx is
// done or stop is called.
func serverTLS(ctx context.Context, c config.TLSConfig, log *slog.Logger) (*tls.Config, func(), error) {
	kp, err := tlsroots.LoadKeyPair(c.CertFile, c.KeyFile, tlsroots.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	tlsCfg, err := tlsroots.ServerConfig(kp, c.ClientCAFile)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := kp.Watch(ctx); err != nil {
			log.Warn("certificate reload disabled", "error", err)
		}
	}()
	return tlsCfg, cancel, nil
}

func readiness(srv *redisserver.Server) func() error {
	return func() error {
		if srv.Addr() == nil {
			return errors.New("redis listener not bound")
		}
		return nil
	}
}

// watchConfig reloads the file on change. Only log.level applies live;
// other changes are reported and wait for a restart.
func watchConfig(path string, current *config.ServerConfig, log *slog.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		next, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if next.Log.Level != current.Log.Level {
			if err := logger.SetLevel(next.Log.Level); err != nil {
				log.Warn("config reload rejected", "error", err)
				return
			}
			log.Info("log level changed", "from", current.Log.Level, "to", next.Log.Level)
			current.Log.Level = next.Log.Level
		}
		if !reflect.DeepEqual(next.Server, current.Server) || !reflect.DeepEqual(next.Storage, current.Storage) ||
			next.Log.Format != current.Log.Format {
			log.Warn("config changed; settings other than log.level apply after a restart")
		}
	})
	w.StartAsync()
	return w.Stop, nil
}
