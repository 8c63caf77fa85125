// Copyright 2024 The go-equa Authors
// Quasar consensus core - demo CLI

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/quasarlabs/quasar-consensus/consensus/quasar"
	"github.com/quasarlabs/quasar-consensus/internal/xlog"
)

// fileConfig mirrors the subset of quasar.Config a user may override from a
// TOML file; zero fields fall back to the chosen preset.
type fileConfig struct {
	Preset    string  `toml:"preset"`
	K         int     `toml:"k"`
	Alpha     float64 `toml:"alpha"`
	Beta      int     `toml:"beta"`
	EnableFPC *bool   `toml:"enable_fpc"`
	LogLevel  string  `toml:"log_level"`
}

func main() {
	// GOMAXPROCS defaults to the host CPU count in a container cgroup,
	// which the runtime otherwise can't see.
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "quasarctl: maxprocs: %v\n", err)
	}

	app := &cli.App{
		Name:  "quasarctl",
		Usage: "run a standalone Quasar consensus engine instance",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a TOML config file"},
			&cli.StringFlag{Name: "preset", Value: "default", Usage: "default|testnet|mainnet"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "quasarctl: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	fc := fileConfig{Preset: c.String("preset"), LogLevel: c.String("log-level")}
	if path := c.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	logger := xlog.New(parseLevel(fc.LogLevel))

	cfg := presetConfig(fc.Preset)
	if fc.K > 0 {
		cfg.K = fc.K
	}
	if fc.Alpha > 0 {
		cfg.Alpha = fc.Alpha
	}
	if fc.Beta > 0 {
		cfg.Beta = fc.Beta
	}
	if fc.EnableFPC != nil {
		cfg.EnableFPC = *fc.EnableFPC
	}
	cfg.Logger = logger

	eng, err := quasar.Create(cfg)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	if err := eng.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	logger.Info("quasarctl started", "preset", fc.Preset, "k", cfg.K, "alpha", cfg.Alpha, "beta", cfg.Beta)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-sigCh:
			logger.Info("shutdown signal received")
			return nil
		case <-statsTicker.C:
			s := eng.Stats()
			logger.Info("engine stats",
				"height", eng.Height(),
				"accepted", s.BlocksAccepted,
				"rejected", s.BlocksRejected,
				"votesProcessed", s.VotesProcessed,
				"avgDecisionTime", s.AverageDecisionTime)
		}
	}
}

func presetConfig(preset string) quasar.Config {
	switch preset {
	case "testnet":
		return quasar.TestnetConfig()
	case "mainnet":
		return quasar.MainnetConfig()
	default:
		return quasar.DefaultConfig()
	}
}

func parseLevel(s string) xlog.Level {
	switch s {
	case "debug":
		return xlog.LevelDebug
	case "warn":
		return xlog.LevelWarn
	case "error":
		return xlog.LevelError
	default:
		return xlog.LevelInfo
	}
}
