package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rchasman/dominion-maker-sub001/config"
	"github.com/rchasman/dominion-maker-sub001/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	config   string
	logLevel string
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "dominion-maker",
		Short:         "Five-card draw played by committees of proposers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&g.config, "config", "c", "", "YAML or TOML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides the configuration)")

	root.AddCommand(newPlayCommand(g), newServeCommand(g))
	return root
}

// setup loads the configuration and builds the logger it asks for.
func (g *globalFlags) setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadWithEnv(g.config)
	if err != nil {
		return config.Config{}, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("log level: %w", err)
	}
	return cfg, logger, nil
}
