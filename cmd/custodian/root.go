package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

// defaultConfigFile is used when --config is not given. It may be absent.
const defaultConfigFile = "custodian.yaml"

var (
	// Global flags
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "custodian",
	Short: "Custodian - document compliance and lifecycle engine",
	Long: `Custodian tracks mortgage loan documents through their retention lifecycle.

Each scan evaluates every document against the active retention policy for
its category and produces a worklist of due archive and delete actions.
Actions are applied one document at a time, each with exactly one audit
record. Legal holds suspend deletion.

Exit codes:
  0  success
  1  partial failure (some documents or actions failed)
  2  fatal configuration error`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the mapped exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// configPath is the file loadConfig read, or "" for built-in defaults.
var configPath string

// loadConfig resolves the config file, applies CUSTODIAN_* overrides,
// installs the default logger and publishes the config globally. A missing
// default config file means built-in defaults; an explicit path must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", "invalid logging configuration", err)
	}
	slog.SetDefault(logger)
	config.SetConfig(cfg)
	configPath = path

	if path == "" {
		slog.Debug("no config file, using defaults")
	} else {
		slog.Debug("configuration loaded", "path", path)
	}
	return cfg, nil
}

func printer(cmd *cobra.Command) (*cli.Printer, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewPrinter(cmd.OutOrStdout(), format), nil
}
