// Package cli implements the tally command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tally/internal/config"
	"github.com/mrz1836/tally/internal/output"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

var (
	// Global flags
	configPath   string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	cfgErr    error
	logger    *config.Logger
	formatter *output.Formatter
	messenger *output.Messenger
	cmdCtx    *CommandContext
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Multi-chain EVM wallet balance aggregator",
	Long: `Tally reads native and ERC-20 token balances for a set of wallets across
EVM chains and reports them as a table, JSON, CSV or PDF.

Example:
  tally query --config config.json
  tally serve --addr :8080
  tally tokens --chain ethereum --verify`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var buildInfo BuildInfo

// SetBuildInfo records version details injected at link time.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

func formatVersion(info BuildInfo) string {
	return fmt.Sprintf("%s (commit: %s, built: %s)",
		orDefault(info.Version, "dev"),
		orDefault(info.Commit, "unknown"),
		orDefault(info.Date, "unknown"),
	)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		formatErr(err)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return tallyerr.ExitCode(err)
}

// formatErr prints err to stderr in the active output format.
func formatErr(err error) {
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(os.Stderr, err, format)
}

// initGlobals loads configuration and sets up the logger, formatter and
// messenger. A missing or unreadable config file is not fatal here: commands
// that need one check configError.
func initGlobals(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath
	}

	fallback := ""
	if !cmd.Flags().Changed("config") {
		fallback = config.ExampleConfigPath
	}

	loaded, usedPath, err := config.LoadWithFallback(path, fallback)
	cfg, cfgErr = loaded, err
	if err != nil {
		// Use defaults; commands that need the file report cfgErr
		cfg = config.Defaults()
	}

	// Apply environment variable overrides
	config.ApplyEnvironment(cfg)

	// Override with command-line flags
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.Format = outputFormat
	}

	// Initialize logger
	logLevel := config.ParseLogLevel(cfg.GetLoggingLevel())
	newLogger := config.NewLogger
	if cfg.Logging.Format == "json" {
		newLogger = config.NewStructuredLogger
	}
	logger, err = newLogger(logLevel, cfg.GetLoggingFile())
	if err != nil {
		// Use null logger if we can't create the file
		logger = config.NullLogger()
	}

	// Initialize formatter and messenger
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	explicitFormat := output.ParseFormat(cfg.GetOutputFormat())
	formatter = output.NewFormatter(output.DetectFormat(stdout, explicitFormat), stdout)
	messenger = output.NewMessenger(stderr, plainMessages(stderr, cfg.Output.Color))

	if cfgErr == nil && usedPath != path {
		messenger.Warnf("%s not found, using %s", path, usedPath)
	}
	for _, w := range cfg.Warnings {
		messenger.Warn(w)
	}

	cmdCtx = NewCommandContext(cfg, logger, formatter, messenger)
	return nil
}

// plainMessages reports whether status lines should omit their glyphs.
func plainMessages(w io.Writer, color string) bool {
	switch color {
	case "never":
		return true
	case "always":
		return false
	}
	return !output.IsTerminal(w)
}

// configError returns the error recorded when no config file could be found.
func configError() error {
	return cfgErr
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

// Context returns the dependencies shared by commands.
func Context() *CommandContext {
	return cmdCtx
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "query configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Version = formatVersion(buildInfo)
}
