package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/qacoord/internal/config"
	"github.com/ShayCichocki/qacoord/internal/logging"
)

// Exit codes returned by the CLI.
const (
	exitFailure   = 1
	exitPlanError = 2
)

var (
	repoRoot string
	logLevel string
	verbose  bool
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	return &exitError{code: code, err: err}
}

var rootCmd = &cobra.Command{
	Use:     "qacoord",
	Version: Version(),
	Short:   "Multi-tool QA execution coordinator",
	Long: `qacoord runs formatters, linters, security scanners, test runners and
build and data validators over a repository, grouped by quality dimension,
and merges their findings into one verdict.

Tools are selected by dimension and scope from the tools schema in the
configuration, or listed explicitly in a plan file.

Configuration is read from ~/.config/qacoord/config.yaml with project
overrides in .qacoord.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				printStatus("✗", ee.err.Error(), color.FgRed)
			}
			os.Exit(ee.code)
		}
		printStatus("✗", err.Error(), color.FgRed)
		os.Exit(exitFailure)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoRoot, "repo", "C", ".", "Repository root to validate")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(versionCmd)
}

// printStatus prints a colored status symbol followed by a message.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(os.Stderr, "%s %s\n", c.Sprint(symbol), message)
}

// env bundles what every command needs: configuration, a logger and the
// absolute repository root.
type env struct {
	cfg      *config.Config
	log      logging.Logger
	root     string
	closeLog func() error
}

func (e *env) Close() {
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}

// setup loads configuration and builds the logger. logOut overrides where
// console log lines go; nil means stderr.
func setup(logOut io.Writer) (*env, error) {
	root, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve repo root: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	opts := logging.Options{Level: level, Format: cfg.Logging.Format, Output: logOut}
	if cfg.Logging.File {
		opts.FilePath = logging.LogPathForRepo(root)
	}
	log, closeLog, err := logging.New(opts)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, root: root, closeLog: closeLog}, nil
}
