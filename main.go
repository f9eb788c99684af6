package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github/itish2003/resultdocs/config"
	"github/itish2003/resultdocs/report"
)

// app carries the state shared by all subcommands once the root command has
// loaded configuration and built the logger.
type app struct {
	// Global flags
	verbose   bool
	separator string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "resultdocs",
		Short: "Parse, validate, render and index Result Document reports",
		Long: `resultdocs works with the markdown processing reports written for
recorded media files ("# <name> - 处理结果"), alone or joined into bundles by a
RELATED_DOC_SEP separator line.

The serve command watches a reports directory, indexes every document's
summary for semantic search and exposes the codec over HTTP.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.separator, "separator", "", "document separator (default: detected from input, then REPORT_SEPARATOR)")

	rootCmd.AddCommand(
		a.serveCmd(),
		a.parseCmd(),
		a.splitCmd(),
		a.joinCmd(),
		a.validateCmd(),
		a.renderCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	zapConfig := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	a.logger, err = zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// inputSeparator picks the separator for reading stream: the flag, then the
// token found in stream, then the configured one.
func (a *app) inputSeparator(stream string) string {
	return report.SeparatorFor(stream, a.separator, a.cfg.Separator)
}

// outputSeparator is the separator written between rendered documents.
func (a *app) outputSeparator() string {
	if a.separator != "" {
		return a.separator
	}
	return a.cfg.Separator
}

func (a *app) renderOptions() report.RenderOptions {
	return report.RenderOptions{Attribution: a.cfg.Attribution}
}

// readInput reads a file, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// withTrailingNewline keeps separators on lines of their own when joining.
func withTrailingNewline(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	return s + "\n"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
