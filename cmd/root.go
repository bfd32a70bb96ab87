package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/xdrscope-cli/internal/config"
)

const (
	logFormatJSON = "json"
	logFormatText = "text"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Logger handed to library code; set up in PersistentPreRunE.
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "xdrscope",
	Short: "xdrscope: exploratory analysis of telecom xDR session records",
	Long: `xdrscope loads xDR session exports (CSV, TSV or XLSX), cleans them, aggregates
per-user behaviour, segments users into duration deciles, runs correlation, PCA
and k-means, stores tables in Postgres or SQLite and renders charts into a run
directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.xdrscope/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logFormatText, "log format: text|json")
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %s", level)
	}
	var out io.Writer
	switch strings.ToLower(format) {
	case logFormatJSON:
		out = w
	case logFormatText:
		out = zerolog.ConsoleWriter{Out: w}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid logging format: %s", format)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// currentConfig returns the loaded configuration, loading it on first use.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
