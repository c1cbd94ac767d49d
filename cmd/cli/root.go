package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/shimmering/internal/config"
	"github.com/himanishpuri/shimmering/pkg/logger"
	"github.com/himanishpuri/shimmering/pkg/shimmering"
	"github.com/himanishpuri/shimmering/pkg/shimmering/report"
)

// app carries the global flags and the service built from them.
type app struct {
	configPath    string
	dataDir       string
	dbPath        string
	quarantineDir string
	format        string
	logLevel      string
	transformer   string
	threshold     int

	svc     shimmering.Service
	printer *report.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "shimmering",
		Short: "Arcaea score tracker that reads scores off screenshots",
		Long: `Shimmering reads Arcaea song-select and result screenshots with OCR,
matches them against a chart catalog and keeps each player's scores,
play ratings and potential in a local SQLite database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.svc == nil {
				return nil
			}
			return a.svc.Close()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to the TOML config file (default: $XDG_CONFIG_HOME/shimmering/config.toml)")
	f.StringVar(&a.dataDir, "data-dir", "", "Directory for the database and quarantined images (env: SHIMMERING_DATA_DIR)")
	f.StringVar(&a.dbPath, "db", "", "Path to the SQLite database file (env: SHIMMERING_DB_PATH)")
	f.StringVar(&a.quarantineDir, "quarantine-dir", "", "Where unidentified screenshots are copied (env: SHIMMERING_QUARANTINE_DIR)")
	f.StringVarP(&a.format, "format", "o", "table", "Output format: table, yaml or json")
	f.StringVar(&a.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or FATAL (env: LOG_LEVEL)")
	f.StringVar(&a.transformer, "transformer", "", "Image preprocessing backend: magick or imaging")
	f.IntVar(&a.threshold, "threshold", 0, "Title distance at which a screenshot is quarantined")

	cmd.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newSetCmd(a),
		newCalcCmd(a),
		newStatsCmd(a),
	)

	return cmd
}

// setup merges config file, environment and flags, then opens the service.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if flags.Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("quarantine-dir") {
		cfg.QuarantineDir = a.quarantineDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("transformer") {
		cfg.OCR.Transformer = a.transformer
	}
	if flags.Changed("threshold") {
		cfg.Threshold = a.threshold
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	format, err := report.ParseFormat(a.format)
	if err != nil {
		return err
	}
	a.printer = report.NewPrinter(cmd.OutOrStdout(), format)

	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	a.progress(cmd, "🔧 Initializing service...")
	a.svc, err = shimmering.NewService(opts...)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	logger.Debugf("Service ready (data dir %s)", cfg.DataDir)
	return nil
}

// progress prints a status line to stderr so stdout stays machine readable.
func (a *app) progress(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
