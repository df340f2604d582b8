// Package cmd provides the CLI commands for ticsmerge using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/internal/app"
	"github.com/Zerofisher/ticsmerge/internal/config"
	"github.com/Zerofisher/ticsmerge/internal/logging"
	"github.com/Zerofisher/ticsmerge/pkg/blob"
	"github.com/Zerofisher/ticsmerge/ui"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ticsmerge",
	Short: "Merge product property JSON with inspection CSV exports",
	Long: `ticsmerge reconciles product property documents (JSON) with
inspection event exports (CSV). Records are keyed by tm, gln, gtin and tics,
merged without duplicates and persisted as one SQLite snapshot.

Examples:
  ticsmerge ingest json product.json           # Merge one property document
  ticsmerge ingest csv events.csv              # Merge inspection events
  ticsmerge drop a.json b.csv                  # Ingest files by type
  ticsmerge list --matches --search acme       # Compare groups
  ticsmerge show ACME 4000001000005 04012345678901 --tab differences
  ticsmerge export -o export.json              # Export all groups`,
	Version:      Version,
	SilenceUsage: true,
}

// Persistent flags
var (
	cfgFile   string
	dataDir   string
	backend   string
	logLevel  string
	logFormat string
	noColor   bool
	ephemeral bool
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Define command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: "input", Title: "Input Commands:"},
		&cobra.Group{ID: "analysis", Title: "Analysis Commands:"},
		&cobra.Group{ID: "info", Title: "Information Commands:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	pf.StringVar(&dataDir, "data-dir", "", "Directory of the file blob store")
	pf.StringVar(&backend, "backend", "", "Blob backend: file, redis, memory")
	pf.BoolVar(&ephemeral, "ephemeral", false, "Keep data in memory only (same as --backend memory)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console, json")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// loadConfig applies the persistent flags over the file and environment
// configuration.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if ephemeral {
		if flags.Changed("backend") && backend != blob.BackendMemory {
			return cfg, fmt.Errorf("--ephemeral conflicts with --backend %s", backend)
		}
		cfg.Backend = blob.BackendMemory
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openSession loads the configuration, builds the logger and opens the
// session. The caller closes the session and syncs the logger.
func openSession(cmd *cobra.Command) (*app.Session, *logging.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With("cmd", cmd.Name())

	s, err := app.Open(cmd.Context(), cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, fmt.Errorf("open session: %w", err)
	}
	return s, log, nil
}

// withSession runs fn with an open session and closes it afterwards.
func withSession(cmd *cobra.Command, fn func(*app.Session) error) error {
	s, log, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn("close session", "error", cerr)
		}
	}()
	return fn(s)
}

func renderer() *ui.Renderer {
	return ui.NewRenderer(!noColor, 0)
}

// printMessage writes the session's last message: notices to stdout,
// errors to stderr.
func printMessage(cmd *cobra.Command, s *app.Session) {
	msg := s.Message()
	if msg.Text == "" {
		return
	}
	if msg.Kind == app.Error {
		fmt.Fprint(cmd.ErrOrStderr(), renderer().Status(msg.Text, true))
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), renderer().Status(msg.Text, false))
}
