package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/verbale-app/verbale/internal/config"
	"github.com/verbale-app/verbale/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "verbale",
		Short:   "Meeting transcription and minutes backend",
		Long:    "Web backend that transcribes meeting recordings, drafts minutes, and exports them to OneDrive.",
		Version: version,
		// Silence Cobra's default error/usage printing — main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newCheckConfigCmd())

	return cmd
}

// newMigrateCmd applies pending schema migrations and exits. serve runs
// migrations on startup too; this exists for deploys that migrate as a
// separate step before rolling the service.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(flagConfigPath)
			if err != nil {
				return err
			}

			st, err := store.New(cfg.Store.Path, buildLogger(cfg))
			if err != nil {
				return err
			}

			cmd.Printf("migrations applied (%s)\n", cfg.Store.Path)

			return st.Close()
		},
	}
}

// newCheckConfigCmd validates the effective configuration and exits. Useful
// before a deploy: a typo in the TOML file or a missing secret fails here
// instead of at service start.
func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(flagConfigPath)
			if err != nil {
				return err
			}

			cmd.Printf("configuration OK (listen %s, store %s)\n", cfg.Server.ListenAddr, cfg.Store.Path)

			return nil
		},
	}
}

// buildLogger creates an slog.Logger from the logging config. The "auto"
// format picks text on a terminal and JSON otherwise, so interactive runs
// stay readable while service logs stay machine-parseable. --verbose
// overrides the configured level because CLI flags always win.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Logging.Format
	if format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
