// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trading-journal/internal/calendar"
	"trading-journal/internal/config"
	"trading-journal/internal/logging"
	"trading-journal/internal/memo"
	"trading-journal/internal/report"
	"trading-journal/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-14"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Clock  calendar.Clock

	store   store.Repository
	builder *report.Builder
}

// NewApp creates an App. The configuration is loaded when a command runs, once the
// global flags are known.
func NewApp(logger zerolog.Logger) *App {
	return &App{
		Config: config.Default(),
		Logger: logger,
		Clock:  calendar.SystemClock,
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal analytics",
		Long: `Trading journal keeps your trade log and check-ins in a local database and
turns them into behavioral feedback: activity streaks, performance breakdowns,
the equity curve, your setup playbook, a consistency score and pre-trade nudges.

Use 'journal import <file>' to load trades from CSV, YAML or JSON.
Use 'journal dashboard' to see every section at once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trading-journal)")
	rootCmd.PersistentFlags().String("db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().String("user", "", "journal user (overrides config)")
	rootCmd.PersistentFlags().String("today", "", "reference day as YYYY-MM-DD (default: local today)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)

	return rootCmd
}

// setup loads configuration and applies the global flags.
func (app *App) setup(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Storage.DBPath = db
	}
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		cfg.Storage.User = user
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Console = true
	}
	app.Config = cfg
	app.Logger = logging.WithUser(logging.NewLoggerWithConfig(cfg.Logging), cfg.Storage.User)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, app.Logger))

	app.Logger.Debug().
		Str("config", cfg.Path).
		Str("db", cfg.Storage.DBPath).
		Str("command", cmd.CommandPath()).
		Msg("Configuration loaded")
	return nil
}

// Store opens the journal database on first use.
func (app *App) Store() (store.Repository, error) {
	if app.store != nil {
		return app.store, nil
	}
	s, err := store.NewSQLiteStore(app.Config.Storage.DBPath, store.WithLogger(app.Logger))
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	app.store = s
	app.Logger.Debug().Str("path", app.Config.Storage.DBPath).Msg("SQLite store initialized")
	return s, nil
}

// Builder returns the dashboard builder for the loaded configuration.
func (app *App) Builder() (*report.Builder, error) {
	if app.builder != nil {
		return app.builder, nil
	}
	settings, err := report.SettingsFromConfig(app.Config)
	if err != nil {
		return nil, err
	}
	var opts []report.Option
	if app.Config.Engine.CacheSize > 0 {
		opts = append(opts, report.WithCache(memo.New[*report.Dashboard](app.Config.Engine.CacheSize)))
	}
	b, err := report.NewBuilder(settings, app.Logger, opts...)
	if err != nil {
		return nil, err
	}
	app.builder = b
	return b, nil
}

// Today returns the reference day: the --today flag when set, else the clock's day.
func (app *App) Today(cmd *cobra.Command) (calendar.Date, error) {
	if s, _ := cmd.Flags().GetString("today"); s != "" {
		d, err := calendar.Parse(s)
		if err != nil {
			return calendar.Date{}, fmt.Errorf("--today: %w", err)
		}
		return d, nil
	}
	return app.Clock.Today(), nil
}

// UserID returns the active journal user.
func (app *App) UserID() string {
	return app.Config.Storage.User
}

// Close releases the store.
func (app *App) Close() error {
	if app.store == nil {
		return nil
	}
	err := app.store.Close()
	app.store = nil
	return err
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Trading Journal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the journal configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective analyzer settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			settings, err := report.SettingsFromConfig(app.Config)
			if err != nil {
				return err
			}
			view := configView{
				Path:     app.Config.Path,
				Database: app.Config.Storage.DBPath,
				User:     app.UserID(),
				Settings: settings,
			}
			if output.IsJSON() {
				return output.JSON(view)
			}
			return output.YAML(view)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := app.Config.Path
			if path == "" {
				path = filepath.Join(config.DefaultConfigDir(), config.FileName+".toml")
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if !logging.ValidLevel(app.Config.Logging.Level) {
				err := fmt.Errorf("unknown log level %q", app.Config.Logging.Level)
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

type configView struct {
	Path     string          `json:"path"`
	Database string          `json:"database"`
	User     string          `json:"user"`
	Settings report.Settings `json:"settings"`
}

// flagString returns a trimmed string flag.
func flagString(cmd *cobra.Command, name string) string {
	s, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(s)
}
