// Package commands implements the bdb command line.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/baltrad/bdb-go/cli/internal/config"
	"github.com/baltrad/bdb-go/cli/internal/ui"
	"github.com/baltrad/bdb-go/cli/internal/version"
	"github.com/baltrad/bdb-go/internal/debug"
	"github.com/baltrad/bdb-go/internal/storage"
	"github.com/baltrad/bdb-go/runtime/client"
)

// slowQuery is the duration above which statements are logged as slow
const slowQuery = 500 * time.Millisecond

// app carries the configuration shared by every command
type app struct {
	configFile string
	url        string
	storageDir string
	debug      bool
	jsonLog    bool

	cfg *config.Config
}

// NewRootCommand creates the bdb command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "bdb",
		Short: "Radar file archive",
		Long: `bdb archives ODIM_H5 radar files and their attribute metadata in a
relational database and queries them by attribute.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default .bdb.yaml)")
	flags.StringVar(&a.url, "url", "", "database URL, overrides the configuration")
	flags.StringVar(&a.storageDir, "storage", "", "content directory, overrides the configuration")
	flags.BoolVar(&a.debug, "debug", false, "log debug output")
	flags.BoolVar(&a.jsonLog, "json-log", false, "log as JSON")

	cmd.AddCommand(
		newInitCommand(a),
		newImportCommand(a),
		newQueryFileCommand(a),
		newQueryAttrCommand(a),
		newShowCommand(a),
		newRemoveCommand(a),
		newSourcesCommand(a),
		newAddSourceCommand(a),
		newAttributesCommand(a),
		newVersionCommand(),
	)
	return cmd
}

// Execute is the main entry point for the CLI
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	if a.url != "" {
		cfg.DatabaseURL = a.url
	}
	if a.storageDir != "" {
		cfg.StorageType = string(storage.TypeFilesystem)
		cfg.StoragePath = a.storageDir
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = a.debug
	}
	if cmd.Flags().Changed("json-log") {
		cfg.JSONLog = a.jsonLog
	}

	debug.Configure(cmd.ErrOrStderr(), cfg.Debug, cfg.JSONLog)
	a.cfg = cfg
	return nil
}

// open connects to the configured archive
func (a *app) open() (*client.Database, error) {
	store, err := a.cfg.Storage()
	if err != nil {
		return nil, err
	}

	pool := client.DefaultPoolConfig()
	if a.cfg.MaxConns > 0 {
		pool.MaxOpenConns = a.cfg.MaxConns
		pool.MaxIdleConns = a.cfg.MaxConns
	}
	pool.HealthCheckInterval = 0

	db, err := client.Open(a.cfg.DatabaseURL, client.Options{
		Pool:      pool,
		Storage:   store,
		CacheSize: a.cfg.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", a.cfg.DatabaseURL, err)
	}

	db.Executor().Use(client.TimingMiddleware(slowQuery, func(event *client.QueryEvent) {
		debug.Warn("slow query", "sql", event.Statement.Text, "duration", event.Duration)
	}))
	db.Executor().Use(client.ErrorMiddleware(func(event *client.QueryEvent) {
		debug.Warn("statement failed", "sql", event.Statement.Text, "error", event.Error)
	}))
	return db, nil
}

// withDatabase opens the archive, checks its schema and runs fn
func (a *app) withDatabase(ctx context.Context, fn func(db *client.Database) error) error {
	db, err := a.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CheckSchemaVersion(ctx); err != nil {
		return fmt.Errorf("archive not initialized, run bdb init: %w", err)
	}
	return fn(db)
}
