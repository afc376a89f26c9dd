package main

import (
	"context"
	"database/sql"

	"labdesk/internal/platform/config"
	"labdesk/internal/platform/database"
	"labdesk/internal/platform/logger"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Driver   string
	DSN      string
	LogLevel string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "labctl",
		Short: "Administer a labdesk database",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			if opts.LogLevel == "" {
				opts.LogLevel = config.AppConfig.LogLevel
			}
			_, err := logger.Init(opts.LogLevel)
			return err
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (postgres|sqlite), defaults to DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "data source name, defaults to the configured database")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, defaults to LOG_LEVEL")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	return cmd
}

// openDB opens and migrates the database selected by flags or config.
func (o *RootOptions) openDB(ctx context.Context) (*sql.DB, database.Dialect, error) {
	driver, dsn := o.Driver, o.DSN
	if driver == "" {
		driver = config.AppConfig.DBDriver
	}
	if dsn == "" {
		if driver == config.DriverSQLite {
			dsn = config.AppConfig.SQLitePath
		} else {
			dsn = config.AppConfig.DBConnStr
		}
	}
	db, dialect, err := database.Open(driver, dsn)
	if err != nil {
		return nil, database.Dialect{}, err
	}
	if err := database.Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, database.Dialect{}, err
	}
	return db, dialect, nil
}
