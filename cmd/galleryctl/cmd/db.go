package cmd

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trinnux/gallery/internal/db"
)

// DBOptions holds the persistent connection flags shared by all commands.
type DBOptions struct {
	Driver     string
	Connection string
}

func BindDBFlags(root *cobra.Command) *DBOptions {
	opts := &DBOptions{}
	root.PersistentFlags().StringVar(&opts.Driver, "driver", envOr("DB_DRIVER", "sqlite"), "database driver: sqlite, pgx or mysql")
	root.PersistentFlags().StringVar(&opts.Connection, "dsn", envOr("DB_CONNECTION", "./data/gallery.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), "database connection string")
	return opts
}

func (o *DBOptions) open() (*sqlx.DB, error) {
	database, err := db.Init(o.Driver, o.Connection)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", o.Driver, err)
	}
	return database, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
