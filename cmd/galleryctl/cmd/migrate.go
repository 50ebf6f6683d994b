package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trinnux/gallery/internal/db"
)

func MigrateCmd(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back catalog migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.open()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.RunMigrations(database.DB, opts.Driver); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.open()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.MigrateDown(database.DB, opts.Driver); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
			return nil
		},
	})

	return cmd
}
