package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"kiosk-architect/internal/database"

	"github.com/spf13/cobra"
)

func (a *app) newMigrateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the export manifest database schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "Migrations directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			return database.RunMigrations(db.DB(), dir, a.logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			statuses, err := database.GetMigrationStatus(cmd.Context(), db.DB(), dir)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tFILE")
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, state, s.Path)
			}
			return tw.Flush()
		},
	})

	return cmd
}

func (a *app) openDatabase() (database.Service, error) {
	if !a.cfg.Database.Enabled() {
		return nil, errors.New("database is not configured, set DB_DATABASE")
	}
	return database.New(a.cfg.Database)
}
