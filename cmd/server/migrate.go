package main

import (
	"github.com/rentease/backend/internal/database"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db)
			for _, name := range applied {
				log.Info().Str("migration", name).Msg("Applied migration")
			}
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				log.Info().Msg("Schema is up to date")
			}
			return nil
		},
	}
}
