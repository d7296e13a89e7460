package main

import (
	"fmt"

	"github.com/rentease/backend/internal/router"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Cancel pending escrows whose payment failed",
		Long: `Find escrow records still pending whose ledger transaction was marked failed
by the payment processor, and cancel them so they can never be released.

Examples:
  rentease reconcile --dry-run
  rentease reconcile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := router.NewServices(router.Deps{Config: cfg, DB: db, Logger: log})

			dangling, err := svc.Escrow.ListDangling(ctx)
			if err != nil {
				return fmt.Errorf("failed to list dangling escrows: %w", err)
			}
			log.Info().Int("count", len(dangling)).Msg("Found escrows with failed payments")

			if dryRun {
				for _, e := range dangling {
					log.Info().Str("escrow_id", e.ID).Str("tenant_id", e.TenantID).Msg("Would cancel escrow")
				}
				return nil
			}

			notes := "payment failed"
			var failed int
			for _, e := range dangling {
				if _, err := svc.Escrow.Cancel(ctx, e.ID, &notes); err != nil {
					failed++
					log.Error().Err(err).Str("escrow_id", e.ID).Msg("Failed to cancel escrow")
					continue
				}
				log.Info().Str("escrow_id", e.ID).Msg("Escrow cancelled")
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d escrows could not be cancelled", failed, len(dangling))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list escrows without cancelling them")
	return cmd
}
