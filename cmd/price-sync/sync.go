package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shopify-price-manager/internal/app/usecases"
	"shopify-price-manager/internal/domain/model"
)

type syncOptions struct {
	*rootOptions
	storeID string
}

func newSyncCommand(root *rootOptions) *cobra.Command {
	opts := &syncOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a price sync for all active stores or a single store",
		Long: `Run the compare-at price sync.

Without --store every non-paused store is synced concurrently. The command
exits with status 1 when any store fails.

Example:
  price-sync sync
  price-sync sync --store 3f1c...`,
		Args: cobra.NoArgs,
		RunE: withApplication(func(cmd *cobra.Command, _ []string, app *application) error {
			runner := app.runner()

			var results []usecases.SyncResult
			if opts.storeID != "" {
				res, err := runner.RunStore(cmd.Context(), opts.storeID, model.TriggerManual)
				if errors.Is(err, usecases.ErrStoreNotFound) || errors.Is(err, usecases.ErrStorePaused) {
					return &exitError{code: exitCommandError, err: err}
				}
				if err != nil {
					return err
				}
				results = []usecases.SyncResult{res}
			} else {
				var err error
				results, err = runner.RunAllStores(cmd.Context(), model.TriggerScheduler)
				if err != nil {
					return err
				}
			}

			if err := printSyncResults(cmd.OutOrStdout(), opts.format, results); err != nil {
				return err
			}
			failed := 0
			for _, res := range results {
				if !res.Success() {
					failed++
				}
			}
			if failed > 0 {
				return &exitError{code: exitFailure, err: fmt.Errorf("%d of %d stores failed", failed, len(results))}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.storeID, "store", "", "sync only the store with this id")
	return cmd
}
