package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"shopify-price-manager/internal/domain/model"
)

var logStatuses = []model.LogStatus{model.LogStatusRunning, model.LogStatusSuccess, model.LogStatusFailed}

func newLogsCommand(root *rootOptions) *cobra.Command {
	var (
		filter model.LogFilter
		status string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show sync history, newest first",
		Example: `  price-sync logs --store 3f1c... --limit 10
  price-sync logs --status failed --format json`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !slices.Contains(logStatuses, model.LogStatus(status)) {
				return fmt.Errorf("invalid status %q: must be one of %v", status, logStatuses)
			}
			filter.Status = model.LogStatus(status)
			return nil
		},
		RunE: withApplication(func(cmd *cobra.Command, _ []string, app *application) error {
			logs, err := app.storage.ListSyncLogs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printLogs(cmd.OutOrStdout(), root.format, logs)
		}),
	}
	cmd.Flags().StringVar(&filter.StoreID, "store", "", "only logs of this store id")
	cmd.Flags().StringVar(&status, "status", "", "only logs with this status (running|success|failed)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum number of logs")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "number of logs to skip")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing database tables",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(cmd *cobra.Command, _ []string, app *application) error {
			// openApplication already applied the schema
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", app.cfg.Database.Driver)
			return nil
		}),
	}
}
