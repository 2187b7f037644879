package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shopify-price-manager/internal/adapters/sqlstore"
	"shopify-price-manager/internal/domain/model"
)

func newStoresCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Manage the stores that are synced",
	}
	cmd.AddCommand(newStoresAddCommand(root))
	cmd.AddCommand(newStoresListCommand(root))
	cmd.AddCommand(newStoresPauseCommand("pause", "Exclude a store from scheduled syncs", true))
	cmd.AddCommand(newStoresPauseCommand("resume", "Include a paused store in scheduled syncs again", false))
	cmd.AddCommand(newStoresRemoveCommand())
	return cmd
}

func newStoresAddCommand(root *rootOptions) *cobra.Command {
	var input model.Store
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a store",
		Example: `  price-sync stores add --name "Main shop" --domain main-shop --token shpat_xxx
  price-sync stores add --name Outlet --domain https://outlet.myshopify.com --token shpat_yyy --paused`,
		Args: cobra.NoArgs,
		RunE: withApplication(func(cmd *cobra.Command, _ []string, app *application) error {
			store, err := app.storage.CreateStore(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printStores(cmd.OutOrStdout(), root.format, []model.Store{store})
		}),
	}
	cmd.Flags().StringVar(&input.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&input.ShopifyDomain, "domain", "", "shop handle or myshopify domain (required)")
	cmd.Flags().StringVar(&input.APIToken, "token", "", "Admin API access token (required)")
	cmd.Flags().BoolVar(&input.IsPaused, "paused", false, "create the store paused")
	for _, name := range []string{"name", "domain", "token"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newStoresListCommand(root *rootOptions) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stores",
		Args:  cobra.NoArgs,
		RunE: withApplication(func(cmd *cobra.Command, _ []string, app *application) error {
			var (
				stores []model.Store
				err    error
			)
			if activeOnly {
				stores, err = app.storage.ListActiveStores(cmd.Context())
			} else {
				stores, err = app.storage.ListStores(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printStores(cmd.OutOrStdout(), root.format, stores)
		}),
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only stores that are not paused")
	return cmd
}

func newStoresPauseCommand(use, short string, paused bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <store-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApplication(func(cmd *cobra.Command, args []string, app *application) error {
			if err := app.storage.SetStorePaused(cmd.Context(), args[0], paused); err != nil {
				return storeError(args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store %s %sd\n", args[0], use)
			return nil
		}),
	}
}

func newStoresRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <store-id>",
		Short: "Delete a store with its sync logs and sales history",
		Args:  cobra.ExactArgs(1),
		RunE: withApplication(func(cmd *cobra.Command, args []string, app *application) error {
			if err := app.storage.DeleteStore(cmd.Context(), args[0]); err != nil {
				return storeError(args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store %s removed\n", args[0])
			return nil
		}),
	}
}

func storeError(id string, err error) error {
	if errors.Is(err, sqlstore.ErrNotFound) {
		return &exitError{code: exitCommandError, err: fmt.Errorf("store not found: %s", id)}
	}
	return err
}
