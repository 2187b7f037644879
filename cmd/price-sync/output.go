package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"shopify-price-manager/internal/app/usecases"
	"shopify-price-manager/internal/domain/model"
)

type storeView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ShopifyDomain  string     `json:"shopify_domain"`
	APIToken       string     `json:"api_token"`
	IsPaused       bool       `json:"is_paused"`
	LastSyncAt     *time.Time `json:"last_sync_at"`
	LastSyncStatus string     `json:"last_sync_status"`
}

type logView struct {
	ID                string     `json:"id"`
	StoreID           string     `json:"store_id"`
	StoreName         string     `json:"store_name"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
	Status            string     `json:"status"`
	TriggeredBy       string     `json:"triggered_by"`
	ProductsProcessed int        `json:"products_processed"`
	PriceSet          int        `json:"price_set"`
	PriceCleared      int        `json:"price_cleared"`
	Unchanged         int        `json:"unchanged"`
	ProductsFailed    int        `json:"products_failed"`
	ErrorMessage      string     `json:"error_message,omitempty"`
}

type syncResultView struct {
	StoreID   string   `json:"store_id"`
	StoreName string   `json:"store_name"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	Log       *logView `json:"log,omitempty"`
}

// maskToken keeps the last four characters visible.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

func newStoreView(s model.Store) storeView {
	return storeView{
		ID:             s.ID,
		Name:           s.Name,
		ShopifyDomain:  s.ShopifyDomain,
		APIToken:       maskToken(s.APIToken),
		IsPaused:       s.IsPaused,
		LastSyncAt:     s.LastSyncAt,
		LastSyncStatus: string(s.LastSyncStatus),
	}
}

func newLogView(l model.SyncLog) logView {
	return logView{
		ID:                l.ID,
		StoreID:           l.StoreID,
		StoreName:         l.StoreName,
		StartedAt:         l.StartedAt,
		FinishedAt:        l.FinishedAt,
		Status:            string(l.Status),
		TriggeredBy:       string(l.TriggeredBy),
		ProductsProcessed: l.Stats.ProductsProcessed,
		PriceSet:          l.Stats.PriceSet,
		PriceCleared:      l.Stats.PriceCleared,
		Unchanged:         l.Stats.Unchanged,
		ProductsFailed:    l.Stats.ProductsFailed,
		ErrorMessage:      l.ErrorMessage,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func printStores(w io.Writer, format string, stores []model.Store) error {
	views := make([]storeView, 0, len(stores))
	for _, s := range stores {
		views = append(views, newStoreView(s))
	}
	if format == "json" {
		return writeJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDOMAIN\tPAUSED\tLAST SYNC\tSTATUS")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n", v.ID, v.Name, v.ShopifyDomain, v.IsPaused, formatTime(v.LastSyncAt), v.LastSyncStatus)
	}
	return tw.Flush()
}

func printLogs(w io.Writer, format string, logs []model.SyncLog) error {
	views := make([]logView, 0, len(logs))
	for _, l := range logs {
		views = append(views, newLogView(l))
	}
	if format == "json" {
		return writeJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTORE\tSTATUS\tTRIGGER\tPROCESSED\tSET\tCLEARED\tUNCHANGED\tFAILED\tERROR")
	for _, v := range views {
		started := v.StartedAt
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			formatTime(&started), v.StoreName, v.Status, v.TriggeredBy,
			v.ProductsProcessed, v.PriceSet, v.PriceCleared, v.Unchanged, v.ProductsFailed, v.ErrorMessage)
	}
	return tw.Flush()
}

func printSyncResults(w io.Writer, format string, results []usecases.SyncResult) error {
	views := make([]syncResultView, 0, len(results))
	for _, r := range results {
		view := syncResultView{StoreID: r.Store.ID, StoreName: r.Store.Name, Success: r.Success(), Error: r.Err}
		if r.Log != nil {
			lv := newLogView(*r.Log)
			view.Log = &lv
		}
		views = append(views, view)
	}
	if format == "json" {
		return writeJSON(w, views)
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "no active stores to sync")
		return err
	}
	for _, v := range views {
		switch {
		case !v.Success:
			fmt.Fprintf(w, "FAIL %s: %s\n", v.StoreName, v.Error)
			continue
		case v.Log == nil:
			fmt.Fprintf(w, "OK   %s\n", v.StoreName)
			continue
		}
		fmt.Fprintf(w, "OK   %s: %d products, %d set, %d cleared, %d unchanged, %d failed\n",
			v.StoreName, v.Log.ProductsProcessed, v.Log.PriceSet, v.Log.PriceCleared, v.Log.Unchanged, v.Log.ProductsFailed)
	}
	return nil
}
