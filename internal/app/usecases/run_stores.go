package usecases

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/logging"
)

const defaultMaxConcurrent = 5

var (
	ErrStoreNotFound = errors.New("store not found")
	ErrStorePaused   = errors.New("store is paused")
)

type StoreSource interface {
	GetStore(ctx context.Context, id string) (model.Store, error)
	ListActiveStores(ctx context.Context) ([]model.Store, error)
}

// SyncResult is the outcome of one store run. Log is set whenever a sync log
// was written, including for failed runs.
type SyncResult struct {
	Store model.Store
	Log   *model.SyncLog
	Err   string
}

func (r SyncResult) Success() bool {
	return r.Err == ""
}

type Runner struct {
	stores        StoreSource
	syncer        StoreSyncService
	maxConcurrent int
	logger        logging.LoggerService
}

func NewRunner(stores StoreSource, syncer StoreSyncService, cfg config.SyncConfig, logger logging.LoggerService) *Runner {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}
	return &Runner{
		stores:        stores,
		syncer:        syncer,
		maxConcurrent: limit,
		logger:        logging.OrNop(logger),
	}
}

// RunAllStores syncs every active store with at most maxConcurrent runs in
// flight. Results are in store order; one store failing never affects the
// others. The error is only set when the store list cannot be loaded.
func (r *Runner) RunAllStores(ctx context.Context, trigger model.TriggerType) ([]SyncResult, error) {
	stores, err := r.stores.ListActiveStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active stores: %w", err)
	}
	if len(stores) == 0 {
		r.logger.Log("no active stores to sync")
		return []SyncResult{}, nil
	}
	r.logger.Log("starting sync for stores", zap.Int("stores", len(stores)), zap.Int("max_concurrent", r.maxConcurrent))

	results := make([]SyncResult, len(stores))
	var g errgroup.Group
	g.SetLimit(r.maxConcurrent)
	for i, store := range stores {
		g.Go(func() error {
			results[i] = r.runOne(ctx, store, trigger)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if !res.Success() {
			failed++
		}
	}
	r.logger.Log("sync finished for all stores", zap.Int("successful", len(results)-failed), zap.Int("failed", failed))
	return results, nil
}

// RunStore syncs one store by id. Missing and paused stores are rejected
// before any run starts.
func (r *Runner) RunStore(ctx context.Context, storeID string, trigger model.TriggerType) (SyncResult, error) {
	store, err := r.stores.GetStore(ctx, storeID)
	if errors.Is(err, model.ErrNotFound) {
		return SyncResult{}, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
	}
	if err != nil {
		return SyncResult{}, fmt.Errorf("load store: %w", err)
	}
	if store.IsPaused {
		return SyncResult{Store: store}, fmt.Errorf("%w: %s", ErrStorePaused, store.Name)
	}
	return r.runOne(ctx, store, trigger), nil
}

func (r *Runner) runOne(ctx context.Context, store model.Store, trigger model.TriggerType) (result SyncResult) {
	result.Store = store
	defer func() {
		if p := recover(); p != nil {
			r.logger.LogError("unexpected panic syncing store", fmt.Errorf("panic: %v", p), zap.String("store_id", store.ID))
			result.Err = fmt.Sprintf("unexpected error: %v", p)
		}
	}()

	log, err := r.syncer.Sync(ctx, store, trigger)
	if log.ID != "" {
		result.Log = &log
	}
	if err != nil {
		var syncErr *SyncError
		if !errors.As(err, &syncErr) {
			r.logger.LogError("unexpected error syncing store", err, zap.String("store_id", store.ID))
			result.Err = "unexpected error: " + err.Error()
			return result
		}
		result.Err = err.Error()
	}
	return result
}
