package usecases

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/domain/pricing"
	"shopify-price-manager/internal/logging"
)

const tracerName = "shopify-price-manager/app/usecases"

type SyncState string

const (
	StateStarted          SyncState = "STARTED"
	StateFetchingOrders   SyncState = "FETCHING_ORDERS"
	StateFetchingProducts SyncState = "FETCHING_PRODUCTS"
	StateEvaluating       SyncState = "EVALUATING"
	StateApplying         SyncState = "APPLYING"
	StateSucceeded        SyncState = "SUCCEEDED"
	StateFailed           SyncState = "FAILED"
)

// SyncError is the single failure type a store run reports. State is the
// step the run was in when it failed.
type SyncError struct {
	StoreID string
	State   SyncState
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for store %s during %s: %v", e.StoreID, e.State, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// SyncStorage is the persistence a store run needs.
type SyncStorage interface {
	CreateSyncLog(ctx context.Context, log model.SyncLog) (model.SyncLog, error)
	FinishSyncLog(ctx context.Context, log model.SyncLog) error
	UpdateStoreSyncStatus(ctx context.Context, id string, status model.SyncStatus, lastSyncAt *time.Time) error
	PurgeSoldProducts(ctx context.Context, storeID string, before time.Time) (int64, error)
	UpsertSoldProducts(ctx context.Context, storeID string, products []model.SoldProduct) error
	SoldProductIDsSince(ctx context.Context, storeID string, since time.Time) ([]string, error)
}

// Gateway is the remote side of one store run. It is closed when the run ends.
type Gateway interface {
	FetchOrdersSince(ctx context.Context, since time.Time) ([]model.ParsedOrder, error)
	FetchActiveProducts(ctx context.Context) ([]model.ParsedProduct, error)
	UpdateVariantPrices(ctx context.Context, updates []model.ProductUpdate) (model.BatchResult, error)
	Close() error
}

type GatewayFactory func(store model.Store) Gateway

type StoreSyncService interface {
	Sync(ctx context.Context, store model.Store, trigger model.TriggerType) (model.SyncLog, error)
}

type StoreSyncer struct {
	storage  SyncStorage
	gateways GatewayFactory
	logger   logging.LoggerService
	now      func() time.Time
}

func NewStoreSyncer(storage SyncStorage, gateways GatewayFactory, logger logging.LoggerService) *StoreSyncer {
	return &StoreSyncer{
		storage:  storage,
		gateways: gateways,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// syncRun is the mutable state of one run.
type syncRun struct {
	store     model.Store
	startedAt time.Time
	state     SyncState
	stats     model.RunStats
	logger    logging.LoggerService
}

func (r *syncRun) enter(state SyncState) {
	r.state = state
	r.logger.Log("sync state", zap.String("state", string(state)))
}

// Sync runs the full compare-at pipeline for one store. Every outcome is
// persisted to a sync log; failures are returned as *SyncError together with
// the failed log.
func (s *StoreSyncer) Sync(ctx context.Context, store model.Store, trigger model.TriggerType) (model.SyncLog, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "StoreSyncer.Sync", trace.WithAttributes(
		attribute.String("store.id", store.ID),
		attribute.String("store.domain", store.ShopifyDomain),
		attribute.String("sync.trigger", string(trigger)),
	))
	defer span.End()

	run := &syncRun{
		store:     store,
		startedAt: s.now().UTC(),
		state:     StateStarted,
		logger:    s.logger.With(zap.String("store_id", store.ID), zap.String("store", store.Name)),
	}

	log, err := s.storage.CreateSyncLog(ctx, model.SyncLog{
		StoreID:     store.ID,
		StoreName:   store.Name,
		StartedAt:   run.startedAt,
		Status:      model.LogStatusRunning,
		TriggeredBy: trigger,
	})
	if err != nil {
		err = &SyncError{StoreID: store.ID, State: StateStarted, Err: fmt.Errorf("create sync log: %w", err)}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.SyncLog{}, err
	}
	run.logger.Log("store sync started", zap.String("log_id", log.ID), zap.String("trigger", string(trigger)))

	if err := s.runProtected(ctx, run); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.fail(ctx, run, log, err)
	}

	finished := s.now().UTC()
	log.FinishedAt = &finished
	log.Status = model.LogStatusSuccess
	log.Stats = run.stats
	if err := s.storage.FinishSyncLog(ctx, log); err != nil {
		return s.fail(ctx, run, log, fmt.Errorf("finish sync log: %w", err))
	}
	if err := s.storage.UpdateStoreSyncStatus(ctx, store.ID, model.SyncStatusSuccess, &run.startedAt); err != nil {
		return s.fail(ctx, run, log, fmt.Errorf("update store status: %w", err))
	}
	run.enter(StateSucceeded)

	span.SetAttributes(
		attribute.Int("sync.price_set", run.stats.PriceSet),
		attribute.Int("sync.price_cleared", run.stats.PriceCleared),
	)
	run.logger.LogSuccess("store sync completed",
		zap.Int("products_processed", run.stats.ProductsProcessed),
		zap.Int("price_set", run.stats.PriceSet),
		zap.Int("price_cleared", run.stats.PriceCleared),
		zap.Int("unchanged", run.stats.Unchanged),
		zap.Int("products_failed", run.stats.ProductsFailed),
		zap.Duration("duration", finished.Sub(run.startedAt)),
	)
	return log, nil
}

// runProtected owns the gateway for the length of the run and turns panics
// into errors.
func (s *StoreSyncer) runProtected(ctx context.Context, run *syncRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	gw := s.gateways(run.store)
	defer func() {
		if cerr := gw.Close(); cerr != nil {
			run.logger.LogWarning("close shopify gateway", zap.Error(cerr))
		}
	}()
	return s.execute(ctx, run, gw)
}

func (s *StoreSyncer) execute(ctx context.Context, run *syncRun, gw Gateway) error {
	storeID := run.store.ID
	if err := s.storage.UpdateStoreSyncStatus(ctx, storeID, model.SyncStatusRunning, nil); err != nil {
		return fmt.Errorf("mark store running: %w", err)
	}

	cutoff := pricing.SalesCutoff(run.startedAt)
	purged, err := s.storage.PurgeSoldProducts(ctx, storeID, cutoff)
	if err != nil {
		return fmt.Errorf("purge sold products: %w", err)
	}
	if purged > 0 {
		run.logger.Log("purged old sold products", zap.Int64("count", purged))
	}

	run.enter(StateFetchingOrders)
	since := cutoff
	if run.store.LastSyncAt != nil {
		since = *run.store.LastSyncAt
		run.logger.Log("incremental sync", zap.Time("orders_since", since))
	} else {
		run.logger.Log("first sync", zap.Time("orders_since", since))
	}
	orders, err := gw.FetchOrdersSince(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	sales := latestSales(orders)
	run.logger.Log("orders fetched", zap.Int("orders", len(orders)), zap.Int("products", len(sales)))
	if err := s.storage.UpsertSoldProducts(ctx, storeID, sales); err != nil {
		return fmt.Errorf("upsert sold products: %w", err)
	}
	soldIDs, err := s.storage.SoldProductIDsSince(ctx, storeID, cutoff)
	if err != nil {
		return fmt.Errorf("load sold products: %w", err)
	}
	sold := pricing.NewSoldSet(soldIDs...)
	run.logger.Log("products sold in lookback window", zap.Int("count", len(sold)), zap.Int("days", pricing.SalesLookbackDays))

	run.enter(StateFetchingProducts)
	products, err := gw.FetchActiveProducts(ctx)
	if err != nil {
		return fmt.Errorf("fetch products: %w", err)
	}
	run.stats.ProductsProcessed = len(products)

	run.enter(StateEvaluating)
	updates := evaluateProducts(products, sold, run.startedAt, &run.stats)

	run.enter(StateApplying)
	if len(updates) == 0 {
		run.logger.Log("no variant updates needed")
		return nil
	}
	result, err := gw.UpdateVariantPrices(ctx, updates)
	if err != nil {
		return fmt.Errorf("update variant prices: %w", err)
	}
	run.stats.ProductsFailed = result.ErrorCount
	if result.ErrorCount > 0 {
		run.logger.LogWarning("some product updates failed",
			zap.Int("failed", result.ErrorCount), zap.Int("succeeded", result.SuccessCount))
	}
	return nil
}

// fail persists the failure even when ctx is already canceled.
func (s *StoreSyncer) fail(ctx context.Context, run *syncRun, log model.SyncLog, err error) (model.SyncLog, error) {
	failedAt := run.state
	ctx = context.WithoutCancel(ctx)

	finished := s.now().UTC()
	log.FinishedAt = &finished
	log.Status = model.LogStatusFailed
	log.Stats = run.stats
	log.ErrorMessage = err.Error()
	log.ErrorDetails = failureDetails(failedAt, err)

	if werr := s.storage.FinishSyncLog(ctx, log); werr != nil {
		run.logger.LogError("record failed sync log", werr)
	}
	if werr := s.storage.UpdateStoreSyncStatus(ctx, run.store.ID, model.SyncStatusFailed, nil); werr != nil {
		run.logger.LogError("mark store failed", werr)
	}
	run.enter(StateFailed)
	run.logger.LogError("store sync failed", err, zap.String("failed_state", string(failedAt)))

	return log, &SyncError{StoreID: run.store.ID, State: failedAt, Err: err}
}

// failureDetails lists the wrapped error chain, or the stack for a panic.
func failureDetails(state SyncState, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", state)
	var pe *panicError
	if errors.As(err, &pe) {
		b.WriteString(pe.Error())
		b.WriteByte('\n')
		b.Write(pe.stack)
		return b.String()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%T: %v\n", e, e)
	}
	return b.String()
}

// latestSales keeps the newest order date per product.
func latestSales(orders []model.ParsedOrder) []model.SoldProduct {
	latest := make(map[string]time.Time)
	for _, order := range orders {
		for _, id := range order.ProductIDs {
			if seen, ok := latest[id]; !ok || order.CreatedAt.After(seen) {
				latest[id] = order.CreatedAt
			}
		}
	}
	sales := make([]model.SoldProduct, 0, len(latest))
	for id, at := range latest {
		sales = append(sales, model.SoldProduct{ProductID: id, LastSoldAt: at})
	}
	slices.SortFunc(sales, func(a, b model.SoldProduct) int { return strings.Compare(a.ProductID, b.ProductID) })
	return sales
}

// evaluateProducts tallies every variant into stats and returns the pending
// changes grouped by product, in product order.
func evaluateProducts(products []model.ParsedProduct, sold pricing.SoldSet, now time.Time, stats *model.RunStats) []model.ProductUpdate {
	var updates []model.ProductUpdate
	for _, product := range products {
		var changes []model.VariantPriceUpdate
		for _, variant := range product.Variants {
			decision := pricing.EvaluateVariant(product, variant, sold, now)
			if !decision.NeedsUpdate {
				stats.Unchanged++
				continue
			}
			if decision.IsSetting() {
				stats.PriceSet++
			} else {
				stats.PriceCleared++
			}
			changes = append(changes, model.VariantPriceUpdate{VariantID: decision.VariantID, CompareAtPrice: decision.NewCompareAt})
		}
		if len(changes) > 0 {
			updates = append(updates, model.ProductUpdate{ProductID: product.ProductID, Variants: changes})
		}
	}
	return updates
}
