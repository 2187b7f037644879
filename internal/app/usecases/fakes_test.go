package usecases

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"shopify-price-manager/internal/domain/model"
)

// memoryStorage is an in-memory SyncStorage and StoreSource.
type memoryStorage struct {
	mu       sync.Mutex
	stores   map[string]model.Store
	order    []string
	logs     map[string]model.SyncLog
	sold     map[string]map[string]time.Time
	statuses map[string][]model.SyncStatus
	nextID   int

	failFinish bool
}

func newMemoryStorage(stores ...model.Store) *memoryStorage {
	m := &memoryStorage{
		stores:   map[string]model.Store{},
		logs:     map[string]model.SyncLog{},
		sold:     map[string]map[string]time.Time{},
		statuses: map[string][]model.SyncStatus{},
	}
	for _, s := range stores {
		m.stores[s.ID] = s
		m.order = append(m.order, s.ID)
	}
	return m
}

func (m *memoryStorage) GetStore(_ context.Context, id string) (model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return model.Store{}, model.ErrNotFound
	}
	return s, nil
}

func (m *memoryStorage) ListActiveStores(context.Context) ([]model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Store
	for _, id := range m.order {
		if s := m.stores[id]; !s.IsPaused {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStorage) CreateSyncLog(_ context.Context, log model.SyncLog) (model.SyncLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	log.ID = "log-" + strconv.Itoa(m.nextID)
	m.logs[log.ID] = log
	return log, nil
}

func (m *memoryStorage) FinishSyncLog(_ context.Context, log model.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFinish && log.Status == model.LogStatusSuccess {
		return errors.New("disk full")
	}
	if _, ok := m.logs[log.ID]; !ok {
		return model.ErrNotFound
	}
	m.logs[log.ID] = log
	return nil
}

func (m *memoryStorage) UpdateStoreSyncStatus(_ context.Context, id string, status model.SyncStatus, lastSyncAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return model.ErrNotFound
	}
	s.LastSyncStatus = status
	if lastSyncAt != nil {
		at := *lastSyncAt
		s.LastSyncAt = &at
	}
	m.stores[id] = s
	m.statuses[id] = append(m.statuses[id], status)
	return nil
}

func (m *memoryStorage) PurgeSoldProducts(_ context.Context, storeID string, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, at := range m.sold[storeID] {
		if at.Before(before) {
			delete(m.sold[storeID], id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStorage) UpsertSoldProducts(_ context.Context, storeID string, products []model.SoldProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sold[storeID] == nil {
		m.sold[storeID] = map[string]time.Time{}
	}
	for _, p := range products {
		if cur, ok := m.sold[storeID][p.ProductID]; !ok || p.LastSoldAt.After(cur) {
			m.sold[storeID][p.ProductID] = p.LastSoldAt
		}
	}
	return nil
}

func (m *memoryStorage) SoldProductIDsSince(_ context.Context, storeID string, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, at := range m.sold[storeID] {
		if !at.Before(since) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryStorage) store(id string) model.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores[id]
}

func (m *memoryStorage) log(id string) model.SyncLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logs[id]
}

// fakeGateway records what a run asked of the remote side.
type fakeGateway struct {
	orders   []model.ParsedOrder
	products []model.ParsedProduct
	result   *model.BatchResult

	ordersErr   error
	productsErr error
	panicOn     string
	block       chan struct{}
	onFetch     func()

	mu      sync.Mutex
	since   time.Time
	applied []model.ProductUpdate
	closed  bool
	fetched bool
}

func (g *fakeGateway) FetchOrdersSince(_ context.Context, since time.Time) ([]model.ParsedOrder, error) {
	if g.onFetch != nil {
		g.onFetch()
	}
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	g.since = since
	g.mu.Unlock()
	if g.panicOn == "orders" {
		panic("boom")
	}
	return g.orders, g.ordersErr
}

func (g *fakeGateway) FetchActiveProducts(context.Context) ([]model.ParsedProduct, error) {
	g.mu.Lock()
	g.fetched = true
	g.mu.Unlock()
	return g.products, g.productsErr
}

func (g *fakeGateway) UpdateVariantPrices(_ context.Context, updates []model.ProductUpdate) (model.BatchResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.applied = append(g.applied, updates...)
	if g.result != nil {
		return *g.result, nil
	}
	return model.BatchResult{SuccessCount: len(updates), Errors: map[string]string{}}, nil
}

func (g *fakeGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func gatewaysByStore(gateways map[string]*fakeGateway) GatewayFactory {
	return func(store model.Store) Gateway {
		return gateways[store.ID]
	}
}

func ptr(s string) *string { return &s }
