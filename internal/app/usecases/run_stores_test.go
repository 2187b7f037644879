package usecases

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/domain/model"
)

func threeStores() (model.Store, model.Store, model.Store) {
	return model.Store{ID: "a", Name: "A"}, model.Store{ID: "b", Name: "B"}, model.Store{ID: "c", Name: "C"}
}

func TestRunner_RunAllStores_IsolatesFailures(t *testing.T) {
	a, b, c := threeStores()
	storage := newMemoryStorage(a, b, c)
	gateways := map[string]*fakeGateway{
		"a": catalogGateway(),
		"b": {ordersErr: errors.New("invalid api key")},
		"c": catalogGateway(),
	}
	syncer, _ := newTestSyncer(storage, gatewaysByStore(gateways))
	runner := NewRunner(storage, syncer, config.SyncConfig{MaxConcurrent: 2}, nil)

	results, err := runner.RunAllStores(t.Context(), model.TriggerScheduler)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].Store.ID, results[1].Store.ID, results[2].Store.ID})
	assert.True(t, results[0].Success())
	assert.False(t, results[1].Success())
	assert.True(t, results[2].Success())
	assert.Contains(t, results[1].Err, "invalid api key")
	require.NotNil(t, results[1].Log)
	assert.Equal(t, model.LogStatusFailed, results[1].Log.Status)

	for _, res := range []SyncResult{results[0], results[2]} {
		require.NotNil(t, res.Log)
		assert.Equal(t, model.RunStats{ProductsProcessed: 4, PriceSet: 1, PriceCleared: 1, Unchanged: 3}, res.Log.Stats)
		assert.Equal(t, model.SyncStatusSuccess, storage.store(res.Store.ID).LastSyncStatus)
	}
	assert.Equal(t, model.SyncStatusFailed, storage.store("b").LastSyncStatus)
}

func TestRunner_RunAllStores_SkipsPaused(t *testing.T) {
	a, b, _ := threeStores()
	b.IsPaused = true
	storage := newMemoryStorage(a, b)
	syncer, _ := newTestSyncer(storage, gatewaysByStore(map[string]*fakeGateway{"a": {}, "b": {}}))

	results, err := NewRunner(storage, syncer, config.SyncConfig{}, nil).RunAllStores(t.Context(), model.TriggerScheduler)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Store.ID)
}

func TestRunner_RunAllStores_Empty(t *testing.T) {
	storage := newMemoryStorage()
	syncer, _ := newTestSyncer(storage, gatewaysByStore(nil))

	results, err := NewRunner(storage, syncer, config.SyncConfig{}, nil).RunAllStores(t.Context(), model.TriggerScheduler)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunner_RunAllStores_BoundsConcurrency(t *testing.T) {
	const limit = 2
	var (
		stores  []model.Store
		started atomic.Int32
	)
	gateways := map[string]*fakeGateway{}
	release := make(chan struct{})
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		stores = append(stores, model.Store{ID: id, Name: id})
		gateways[id] = &fakeGateway{block: release, onFetch: func() { started.Add(1) }}
	}
	storage := newMemoryStorage(stores...)
	syncer, _ := newTestSyncer(storage, gatewaysByStore(gateways))
	runner := NewRunner(storage, syncer, config.SyncConfig{MaxConcurrent: limit}, nil)

	done := make(chan []SyncResult, 1)
	go func() {
		results, _ := runner.RunAllStores(context.Background(), model.TriggerScheduler)
		done <- results
	}()

	require.Eventually(t, func() bool { return started.Load() == limit }, time.Second, time.Millisecond)
	// the remaining stores queue while both slots are held
	assert.Never(t, func() bool { return started.Load() > limit }, 50*time.Millisecond, 5*time.Millisecond)
	close(release)

	results := <-done
	require.Len(t, results, len(stores))
	for _, res := range results {
		assert.True(t, res.Success(), res.Err)
	}
	assert.EqualValues(t, len(stores), started.Load())
}

func TestRunner_RunStore(t *testing.T) {
	a, b, _ := threeStores()
	b.IsPaused = true
	storage := newMemoryStorage(a, b)
	syncer, _ := newTestSyncer(storage, gatewaysByStore(map[string]*fakeGateway{"a": {}}))
	runner := NewRunner(storage, syncer, config.SyncConfig{}, nil)

	res, err := runner.RunStore(t.Context(), "a", model.TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, model.TriggerManual, res.Log.TriggeredBy)

	_, err = runner.RunStore(t.Context(), "missing", model.TriggerManual)
	assert.ErrorIs(t, err, ErrStoreNotFound)

	_, err = runner.RunStore(t.Context(), "b", model.TriggerManual)
	assert.ErrorIs(t, err, ErrStorePaused)
}

type panickingSyncer struct{}

func (panickingSyncer) Sync(context.Context, model.Store, model.TriggerType) (model.SyncLog, error) {
	panic("nil map")
}

type plainErrorSyncer struct{}

func (plainErrorSyncer) Sync(context.Context, model.Store, model.TriggerType) (model.SyncLog, error) {
	return model.SyncLog{}, errors.New("database locked")
}

func TestRunner_UnexpectedErrors(t *testing.T) {
	a, _, _ := threeStores()
	storage := newMemoryStorage(a)

	res, err := NewRunner(storage, panickingSyncer{}, config.SyncConfig{}, nil).RunStore(t.Context(), "a", model.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "unexpected error: nil map", res.Err)
	assert.Nil(t, res.Log)

	res, err = NewRunner(storage, plainErrorSyncer{}, config.SyncConfig{}, nil).RunStore(t.Context(), "a", model.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "unexpected error: database locked", res.Err)
}
