//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/infra/database"
)

func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	pg, err := tcpostgres.RunContainer(ctx,
		tcpostgres.WithDatabase("prices"),
		tcpostgres.WithUsername("prices"),
		tcpostgres.WithPassword("prices"),
		tcpostgres.WithSQLDriver("pgx"),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, dialect, err := database.Open(ctx, config.DatabaseConfig{Driver: config.DriverPostgres, URL: dsn}, config.MysqlConfig{})
	require.NoError(t, err)
	store, err := New(db, dialect)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))
	return store
}

// TestPostgresSQLiteParity runs the same sequence on both dialects and
// compares what comes back.
func TestPostgresSQLiteParity(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	run := func(t *testing.T, s *Store) ([]string, model.SyncLog, model.Store) {
		ctx := t.Context()
		s.now = steppingClock(base)

		store, err := s.CreateStore(ctx, model.Store{Name: "parity", ShopifyDomain: "parity", APIToken: "shpat_parity"})
		require.NoError(t, err)
		require.NoError(t, s.UpsertSoldProducts(ctx, store.ID, []model.SoldProduct{
			{ProductID: "p1", LastSoldAt: base.AddDate(0, 0, -10)},
			{ProductID: "p2", LastSoldAt: base.AddDate(0, 0, -90)},
		}))
		require.NoError(t, s.UpsertSoldProducts(ctx, store.ID, []model.SoldProduct{
			{ProductID: "p1", LastSoldAt: base.AddDate(0, 0, -30)},
			{ProductID: "p2", LastSoldAt: base.AddDate(0, 0, -1)},
		}))
		_, err = s.PurgeSoldProducts(ctx, store.ID, base.AddDate(0, 0, -60))
		require.NoError(t, err)
		ids, err := s.SoldProductIDsSince(ctx, store.ID, base.AddDate(0, 0, -60))
		require.NoError(t, err)

		log, err := s.CreateSyncLog(ctx, model.SyncLog{StoreID: store.ID, StoreName: store.Name, TriggeredBy: model.TriggerManual})
		require.NoError(t, err)
		finished := log.StartedAt.Add(time.Minute)
		log.FinishedAt = &finished
		log.Status = model.LogStatusSuccess
		log.Stats = model.RunStats{ProductsProcessed: 2, PriceSet: 1, Unchanged: 1}
		require.NoError(t, s.FinishSyncLog(ctx, log))
		gotLog, err := s.GetSyncLog(ctx, log.ID)
		require.NoError(t, err)

		require.NoError(t, s.SetStorePaused(ctx, store.ID, true))
		gotStore, err := s.GetStore(ctx, store.ID)
		require.NoError(t, err)
		return ids, gotLog, gotStore
	}

	pgIDs, pgLog, pgStore := run(t, newPostgresStore(t))
	liteIDs, liteLog, liteStore := run(t, newSQLiteStore(t))

	assert.Equal(t, []string{"p1", "p2"}, pgIDs)
	assert.Equal(t, liteIDs, pgIDs)

	assert.Equal(t, liteLog.Status, pgLog.Status)
	assert.Equal(t, liteLog.Stats, pgLog.Stats)
	assert.True(t, liteLog.StartedAt.Equal(pgLog.StartedAt))
	assert.True(t, liteLog.FinishedAt.Equal(*pgLog.FinishedAt))

	assert.True(t, pgStore.IsPaused)
	assert.Equal(t, liteStore.ShopifyDomain, pgStore.ShopifyDomain)
	assert.True(t, liteStore.CreatedAt.Equal(pgStore.CreatedAt))
}
