package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-price-manager/internal/domain/model"
)

const storeColumns = `id, name, shopify_domain, api_token, is_paused, created_at, updated_at, last_sync_at, last_sync_status`

// CreateStore inserts a new store with a normalized domain and idle status.
func (s *Store) CreateStore(ctx context.Context, store model.Store) (model.Store, error) {
	store.Name = strings.TrimSpace(store.Name)
	store.ShopifyDomain = model.NormalizeShopDomain(store.ShopifyDomain)
	store.APIToken = strings.TrimSpace(store.APIToken)
	if store.Name == "" || store.ShopifyDomain == "" || store.APIToken == "" {
		return model.Store{}, errors.New("store name, domain and api token are required")
	}

	now := s.timestamp()
	store.ID = s.newID()
	store.CreatedAt = now
	store.UpdatedAt = now
	store.LastSyncAt = nil
	store.LastSyncStatus = model.SyncStatusIdle

	_, err := s.exec(ctx, `INSERT INTO stores (`+storeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		store.ID, store.Name, store.ShopifyDomain, store.APIToken, store.IsPaused,
		s.timeArg(now), s.timeArg(now), nil, string(store.LastSyncStatus),
	)
	if err != nil {
		return model.Store{}, fmt.Errorf("insert store: %w", err)
	}
	return store, nil
}

func (s *Store) GetStore(ctx context.Context, id string) (model.Store, error) {
	row := s.queryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = ?`, id)
	store, err := scanStore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Store{}, ErrNotFound
	}
	return store, err
}

func (s *Store) ListStores(ctx context.Context) ([]model.Store, error) {
	return s.listStores(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY created_at, id`)
}

// ListActiveStores returns every store that is not paused.
func (s *Store) ListActiveStores(ctx context.Context) ([]model.Store, error) {
	return s.listStores(ctx, `SELECT `+storeColumns+` FROM stores WHERE is_paused = ? ORDER BY created_at, id`, false)
}

func (s *Store) listStores(ctx context.Context, query string, args ...any) ([]model.Store, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	stores := []model.Store{}
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

func (s *Store) SetStorePaused(ctx context.Context, id string, paused bool) error {
	res, err := s.exec(ctx, `UPDATE stores SET is_paused = ?, updated_at = ? WHERE id = ?`,
		paused, s.timeArg(s.timestamp()), id)
	if err != nil {
		return fmt.Errorf("update store: %w", err)
	}
	return requireAffected(res)
}

// UpdateStoreSyncStatus records the outcome of a run. lastSyncAt is only
// written when non-nil so a failed run keeps the previous successful mark.
func (s *Store) UpdateStoreSyncStatus(ctx context.Context, id string, status model.SyncStatus, lastSyncAt *time.Time) error {
	var (
		res sql.Result
		err error
	)
	now := s.timeArg(s.timestamp())
	if lastSyncAt != nil {
		res, err = s.exec(ctx, `UPDATE stores SET last_sync_status = ?, last_sync_at = ?, updated_at = ? WHERE id = ?`,
			string(status), s.timeArg(*lastSyncAt), now, id)
	} else {
		res, err = s.exec(ctx, `UPDATE stores SET last_sync_status = ?, updated_at = ? WHERE id = ?`,
			string(status), now, id)
	}
	if err != nil {
		return fmt.Errorf("update store sync status: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteStore(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (model.Store, error) {
	var (
		store            model.Store
		status           string
		created, updated dbTime
		lastSync         dbTime
	)
	err := row.Scan(&store.ID, &store.Name, &store.ShopifyDomain, &store.APIToken, &store.IsPaused,
		&created, &updated, &lastSync, &status)
	if err != nil {
		return model.Store{}, err
	}
	store.CreatedAt = created.Time
	store.UpdatedAt = updated.Time
	store.LastSyncAt = lastSync.ptr()
	store.LastSyncStatus = model.SyncStatus(status)
	return store, nil
}
