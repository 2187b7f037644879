package sqlstore

import (
	"context"
	"fmt"
	"time"

	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/domain/model"
)

// upsertSoldProductSQL keeps the later of the stored and incoming sale time.
var upsertSoldProductSQL = map[string]string{
	config.DriverSQLite: `INSERT INTO sold_products (id, store_id, product_id, last_sold_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(store_id, product_id) DO UPDATE SET last_sold_at = MAX(last_sold_at, excluded.last_sold_at)`,
	config.DriverPostgres: `INSERT INTO sold_products (id, store_id, product_id, last_sold_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (store_id, product_id) DO UPDATE SET last_sold_at = GREATEST(sold_products.last_sold_at, EXCLUDED.last_sold_at)`,
	config.DriverMySQL: `INSERT INTO sold_products (id, store_id, product_id, last_sold_at) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE last_sold_at = GREATEST(last_sold_at, VALUES(last_sold_at))`,
}

// PurgeSoldProducts deletes records last sold strictly before the cutoff.
func (s *Store) PurgeSoldProducts(ctx context.Context, storeID string, before time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM sold_products WHERE store_id = ? AND last_sold_at < ?`, storeID, s.timeArg(before))
	if err != nil {
		return 0, fmt.Errorf("purge sold products: %w", err)
	}
	return res.RowsAffected()
}

// UpsertSoldProducts records sales in a single transaction.
func (s *Store) UpsertSoldProducts(ctx context.Context, storeID string, products []model.SoldProduct) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertSoldProductSQL[s.dialect]))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, s.newID(), storeID, p.ProductID, s.timeArg(p.LastSoldAt)); err != nil {
			return fmt.Errorf("upsert sold product %s: %w", p.ProductID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SoldProductIDsSince lists products of a store sold at or after since.
func (s *Store) SoldProductIDsSince(ctx context.Context, storeID string, since time.Time) ([]string, error) {
	rows, err := s.query(ctx, `SELECT product_id FROM sold_products WHERE store_id = ? AND last_sold_at >= ? ORDER BY product_id`,
		storeID, s.timeArg(since))
	if err != nil {
		return nil, fmt.Errorf("list sold products: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
