package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shopify-price-manager/internal/domain/model"
)

const (
	syncLogColumns = `id, store_id, store_name, started_at, finished_at, status, triggered_by,
	products_processed, price_set, price_cleared, unchanged, products_failed, error_message, error_details`

	defaultLogLimit = 50
)

// CreateSyncLog opens a running log entry. ID and StartedAt are filled in
// when empty.
func (s *Store) CreateSyncLog(ctx context.Context, log model.SyncLog) (model.SyncLog, error) {
	if log.ID == "" {
		log.ID = s.newID()
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = s.timestamp()
	}
	if log.Status == "" {
		log.Status = model.LogStatusRunning
	}
	if log.TriggeredBy == "" {
		log.TriggeredBy = model.TriggerScheduler
	}

	_, err := s.exec(ctx, `INSERT INTO sync_logs (`+syncLogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.StoreID, log.StoreName, s.timeArg(log.StartedAt), s.nullTimeArg(log.FinishedAt),
		string(log.Status), string(log.TriggeredBy),
		log.Stats.ProductsProcessed, log.Stats.PriceSet, log.Stats.PriceCleared, log.Stats.Unchanged, log.Stats.ProductsFailed,
		nullString(log.ErrorMessage), nullString(log.ErrorDetails),
	)
	if err != nil {
		return model.SyncLog{}, fmt.Errorf("insert sync log: %w", err)
	}
	return log, nil
}

// FinishSyncLog writes the final status, statistics and error of a run.
func (s *Store) FinishSyncLog(ctx context.Context, log model.SyncLog) error {
	res, err := s.exec(ctx, `UPDATE sync_logs SET finished_at = ?, status = ?,
		products_processed = ?, price_set = ?, price_cleared = ?, unchanged = ?, products_failed = ?,
		error_message = ?, error_details = ?
		WHERE id = ?`,
		s.nullTimeArg(log.FinishedAt), string(log.Status),
		log.Stats.ProductsProcessed, log.Stats.PriceSet, log.Stats.PriceCleared, log.Stats.Unchanged, log.Stats.ProductsFailed,
		nullString(log.ErrorMessage), nullString(log.ErrorDetails),
		log.ID,
	)
	if err != nil {
		return fmt.Errorf("update sync log: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) GetSyncLog(ctx context.Context, id string) (model.SyncLog, error) {
	row := s.queryRow(ctx, `SELECT `+syncLogColumns+` FROM sync_logs WHERE id = ?`, id)
	log, err := scanSyncLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SyncLog{}, ErrNotFound
	}
	return log, err
}

// ListSyncLogs returns logs newest first.
func (s *Store) ListSyncLogs(ctx context.Context, filter model.LogFilter) ([]model.SyncLog, error) {
	var (
		where []string
		args  []any
	)
	if filter.StoreID != "" {
		where = append(where, "store_id = ?")
		args = append(args, filter.StoreID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + syncLogColumns + ` FROM sync_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at DESC, id LIMIT ? OFFSET ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	logs := []model.SyncLog{}
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func scanSyncLog(row rowScanner) (model.SyncLog, error) {
	var (
		log               model.SyncLog
		started, finished dbTime
		status, trigger   string
		errMsg, errDetail sql.NullString
	)
	err := row.Scan(&log.ID, &log.StoreID, &log.StoreName, &started, &finished, &status, &trigger,
		&log.Stats.ProductsProcessed, &log.Stats.PriceSet, &log.Stats.PriceCleared, &log.Stats.Unchanged, &log.Stats.ProductsFailed,
		&errMsg, &errDetail)
	if err != nil {
		return model.SyncLog{}, err
	}
	log.StartedAt = started.Time
	log.FinishedAt = finished.ptr()
	log.Status = model.LogStatus(status)
	log.TriggeredBy = model.TriggerType(trigger)
	log.ErrorMessage = errMsg.String
	log.ErrorDetails = errDetail.String
	return log, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
