package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"uploadqueue/internal/store"

	"github.com/google/uuid"
)

// GetDailyCount returns the upload count for day, or 0 when no row exists yet.
func (s *Store) GetDailyCount(ctx context.Context, day time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT count FROM daily_upload_counts WHERE date = $1",
		store.Day(day),
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daily upload count: %w", err)
	}
	return count, nil
}

// IncrementDailyCount upserts the row for day, adding one to its count.
func (s *Store) IncrementDailyCount(ctx context.Context, tx store.DBTransaction, day time.Time) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		INSERT INTO daily_upload_counts (id, date, count, created_at, updated_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (date) DO UPDATE SET
			count = daily_upload_counts.count + 1,
			updated_at = NOW()
	`, uuid.NewString(), store.Day(day))
	if err != nil {
		return fmt.Errorf("increment daily upload count: %w", err)
	}
	return nil
}
