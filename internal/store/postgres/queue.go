package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"uploadqueue/internal/store"

	"github.com/lib/pq"
)

// ClaimPending selects up to limit PENDING jobs ordered by creation time, oldest first.
// Rows are not locked; at most one processor is assumed to run at a time.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]store.QueueJob, error) {
	if limit <= 0 {
		return nil, store.ErrInvalidLimit
	}

	query := `
		SELECT uq.id, uq.file_name, uq.blob_url, uq.title, uq.year, uq.description,
			uq.show_type, uq.act_ids, uq.performer_ids, uq.uploader_id, uq.status,
			uq.created_at, uq.updated_at, u.first_name, u.last_name
		FROM upload_queue uq
		JOIN users u ON u.id = uq.uploader_id
		WHERE uq.status = $1
		ORDER BY uq.created_at ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, store.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending query failed: %w", err)
	}
	defer rows.Close()

	var jobs []store.QueueJob
	for rows.Next() {
		var job store.QueueJob
		var description, firstName, lastName sql.NullString
		if err := rows.Scan(
			&job.ID, &job.FileName, &job.BlobURL, &job.Title, &job.Year, &description,
			&job.ShowType, pq.Array(&job.ActIDs), pq.Array(&job.PerformerIDs), &job.UploaderID, &job.Status,
			&job.CreatedAt, &job.UpdatedAt, &firstName, &lastName,
		); err != nil {
			return nil, fmt.Errorf("claim pending scan failed: %w", err)
		}
		if description.Valid {
			job.Description = &description.String
		}
		job.UploaderFirstName = firstName.String
		job.UploaderLastName = lastName.String
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim pending rows error: %w", err)
	}

	return jobs, nil
}

// ResolveActNames looks up act names in one query.
func (s *Store) ResolveActNames(ctx context.Context, actIDs []string) (map[string]string, error) {
	return s.lookupNames(ctx, `SELECT id, name FROM acts WHERE id = ANY($1)`, actIDs)
}

// ResolveUserNames looks up "first last" display names in one query.
func (s *Store) ResolveUserNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	return s.lookupNames(ctx,
		`SELECT id, TRIM(CONCAT(first_name, ' ', last_name)) FROM users WHERE id = ANY($1)`,
		userIDs)
}

func (s *Store) lookupNames(ctx context.Context, query string, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("name lookup failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("name lookup scan failed: %w", err)
		}
		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("name lookup rows error: %w", err)
	}

	return names, nil
}

// MarkUploaded stores the result URL and processed timestamp.
func (s *Store) MarkUploaded(ctx context.Context, tx store.DBTransaction, jobID string, resultURL string) error {
	executor := s.getExecutor(tx)

	res, err := executor.ExecContext(ctx, `
		UPDATE upload_queue
		SET status = $1, youtube_url = $2, processed_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, store.JobStatusUploaded, resultURL, jobID, store.JobStatusPending)
	if err != nil {
		return fmt.Errorf("mark job %s uploaded: %w", jobID, err)
	}

	return expectOneRow(res, jobID)
}

// MarkFailed stores the failure reason.
func (s *Store) MarkFailed(ctx context.Context, tx store.DBTransaction, jobID string, errMsg string) error {
	executor := s.getExecutor(tx)

	res, err := executor.ExecContext(ctx, `
		UPDATE upload_queue
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, store.JobStatusFailed, errMsg, jobID, store.JobStatusPending)
	if err != nil {
		return fmt.Errorf("mark job %s failed: %w", jobID, err)
	}

	return expectOneRow(res, jobID)
}

// CountByStatus returns the number of queue jobs per status.
func (s *Store) CountByStatus(ctx context.Context) ([]store.StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM upload_queue
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []store.StatusCount
	for rows.Next() {
		var c store.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

func expectOneRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for job %s: %w", jobID, err)
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", jobID, store.ErrNotPending)
	}
	return nil
}
