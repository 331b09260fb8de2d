package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/storage"
)

// EnqueueJob appends a refresh job to the queue.
func (s *Store) EnqueueJob(ctx context.Context, job storage.RefreshJob) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	job.ID = strings.TrimSpace(job.ID)
	job.PUUID = strings.TrimSpace(job.PUUID)
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if job.PUUID == "" {
		return fmt.Errorf("job puuid is required")
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO refresh_job (id, puuid, enqueued_at, attempt_count, lease_expires_at)
VALUES (?, ?, ?, 0, NULL)
`,
		job.ID, job.PUUID, toMillis(job.EnqueuedAt),
	)
	if err != nil {
		return fmt.Errorf("enqueue refresh job: %w", err)
	}
	return nil
}

// LeaseJobs claims up to limit deliverable jobs until now+leaseTTL. Jobs are
// deliverable when never leased or when a prior lease has expired, which is
// how unacknowledged work from a crashed consumer is redelivered. Each lease
// increments the delivery attempt count.
func (s *Store) LeaseJobs(ctx context.Context, limit int, now time.Time, leaseTTL time.Duration) ([]storage.RefreshJob, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if leaseTTL <= 0 {
		return nil, fmt.Errorf("lease ttl must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now()
	}
	nowMillis := toMillis(now)
	leaseExpiry := toMillis(now.Add(leaseTTL))

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start lease transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
SELECT id
FROM refresh_job
WHERE lease_expires_at IS NULL OR lease_expires_at <= ?
ORDER BY enqueued_at ASC, id ASC
LIMIT ?
`, nowMillis, limit)
	if err != nil {
		return nil, fmt.Errorf("select lease candidates: %w", err)
	}
	candidateIDs := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan lease candidate: %w", scanErr)
		}
		candidateIDs = append(candidateIDs, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate lease candidates: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close lease candidates: %w", err)
	}
	if len(candidateIDs) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit empty lease transaction: %w", err)
		}
		return []storage.RefreshJob{}, nil
	}

	leased := make([]storage.RefreshJob, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		result, updateErr := tx.ExecContext(ctx, `
UPDATE refresh_job
SET attempt_count = attempt_count + 1, lease_expires_at = ?
WHERE id = ? AND (lease_expires_at IS NULL OR lease_expires_at <= ?)
`, leaseExpiry, id, nowMillis)
		if updateErr != nil {
			return nil, fmt.Errorf("lease refresh job %s: %w", id, updateErr)
		}
		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return nil, fmt.Errorf("lease rows affected for %s: %w", id, affectedErr)
		}
		if affected == 0 {
			continue
		}

		row := tx.QueryRowContext(ctx, `
SELECT id, puuid, enqueued_at, attempt_count, lease_expires_at
FROM refresh_job
WHERE id = ?
`, id)
		job, scanErr := scanJob(row.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan leased refresh job %s: %w", id, scanErr)
		}
		leased = append(leased, job)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease transaction: %w", err)
	}
	return leased, nil
}

// DeleteJob acknowledges a job, removing it from the queue. Deleting an
// already-removed job is not an error; acknowledgment must stay idempotent
// under redelivery.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM refresh_job WHERE id = ?`, jobID); err != nil {
		return fmt.Errorf("delete refresh job: %w", err)
	}
	return nil
}

// CountJobs reports how many jobs remain queued or in flight.
func (s *Store) CountJobs(ctx context.Context) (int, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM refresh_job`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count refresh jobs: %w", err)
	}
	return count, nil
}

func scanJob(scan func(dest ...any) error) (storage.RefreshJob, error) {
	var job storage.RefreshJob
	var enqueuedAt int64
	var leaseExpiresAt sql.NullInt64
	err := scan(&job.ID, &job.PUUID, &enqueuedAt, &job.AttemptCount, &leaseExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RefreshJob{}, storage.ErrNotFound
		}
		return storage.RefreshJob{}, fmt.Errorf("scan refresh job: %w", err)
	}
	job.EnqueuedAt = fromMillis(enqueuedAt)
	if leaseExpiresAt.Valid {
		value := fromMillis(leaseExpiresAt.Int64)
		job.LeaseExpiresAt = &value
	}
	return job, nil
}
