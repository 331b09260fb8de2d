// Package queue provides the refresh job queue the site produces into and the
// sync worker consumes from. Jobs survive restarts in the job store; delivery
// is at-least-once with lease-expiry redelivery and no consumer-side retries.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/flairhub/flairhub/internal/platform/id"
	"github.com/flairhub/flairhub/internal/storage"
)

// Delivery contract shared by the producer and the single consumer. The
// worker receives at most BatchSize jobs per batch, waits at most WaitTimeout
// for a partial batch to fill, and never retries a failed job itself;
// redelivery happens only when a lease expires unacknowledged.
const (
	BatchSize   = 10
	WaitTimeout = 5 * time.Second
	Concurrency = 1
	Retries     = 0
)

// LeaseTTL bounds how long a received batch may remain unacknowledged before
// its jobs become deliverable again.
const LeaseTTL = 2 * time.Minute

// pollInterval is how often ReceiveBatch re-checks the store while a partial
// batch waits for its timeout.
const pollInterval = 250 * time.Millisecond

// Queue is the durable refresh job queue.
type Queue struct {
	jobs storage.JobStore
	now  func() time.Time

	poll time.Duration
}

// New builds a queue over the given job store. now may be nil for wall time.
func New(jobs storage.JobStore, now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{jobs: jobs, now: now, poll: pollInterval}
}

// Enqueue adds a refresh job for the given puuid. Every call produces a
// distinct job; duplicates collapse at consumption time, not here.
func (q *Queue) Enqueue(ctx context.Context, puuid string) error {
	if puuid == "" {
		return fmt.Errorf("puuid is required")
	}
	jobID, err := id.NewID()
	if err != nil {
		return fmt.Errorf("generate job id: %w", err)
	}
	job := storage.RefreshJob{
		ID:         jobID,
		PUUID:      puuid,
		EnqueuedAt: q.now().UTC(),
	}
	if err := q.jobs.EnqueueJob(ctx, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// ReceiveBatch blocks until it has maxSize jobs or maxWait has elapsed since
// the call, whichever comes first, and returns the jobs leased so far. An
// empty slice after a full wait is not an error. Received jobs must be
// acknowledged with Ack or they are redelivered once their lease expires.
func (q *Queue) ReceiveBatch(ctx context.Context, maxSize int, maxWait time.Duration) ([]storage.RefreshJob, error) {
	deadline := q.now().Add(maxWait)
	var batch []storage.RefreshJob
	for {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		leased, err := q.jobs.LeaseJobs(ctx, maxSize-len(batch), q.now(), LeaseTTL)
		if err != nil {
			return batch, fmt.Errorf("lease jobs: %w", err)
		}
		batch = append(batch, leased...)
		if len(batch) >= maxSize {
			return batch, nil
		}
		remaining := deadline.Sub(q.now())
		if remaining <= 0 {
			return batch, nil
		}
		wait := q.poll
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Ack acknowledges a delivered job, removing it permanently. Acknowledging an
// already removed job is a no-op.
func (q *Queue) Ack(ctx context.Context, jobID string) error {
	if err := q.jobs.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}
