// Package syncer runs the statistics refresh loop: it drains the refresh job
// queue in batches, fetches raw masteries from the games API, aggregates them,
// and persists the result per tracked summoner.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "github.com/flairhub/flairhub/internal/platform/errors"
	"github.com/flairhub/flairhub/internal/queue"
	"github.com/flairhub/flairhub/internal/storage"
	"github.com/flairhub/flairhub/internal/summoner"
)

// Fetcher fetches raw mastery statistics for one puuid.
type Fetcher interface {
	ChampionMasteries(ctx context.Context, puuid string) ([]summoner.Mastery, error)
}

// JobQueue is the consumer side of the refresh queue.
type JobQueue interface {
	ReceiveBatch(ctx context.Context, maxSize int, maxWait time.Duration) ([]storage.RefreshJob, error)
	Ack(ctx context.Context, jobID string) error
}

// Syncer is the single queue consumer. It must not run concurrently with
// itself; the delivery contract is one consumer, batches of up to
// queue.BatchSize, and no per-job retries.
type Syncer struct {
	queue   JobQueue
	fetcher Fetcher
	store   storage.SummonerStore
	logf    func(format string, args ...any)
	now     func() time.Time
	retry   time.Duration
}

// New builds a syncer. logf and now may be nil for log.Printf and wall time.
func New(q JobQueue, fetcher Fetcher, store storage.SummonerStore, logf func(string, ...any), now func() time.Time) (*Syncer, error) {
	if q == nil {
		return nil, fmt.Errorf("job queue is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("summoner store is required")
	}
	if logf == nil {
		logf = log.Printf
	}
	if now == nil {
		now = time.Now
	}
	return &Syncer{queue: q, fetcher: fetcher, store: store, logf: logf, now: now, retry: queue.WaitTimeout}, nil
}

// Run processes batches until ctx is canceled.
func (s *Syncer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if _, err := s.ProcessBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logf("process batch: %v", err)
			// Hold off before the next receive so a persistent
			// failure cannot hot-loop against the store.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.retry):
			}
		}
	}
}

// ProcessBatch receives one batch and walks it through the refresh states:
// dedupe by puuid, sequential fetch and aggregate per puuid, persist the
// successes, then acknowledge every job in the batch. A per-summoner failure
// is logged and its jobs are still acknowledged; a fresh refresh must be
// requested explicitly. It returns the number of jobs received.
func (s *Syncer) ProcessBatch(ctx context.Context) (int, error) {
	batch, err := s.queue.ReceiveBatch(ctx, queue.BatchSize, queue.WaitTimeout)
	if err != nil {
		return len(batch), fmt.Errorf("receive batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	// Several queued jobs for one summoner collapse into a single fetch.
	seen := make(map[string]bool, len(batch))
	var puuids []string
	for _, job := range batch {
		if seen[job.PUUID] {
			continue
		}
		seen[job.PUUID] = true
		puuids = append(puuids, job.PUUID)
	}

	for _, puuid := range puuids {
		if err := s.syncOne(ctx, puuid); err != nil {
			s.logf("sync summoner %s: %v", puuid, err)
		}
	}

	for _, job := range batch {
		if err := s.queue.Ack(ctx, job.ID); err != nil {
			s.logf("ack job %s: %v", job.ID, err)
		}
	}
	return len(batch), nil
}

func (s *Syncer) syncOne(ctx context.Context, puuid string) error {
	masteries, err := s.fetcher.ChampionMasteries(ctx, puuid)
	if err != nil {
		return err
	}
	scores, err := summoner.AggregateScores(masteries)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSyncAggregateFailed, "aggregate scores failed", err)
	}
	err = s.store.UpsertSummonerStats(ctx, puuid, scores, s.now().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		// The summoner was unlinked while its job sat in the queue.
		return fmt.Errorf("no tracked summoner for puuid")
	}
	if err != nil {
		return fmt.Errorf("persist scores: %w", err)
	}
	return nil
}
