// Package storage defines persistence contracts for accounts, summoners, and
// the refresh job queue. All mutation in the system flows through these
// interfaces; writes are single-statement upserts keyed by unique columns so
// concurrent callers serialize to one winner at the storage layer.
package storage

import (
	"context"
	"time"

	"github.com/flairhub/flairhub/internal/account"
	"github.com/flairhub/flairhub/internal/platform/errors"
	"github.com/flairhub/flairhub/internal/summoner"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrAccountConflict indicates a write collided with a different account
// holding a unique field, such as the reddit user name. Same-reddit-id
// writes never produce this; those converge on the existing row.
var ErrAccountConflict = errors.New(errors.CodeConflictingAccount, "account conflicts with an existing record")

// RefreshJob is one queued statistics refresh request. Delivery is
// at-least-once: a leased job whose lease expires before acknowledgment is
// redelivered with an incremented attempt count.
type RefreshJob struct {
	ID             string
	PUUID          string
	EnqueuedAt     time.Time
	AttemptCount   int
	LeaseExpiresAt *time.Time
}

// AccountStore persists account records.
type AccountStore interface {
	// UpsertAccount inserts the account or, when its reddit id already
	// exists, refreshes the mutable profile fields of the existing record.
	// The returned account is the canonical stored row, which keeps the
	// original local id under concurrent linkage.
	UpsertAccount(ctx context.Context, a account.Account) (account.Account, error)
	FindAccountByRedditID(ctx context.Context, redditID int64) (account.Account, error)
	GetAccount(ctx context.Context, accountID string) (account.Account, error)
}

// SummonerStore persists tracked summoner records and their aggregates.
type SummonerStore interface {
	// UpsertSummoner inserts the summoner or, when its puuid already exists,
	// rebinds the existing record to the given account and refreshes its
	// riot id fields. The returned summoner is the canonical stored row.
	UpsertSummoner(ctx context.Context, s summoner.Summoner) (summoner.Summoner, error)
	FindSummonerByPUUID(ctx context.Context, puuid string) (summoner.Summoner, error)
	GetSummoner(ctx context.Context, summonerID string) (summoner.Summoner, error)
	ListAccountSummoners(ctx context.Context, accountID string) ([]summoner.Summoner, error)
	// UpsertSummonerStats writes the aggregated statistics blob and last-sync
	// timestamp for the summoner keyed by puuid.
	UpsertSummonerStats(ctx context.Context, puuid string, scores []summoner.ChampScore, syncedAt time.Time) error
	// ListStaleSummoners returns up to limit summoners ordered by oldest
	// last-sync first, for the bulk refresh path.
	ListStaleSummoners(ctx context.Context, limit int) ([]summoner.Summoner, error)
}

// JobStore persists the refresh job queue.
type JobStore interface {
	EnqueueJob(ctx context.Context, job RefreshJob) error
	// LeaseJobs atomically claims up to limit deliverable jobs until
	// now+leaseTTL. A job is deliverable when it has never been leased or its
	// prior lease has expired.
	LeaseJobs(ctx context.Context, limit int, now time.Time, leaseTTL time.Duration) ([]RefreshJob, error)
	// DeleteJob acknowledges a job, removing it from the queue.
	DeleteJob(ctx context.Context, jobID string) error
	// CountJobs reports queued jobs, for tests and admin introspection.
	CountJobs(ctx context.Context) (int, error)
}

// Store is the full persistence surface shared by the site and the worker.
type Store interface {
	AccountStore
	SummonerStore
	JobStore
}
