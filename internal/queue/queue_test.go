package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/flairhub/flairhub/internal/storage"
)

// fakeJobStore is an in-memory JobStore with the same lease semantics as the
// sqlite implementation.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]storage.RefreshJob

	leaseErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]storage.RefreshJob)}
}

func (f *fakeJobStore) EnqueueJob(_ context.Context, job storage.RefreshJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.ID]; ok {
		return fmt.Errorf("duplicate job id %q", job.ID)
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobStore) LeaseJobs(_ context.Context, limit int, now time.Time, leaseTTL time.Duration) ([]storage.RefreshJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.leaseErr != nil {
		return nil, f.leaseErr
	}
	var candidates []storage.RefreshJob
	for _, job := range f.jobs {
		if job.LeaseExpiresAt == nil || !job.LeaseExpiresAt.After(now) {
			candidates = append(candidates, job)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].EnqueuedAt.Equal(candidates[j].EnqueuedAt) {
			return candidates[i].EnqueuedAt.Before(candidates[j].EnqueuedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	var leased []storage.RefreshJob
	for _, job := range candidates {
		expires := now.Add(leaseTTL)
		job.LeaseExpiresAt = &expires
		job.AttemptCount++
		f.jobs[job.ID] = job
		leased = append(leased, job)
	}
	return leased, nil
}

func (f *fakeJobStore) DeleteJob(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, jobID)
	return nil
}

func (f *fakeJobStore) CountJobs(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs), nil
}

func newTestQueue(jobs storage.JobStore) *Queue {
	q := New(jobs, nil)
	q.poll = time.Millisecond
	return q
}

func TestEnqueueRequiresPUUID(t *testing.T) {
	q := newTestQueue(newFakeJobStore())
	if err := q.Enqueue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty puuid")
	}
}

func TestEnqueueProducesDistinctJobs(t *testing.T) {
	jobs := newFakeJobStore()
	q := newTestQueue(jobs)
	ctx := context.Background()

	// Enqueueing the same puuid repeatedly never collapses; deduplication is
	// the consumer's concern.
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, "puuid-1"); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	count, err := jobs.CountJobs(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestReceiveBatchCapsAtMaxSize(t *testing.T) {
	jobs := newFakeJobStore()
	q := newTestQueue(jobs)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := q.Enqueue(ctx, fmt.Sprintf("puuid-%d", i)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	first, err := q.ReceiveBatch(ctx, BatchSize, WaitTimeout)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(first) != BatchSize {
		t.Fatalf("first batch = %d jobs, want %d", len(first), BatchSize)
	}

	second, err := q.ReceiveBatch(ctx, BatchSize, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("second batch = %d jobs, want 2", len(second))
	}
}

func TestReceiveBatchReturnsPartialBatchAfterWait(t *testing.T) {
	jobs := newFakeJobStore()
	q := newTestQueue(jobs)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "puuid-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	start := time.Now()
	batch, err := q.ReceiveBatch(ctx, BatchSize, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("batch = %d jobs, want 1", len(batch))
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned after %v, want full wait for a partial batch", elapsed)
	}
}

func TestReceiveBatchEmptyAfterWait(t *testing.T) {
	q := newTestQueue(newFakeJobStore())

	batch, err := q.ReceiveBatch(context.Background(), BatchSize, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("batch = %d jobs, want none", len(batch))
	}
}

func TestReceiveBatchPicksUpLateArrivals(t *testing.T) {
	jobs := newFakeJobStore()
	q := newTestQueue(jobs)
	ctx := context.Background()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Enqueue(ctx, "puuid-late")
	}()

	batch, err := q.ReceiveBatch(ctx, 1, time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(batch) != 1 || batch[0].PUUID != "puuid-late" {
		t.Fatalf("batch = %+v, want the late job", batch)
	}
}

func TestReceiveBatchHonorsContextCancel(t *testing.T) {
	q := newTestQueue(newFakeJobStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.ReceiveBatch(ctx, BatchSize, time.Second); err == nil {
		t.Fatal("expected context error")
	}
}

func TestAckRemovesJob(t *testing.T) {
	jobs := newFakeJobStore()
	q := newTestQueue(jobs)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "puuid-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	batch, err := q.ReceiveBatch(ctx, 1, time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := q.Ack(ctx, batch[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	count, err := jobs.CountJobs(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}

	// Acking twice stays a no-op.
	if err := q.Ack(ctx, batch[0].ID); err != nil {
		t.Fatalf("ack again: %v", err)
	}
}
