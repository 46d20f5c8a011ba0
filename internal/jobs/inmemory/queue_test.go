package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parkozhao/spendscope/internal/jobs"
)

func TestQueueProcessesJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var processed atomic.Int64
	var mu sync.Mutex
	seen := map[string]bool{}

	err := q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		seen[job.GetID()] = true
		mu.Unlock()
		processed.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 4; i++ {
		job := &jobs.TagBatchJob{BatchIndex: i, BatchFile: "batch.txt", RunID: "run-1"}
		if err := q.PublishTagBatch(ctx, job); err != nil {
			t.Fatalf("PublishTagBatch: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for processed.Load() < 4 {
		select {
		case <-deadline:
			t.Fatalf("only %d of 4 jobs processed", processed.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	if len(seen) != 4 {
		t.Errorf("saw %d distinct jobs, want 4", len(seen))
	}
	mu.Unlock()

	listed, err := store.ListJobs(ctx, jobs.JobFilter{RunID: "run-1", Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(listed) != 4 {
		t.Errorf("store has %d completed jobs, want 4", len(listed))
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int64
	err := q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient model error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.TagBatchJob{BatchFile: "batch.txt", MaxRetries: 2}
	if err := q.PublishTagBatch(ctx, job); err != nil {
		t.Fatalf("PublishTagBatch: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		got, err := store.GetJob(ctx, job.JobID)
		if err == nil && got.Status == jobs.JobStatusCompleted {
			if got.RetryCount != 1 {
				t.Errorf("retry count = %d, want 1", got.RetryCount)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job never completed; attempts=%d", attempts.Load())
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := q.PublishTagBatch(context.Background(), &jobs.TagBatchJob{BatchFile: "x.txt"})
	if err == nil {
		t.Fatal("expected error publishing to closed queue")
	}
}

func TestStoreFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusCompleted, jobs.JobStatusCompleted} {
		job := &jobs.TagBatchJob{JobID: string(rune('a' + i)), RunID: "run-1", Status: status}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	completed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("got %d completed jobs, want 2", len(completed))
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{RunID: "run-1", Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d jobs with limit 1, want 1", len(limited))
	}

	if _, err := store.GetJob(ctx, "missing"); err == nil {
		t.Error("expected error for missing job")
	}
}
