package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mpaiva/fiscalsim/internal/jobs"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublishSetsDefaults(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	job := &jobs.ImportDatasetJob{SourceURI: "/tmp/notas.csv"}
	if err := q.PublishImportDataset(context.Background(), job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if job.JobID == "" {
		t.Error("job ID not generated")
	}
	if job.Status != jobs.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
	if job.MaxRetries != 3 {
		t.Errorf("max_retries = %d, want 3", job.MaxRetries)
	}

	saved, err := store.GetJob(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if saved.SourceURI != "/tmp/notas.csv" {
		t.Errorf("source_uri = %s", saved.SourceURI)
	}
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var mu sync.Mutex
	var seen []string
	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		seen = append(seen, job.GetID())
		mu.Unlock()
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := &jobs.ImportDatasetJob{SourceURI: "gs://bucket/notas.csv"}
	if err := q.PublishImportDataset(ctx, job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, func() bool {
		got, err := store.GetJob(ctx, job.JobID)
		return err == nil && got.Status == jobs.JobStatusCompleted
	})

	got, _ := store.GetJob(ctx, job.JobID)
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}
	if got.Error != "" {
		t.Errorf("error = %q, want empty", got.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != job.JobID {
		t.Errorf("handler saw %v", seen)
	}
}

func TestQueueRetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var calls atomic.Int32
	handler := func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("download failed")
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := &jobs.ImportDatasetJob{SourceURI: "gs://bucket/bad.csv", MaxRetries: 1}
	if err := q.PublishImportDataset(ctx, job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, func() bool {
		got, err := store.GetJob(ctx, job.JobID)
		return err == nil && got.Status == jobs.JobStatusFailed
	})

	if got := calls.Load(); got != 2 {
		t.Errorf("handler calls = %d, want initial + 1 retry", got)
	}
	final, _ := store.GetJob(ctx, job.JobID)
	if final.Error != "download failed" {
		t.Errorf("error = %q", final.Error)
	}
	if final.RetryCount != 1 {
		t.Errorf("retry_count = %d", final.RetryCount)
	}
}

func TestPublishAfterClose(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	err := q.PublishImportDataset(context.Background(), &jobs.ImportDatasetJob{SourceURI: "x"})
	if err == nil {
		t.Error("publish on closed queue should fail")
	}
}

func TestStopWaitsForWorkers(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)

	release := make(chan struct{})
	started := make(chan struct{})
	handler := func(ctx context.Context, job jobs.Job) error {
		close(started)
		<-release
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("start: %v", err)
	}
	job := &jobs.ImportDatasetJob{SourceURI: "/tmp/slow.csv"}
	if err := q.PublishImportDataset(ctx, job); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started

	stopCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := q.Stop(stopCtx); err == nil {
		t.Error("stop should time out while a job is in flight")
	}

	close(release)
	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("second stop: %v", err)
	}
}
