package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mpaiva/fiscalsim/internal/jobs"
)

func TestSaveAndGetCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.ImportDatasetJob{JobID: "j1", SourceURI: "/tmp/a.csv", Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the original must not affect the stored copy.
	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("status = %s, want stored copy untouched", got.Status)
	}

	// And mutating the returned copy must not affect the store.
	got.SourceURI = "changed"
	again, _ := s.GetJob(ctx, "j1")
	if again.SourceURI != "/tmp/a.csv" {
		t.Errorf("source_uri = %s", again.SourceURI)
	}
}

func TestSaveRequiresID(t *testing.T) {
	s := NewStore()
	if err := s.SaveJob(context.Background(), &jobs.ImportDatasetJob{}); err == nil {
		t.Error("save without ID should fail")
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore()
	if _, err := s.GetJob(context.Background(), "nope"); err == nil {
		t.Error("get of missing job should fail")
	}
}

func TestListJobsFilterAndOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		status := jobs.JobStatusCompleted
		if i%2 == 0 {
			status = jobs.JobStatusFailed
		}
		job := &jobs.ImportDatasetJob{
			JobID:     fmt.Sprintf("j%d", i),
			SourceURI: "gs://bucket/notas.csv",
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d", len(all))
	}
	// Newest first.
	if all[0].JobID != "j4" || all[4].JobID != "j0" {
		t.Errorf("order = %s..%s", all[0].JobID, all[4].JobID)
	}

	failed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 3 {
		t.Errorf("failed = %d, want 3", len(failed))
	}

	bySource, _ := s.ListJobs(ctx, jobs.JobFilter{SourceURI: "gs://bucket/other.csv"})
	if len(bySource) != 0 {
		t.Errorf("bySource = %d, want 0", len(bySource))
	}

	page, _ := s.ListJobs(ctx, jobs.JobFilter{Offset: 1, Limit: 2})
	if len(page) != 2 || page[0].JobID != "j3" || page[1].JobID != "j2" {
		t.Errorf("page = %+v", page)
	}

	empty, _ := s.ListJobs(ctx, jobs.JobFilter{Offset: 99})
	if len(empty) != 0 {
		t.Errorf("offset past end = %d entries", len(empty))
	}
}

func TestUpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x"); err == nil {
		t.Error("update of missing job should fail")
	}

	job := &jobs.ImportDatasetJob{JobID: "j1", Status: jobs.JobStatusRunning}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v", got)
	}
}
