package repository

import (
	"context"
	"testing"
	"time"
)

func TestRunRepository_StartAndComplete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := createRun(t, repo, "run-1", started)

	got, err := repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.Status != "started" || got.CompletedAt != nil {
		t.Errorf("fresh run = %+v", got)
	}

	completed := started.Add(90 * time.Second)
	run.Status = "violation"
	run.AppliedCount = 1
	run.FailedCount = 1
	run.ErrorMessage = "protocol violation"
	run.CompletedAt = &completed
	run.DurationMs = 90000
	if err := repo.CompleteRun(ctx, run); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}

	got, err = repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != "violation" {
		t.Errorf("Status = %s, want violation", got.Status)
	}
	if got.AppliedCount != 1 || got.FailedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", got.AppliedCount, got.FailedCount)
	}
	if got.ErrorMessage != "protocol violation" {
		t.Errorf("ErrorMessage = %q", got.ErrorMessage)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
	}
	if got.DurationMs != 90000 {
		t.Errorf("DurationMs = %d, want 90000", got.DurationMs)
	}
}

func TestRunRepository_GetByID_NotFound_ReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepository(db)

	got, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestRunRepository_List_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepository(db)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	createRun(t, repo, "run-1", base)
	createRun(t, repo, "run-2", base.Add(time.Hour))
	createRun(t, repo, "run-3", base.Add(2*time.Hour))

	runs, total, err := repo.List(context.Background(), NewPagination(2, 0))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("order = %s, %s; want run-3, run-2", runs[0].ID, runs[1].ID)
	}

	runs, _, err = repo.List(context.Background(), NewPagination(2, 2))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("second page = %v", runs)
	}
}

func TestRunRepository_DeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepository(db)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	createRun(t, repo, "old", base)
	createRun(t, repo, "new", base.Add(48*time.Hour))

	deleted, err := repo.DeleteOlderThan(context.Background(), base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if got, _ := repo.GetByID(context.Background(), "old"); got != nil {
		t.Error("old run should be gone")
	}
}

func TestPagination_Limits(t *testing.T) {
	if p := NewPagination(0, -5); p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("NewPagination(0, -5) = %+v", p)
	}
	if p := NewPagination(10000, 0); p.Limit != MaxLimit {
		t.Errorf("Limit = %d, want %d", p.Limit, MaxLimit)
	}
	if p := PageToPagination(3, 20); p.Offset != 40 {
		t.Errorf("Offset = %d, want 40", p.Offset)
	}

	res := NewPaginatedResult([]int{1, 2}, 5, Pagination{Limit: 2, Offset: 2})
	if res.TotalPages != 3 || res.Page != 2 || !res.HasMore {
		t.Errorf("NewPaginatedResult() = %+v", res)
	}
}
