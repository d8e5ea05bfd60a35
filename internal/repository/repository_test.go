package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ipo_applier/internal/database"
	"ipo_applier/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createRun(t *testing.T, repo *RunRepository, id string, startedAt time.Time) *models.Run {
	t.Helper()
	run := &models.Run{
		ID:           id,
		Trigger:      "cli",
		Status:       "started",
		AccountCount: 2,
		StartedAt:    startedAt,
	}
	if err := repo.StartRun(context.Background(), run); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	return run
}
