package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database for testing
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// Every pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS workspaceThreads (
		workspace TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create workspaceThreads table: %v", err)
	}

	return db
}

// CreateTestDB creates a test database with sample data
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	threads := []struct {
		workspace string
		threadID  string
	}{
		{workspace: "workspace-1", threadID: "thread-1"},
		{workspace: "workspace-2", threadID: "thread-2"},
	}

	for _, th := range threads {
		InsertThread(t, db, th.workspace, th.threadID)
	}

	return db
}

// InsertThread inserts a workspace → thread row into the database
func InsertThread(t *testing.T, db *sql.DB, workspace, threadID string) {
	t.Helper()
	insertSQL := "INSERT INTO workspaceThreads (workspace, thread_id, updated_at) VALUES (?, ?, 0)"
	if _, err := db.Exec(insertSQL, workspace, threadID); err != nil {
		t.Fatalf("Failed to insert thread: %v", err)
	}
}
