package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// SampleEventLog is a two-turn replay log with reasoning, a tool call, a
// todo artifact that arrives without a pair index, and a replay_done that
// assigns a thread id.
var SampleEventLog = []string{
	`{"event":"user_message","pair_index":0,"content":"Plan my week","timestamp":"2025-01-02T03:04:05Z"}`,
	`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"reasoning_signal","content":"start"}`,
	`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"reasoning","content":"Check the calendar."}`,
	`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"reasoning_signal","content":"complete"}`,
	`{"event":"tool_calls","pair_index":0,"finish_reason":"tool_calls","tool_calls":[{"id":"tc1","name":"calendar","args":{"days":7}}]}`,
	`{"event":"tool_call_result","pair_index":0,"tool_call_id":"tc1","content":"3 events"}`,
	`{"event":"artifact","artifact_type":"todo_update","artifact_id":"plan","payload":{"todos":[{"title":"gym"}],"total":1,"completed":0,"in_progress":0,"pending":1}}`,
	`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"text","content":"Here is your plan."}`,
	`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"text","finish_reason":"stop"}`,
	`{"event":"credit_usage","pair_index":0}`,
	`{"event":"user_message","pair_index":1,"content":"Thanks","timestamp":"2025-01-02T03:05:00Z"}`,
	`{"event":"message_chunk","pair_index":1,"role":"assistant","content_type":"text","content":"Any time."}`,
	`{"event":"replay_done","thread_id":"thread-1"}`,
}

// CreateSQLiteFixture creates a thread database file with one workspace row
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS workspaceThreads (
		workspace TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	insertSQL := "INSERT INTO workspaceThreads (workspace, thread_id, updated_at) VALUES (?, ?, ?)"
	if _, err := db.Exec(insertSQL, "workspace-1", "thread-1", time.Now().UnixMilli()); err != nil {
		t.Fatalf("Failed to insert thread: %v", err)
	}
}

// WriteEventLog writes a JSONL event log for threadID into dir and returns
// its path
func WriteEventLog(t *testing.T, dir, threadID string, lines []string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create log directory: %v", err)
	}
	path := filepath.Join(dir, threadID+".jsonl")
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write event log: %v", err)
	}
	return path
}

// CreateCacheFixture creates a cache file fixture
func CreateCacheFixture(t *testing.T, cachePath string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("Failed to create cache directory: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		t.Fatalf("Failed to write cache file: %v", err)
	}
}
