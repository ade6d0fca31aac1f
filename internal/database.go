package internal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const threadTableSQL = `
CREATE TABLE IF NOT EXISTS workspaceThreads (
	workspace TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenDatabase opens (creating if needed) the SQLite thread database
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the workspaceThreads table
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(threadTableSQL); err != nil {
		return fmt.Errorf("failed to create workspaceThreads table: %w", err)
	}
	return nil
}

// QueryWorkspaceThreads returns every workspace → thread pair
func QueryWorkspaceThreads(db *sql.DB) ([]KeyValuePair, error) {
	query := "SELECT workspace, thread_id FROM workspaceThreads ORDER BY workspace"
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var pairs []KeyValuePair
	for rows.Next() {
		var pair KeyValuePair
		if err := rows.Scan(&pair.Key, &pair.Value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return pairs, nil
}

// KeyValuePair represents a workspace → thread row
type KeyValuePair struct {
	Key   string
	Value string
}
