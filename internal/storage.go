package internal

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

// PlaceholderThreadID is sent by servers before a real thread id exists.
// It is never adopted or persisted.
const PlaceholderThreadID = "__default__"

// ThreadStore persists the thread id for each workspace
type ThreadStore interface {
	// Get returns the stored thread id, or "" if none is stored
	Get(workspaceID string) (string, error)
	Set(workspaceID, threadID string) error
}

// SQLiteThreadStore keeps workspace → thread ids in a SQLite table
type SQLiteThreadStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteThreadStore creates a new store over an open database. path is
// only used in error messages.
func NewSQLiteThreadStore(db *sql.DB, path string) *SQLiteThreadStore {
	return &SQLiteThreadStore{db: db, path: path, now: time.Now}
}

// Get implements ThreadStore
func (s *SQLiteThreadStore) Get(workspaceID string) (string, error) {
	var threadID string
	err := s.db.QueryRow(
		"SELECT thread_id FROM workspaceThreads WHERE workspace = ?", workspaceID,
	).Scan(&threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", &StorageError{Path: s.path, Op: "read", Err: err}
	}
	return threadID, nil
}

// Set implements ThreadStore
func (s *SQLiteThreadStore) Set(workspaceID, threadID string) error {
	_, err := s.db.Exec(`
		INSERT INTO workspaceThreads (workspace, thread_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(workspace) DO UPDATE SET thread_id = excluded.thread_id, updated_at = excluded.updated_at`,
		workspaceID, threadID, s.now().UnixMilli(),
	)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// All returns every stored workspace → thread pair
func (s *SQLiteThreadStore) All() ([]KeyValuePair, error) {
	pairs, err := QueryWorkspaceThreads(s.db)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	return pairs, nil
}

// MemoryThreadStore is an in-process ThreadStore
type MemoryThreadStore struct {
	mu      sync.RWMutex
	threads map[string]string
}

// NewMemoryThreadStore creates an empty in-memory store
func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{threads: make(map[string]string)}
}

// Get implements ThreadStore
func (s *MemoryThreadStore) Get(workspaceID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threads[workspaceID], nil
}

// Set implements ThreadStore
func (s *MemoryThreadStore) Set(workspaceID, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[workspaceID] = threadID
	return nil
}
