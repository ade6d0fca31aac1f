package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/chatfold/internal"
	"github.com/iksnae/chatfold/internal/config"
	"github.com/iksnae/chatfold/internal/transport"
)

// threadDB is the open thread database of one command run
type threadDB struct {
	db    *sql.DB
	store *internal.SQLiteThreadStore
}

func openThreadDB(c *config.Config) (*threadDB, error) {
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0755); err != nil {
		return nil, &internal.StorageError{Path: c.DBPath, Op: "open", Err: err}
	}
	db, err := internal.OpenDatabase(c.DBPath)
	if err != nil {
		return nil, &internal.StorageError{Path: c.DBPath, Op: "open", Err: err}
	}
	return &threadDB{db: db, store: internal.NewSQLiteThreadStore(db, c.DBPath)}, nil
}

func (t *threadDB) Close() {
	if err := t.db.Close(); err != nil {
		internal.LogWarn("Failed to close thread database: %v", err)
	}
}

// replayTransport reads JSONL logs when a log directory is configured and
// the server otherwise
func replayTransport(c *config.Config) internal.ReplayTransport {
	if c.LogDir != "" {
		internal.LogDebug("Replaying from event logs in %s", c.LogDir)
		return transport.NewFileReplay(c.LogDir)
	}
	return transport.NewWSClient(c.ServerURL)
}

func newSession(c *config.Config, threads internal.ThreadStore, card internal.TodoCard) *internal.Session {
	ws := transport.NewWSClient(c.ServerURL)
	return internal.NewSession(internal.SessionConfig{
		WorkspaceID:  c.Workspace,
		UserID:       c.UserID,
		Mode:         c.Mode,
		Live:         ws,
		Replay:       replayTransport(c),
		Threads:      threads,
		Card:         card,
		RecentWindow: c.RecentWindow,
	})
}

// cacheSession normalizes the session's messages and stores the transcript
func cacheSession(c *config.Config, session *internal.Session, source string) (*internal.Transcript, error) {
	threadID := session.ThreadID()
	if threadID == "" {
		return nil, fmt.Errorf("session has no thread id yet")
	}

	transcript, err := internal.NewNormalizer().NormalizeThread(threadID, session.WorkspaceID(), source, session.Messages())
	if err != nil {
		return nil, err
	}

	cacheManager := internal.NewCacheManager(c.CacheDir)
	if err := cacheManager.SaveTranscriptAndUpdateIndex(transcript); err != nil {
		return transcript, err
	}
	return transcript, nil
}
