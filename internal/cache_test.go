package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iksnae/chatfold/testutil"
)

func TestNewCacheManager(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)
	if cm == nil {
		t.Fatal("NewCacheManager() returned nil")
	}
	if cm.cacheDir != cacheDir {
		t.Errorf("NewCacheManager() cacheDir = %q, want %q", cm.cacheDir, cacheDir)
	}
}

func TestCacheManager_EnsureCacheDir(t *testing.T) {
	cacheDir := filepath.Join(testutil.CreateTempDir(t), "nested", "cache")
	cm := NewCacheManager(cacheDir)

	if err := cm.EnsureCacheDir(); err != nil {
		t.Errorf("EnsureCacheDir() error = %v", err)
	}

	// Verify directory exists
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("Cache directory was not created")
	}
}

func TestCacheManager_Paths(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"index", cm.GetIndexPath(), filepath.Join(cacheDir, "threads.yaml")},
		{"transcript", cm.GetTranscriptPath("thread-123"), filepath.Join(cacheDir, "transcript_thread-123.json")},
		{"cache dir", cm.GetCacheDir(), cacheDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCacheManager_SaveAndLoadIndex(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)

	index := &ThreadIndex{
		Threads: []ThreadIndexEntry{
			{ThreadID: "thread1", Workspace: "ws", MessageCount: 5},
		},
		Metadata: CacheMetadata{
			CacheVersion: "1.0",
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		},
	}

	if err := cm.SaveIndex(index); err != nil {
		t.Fatalf("SaveIndex() error = %v", err)
	}

	loaded, err := cm.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}

	if len(loaded.Threads) != 1 || loaded.Threads[0].ThreadID != "thread1" {
		t.Errorf("LoadIndex() threads = %+v", loaded.Threads)
	}
}

func TestCacheManager_SaveAndLoadTranscript(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	transcript := CreateTestTranscript("thread-1")

	if err := cm.SaveTranscript(transcript); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	loaded, err := cm.LoadTranscript("thread-1")
	if err != nil {
		t.Fatalf("LoadTranscript() error = %v", err)
	}

	if loaded.ThreadID != transcript.ThreadID {
		t.Errorf("LoadTranscript() ThreadID = %q, want %q", loaded.ThreadID, transcript.ThreadID)
	}
	if len(loaded.Entries) != len(transcript.Entries) {
		t.Errorf("LoadTranscript() returned %d entries, want %d", len(loaded.Entries), len(transcript.Entries))
	}
	if len(loaded.Entries[1].Segments) != 4 {
		t.Errorf("LoadTranscript() lost segments: %+v", loaded.Entries[1])
	}
}

func TestCacheManager_LoadTranscriptMissing(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))

	_, err := cm.LoadTranscript("nope")
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("LoadTranscript() error = %v, want *StorageError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadTranscript() error should wrap os.ErrNotExist")
	}
}

func TestCacheManager_LoadTranscriptFromFile(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	transcript := CreateTestTranscript("thread-7")
	testutil.CreateCacheFixture(t, cm.GetTranscriptPath("thread-7"), testutil.JSONMarshal(t, transcript))

	loaded, err := cm.LoadTranscript("thread-7")
	if err != nil {
		t.Fatalf("LoadTranscript() error = %v", err)
	}
	if loaded.ThreadID != "thread-7" || len(loaded.Entries) != len(transcript.Entries) {
		t.Errorf("LoadTranscript() = %+v", loaded)
	}
}

func TestCacheManager_TranscriptFileFormat(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	if err := cm.SaveTranscript(CreateTestTranscript("thread-1")); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	data, err := os.ReadFile(cm.GetTranscriptPath("thread-1"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var raw map[string]interface{}
	testutil.JSONUnmarshal(t, data, &raw)
	for _, key := range []string{"thread_id", "source", "entries", "metadata"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("transcript file is missing %q", key)
		}
	}
}

func TestCacheManager_CorruptFiles(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	testutil.CreateCacheFixture(t, cm.GetIndexPath(), []byte("threads: [unclosed"))
	testutil.CreateCacheFixture(t, cm.GetTranscriptPath("bad"), []byte("{not json"))

	var storageErr *StorageError
	if _, err := cm.LoadIndex(); err == nil || errors.As(err, &storageErr) {
		t.Errorf("LoadIndex() error = %v, want a decode error", err)
	}
	if _, err := cm.LoadTranscript("bad"); err == nil || errors.As(err, &storageErr) {
		t.Errorf("LoadTranscript() error = %v, want a decode error", err)
	}
}

func TestCacheManager_SaveTranscriptAndUpdateIndex(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))

	first := CreateTestTranscript("thread-1")
	if err := cm.SaveTranscriptAndUpdateIndex(first); err != nil {
		t.Fatalf("SaveTranscriptAndUpdateIndex() error = %v", err)
	}
	if err := cm.SaveTranscriptAndUpdateIndex(CreateTestTranscript("thread-2")); err != nil {
		t.Fatalf("SaveTranscriptAndUpdateIndex() error = %v", err)
	}

	// Saving the same thread again replaces its entry
	first.Entries = first.Entries[:1]
	if err := cm.SaveTranscriptAndUpdateIndex(first); err != nil {
		t.Fatalf("SaveTranscriptAndUpdateIndex() error = %v", err)
	}

	index, err := cm.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if len(index.Threads) != 2 {
		t.Fatalf("index has %d threads, want 2", len(index.Threads))
	}
	if index.Threads[0].MessageCount != 1 {
		t.Errorf("thread-1 MessageCount = %d, want 1", index.Threads[0].MessageCount)
	}

	transcripts, err := cm.LoadAllTranscripts()
	if err != nil {
		t.Fatalf("LoadAllTranscripts() error = %v", err)
	}
	if len(transcripts) != 2 {
		t.Errorf("LoadAllTranscripts() returned %d, want 2", len(transcripts))
	}
}

func TestCacheManager_LoadAllSkipsMissingFiles(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	_ = cm.SaveTranscriptAndUpdateIndex(CreateTestTranscript("thread-1"))
	_ = os.Remove(cm.GetTranscriptPath("thread-1"))

	transcripts, err := cm.LoadAllTranscripts()
	if err != nil {
		t.Fatalf("LoadAllTranscripts() error = %v", err)
	}
	if len(transcripts) != 0 {
		t.Errorf("LoadAllTranscripts() returned %d, want 0", len(transcripts))
	}
}

func TestCacheManager_ClearCache(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	_ = cm.SaveTranscriptAndUpdateIndex(CreateTestTranscript("thread-1"))

	if err := cm.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	for _, path := range []string{cm.GetIndexPath(), cm.GetTranscriptPath("thread-1")} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still exists after ClearCache()", path)
		}
	}

	// Clearing an empty cache is fine
	if err := cm.ClearCache(); err != nil {
		t.Errorf("ClearCache() on empty cache error = %v", err)
	}
}
