package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const cacheVersion = "1.0"

// CacheManager handles caching of folded thread transcripts
type CacheManager struct {
	cacheDir string
	now      func() time.Time
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	CacheVersion string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// ThreadIndexEntry represents a thread entry in the index
type ThreadIndexEntry struct {
	ThreadID     string `yaml:"thread_id"`
	Workspace    string `yaml:"workspace,omitempty"`
	Source       string `yaml:"source,omitempty"`
	CreatedAt    string `yaml:"created_at,omitempty"`
	UpdatedAt    string `yaml:"updated_at,omitempty"`
	MessageCount int    `yaml:"message_count"`
}

// ThreadIndex represents the YAML index of all cached threads
type ThreadIndex struct {
	Threads  []ThreadIndexEntry `yaml:"threads"`
	Metadata CacheMetadata      `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
		now:      time.Now,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	if err := os.MkdirAll(cm.cacheDir, 0755); err != nil {
		return &StorageError{Path: cm.cacheDir, Op: "open", Err: err}
	}
	return nil
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the thread index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "threads.yaml")
}

// GetTranscriptPath returns the path to a thread's cache file
func (cm *CacheManager) GetTranscriptPath(threadID string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("transcript_%s.json", threadID))
}

// LoadIndex loads the thread index
func (cm *CacheManager) LoadIndex() (*ThreadIndex, error) {
	indexPath := cm.GetIndexPath()
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, &StorageError{Path: indexPath, Op: "read", Err: err}
	}

	var index ThreadIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	return &index, nil
}

// SaveIndex saves the thread index
func (cm *CacheManager) SaveIndex(index *ThreadIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	indexPath := cm.GetIndexPath()
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		return &StorageError{Path: indexPath, Op: "write", Err: err}
	}
	return nil
}

// SaveTranscript saves a single transcript to its cache file
func (cm *CacheManager) SaveTranscript(transcript *Transcript) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	path := cm.GetTranscriptPath(transcript.ThreadID)
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// LoadTranscript loads a single transcript from its cache file
func (cm *CacheManager) LoadTranscript(threadID string) (*Transcript, error) {
	path := cm.GetTranscriptPath(threadID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	return &transcript, nil
}

// LoadAllTranscripts loads every indexed transcript
func (cm *CacheManager) LoadAllTranscripts() ([]*Transcript, error) {
	index, err := cm.LoadIndex()
	if err != nil {
		return nil, err
	}

	var transcripts []*Transcript
	for _, entry := range index.Threads {
		transcript, err := cm.LoadTranscript(entry.ThreadID)
		if err != nil {
			LogWarn("Failed to load transcript %s: %v", entry.ThreadID, err)
			continue
		}
		transcripts = append(transcripts, transcript)
	}

	return transcripts, nil
}

// SaveTranscriptAndUpdateIndex saves a transcript and adds or refreshes its
// index entry
func (cm *CacheManager) SaveTranscriptAndUpdateIndex(transcript *Transcript) error {
	if err := cm.SaveTranscript(transcript); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	now := cm.now()
	index, err := cm.LoadIndex()
	if err != nil {
		index = &ThreadIndex{
			Threads: make([]ThreadIndexEntry, 0),
			Metadata: CacheMetadata{
				CacheVersion: cacheVersion,
				CreatedAt:    now,
			},
		}
	}
	index.Metadata.UpdatedAt = now

	entry := ThreadIndexEntry{
		ThreadID:     transcript.ThreadID,
		Workspace:    transcript.Workspace,
		Source:       transcript.Source,
		CreatedAt:    transcript.Metadata.CreatedAt,
		UpdatedAt:    transcript.Metadata.UpdatedAt,
		MessageCount: len(transcript.Entries),
	}

	found := false
	for i, existing := range index.Threads {
		if existing.ThreadID == transcript.ThreadID {
			index.Threads[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Threads = append(index.Threads, entry)
	}

	return cm.SaveIndex(index)
}

// ClearCache removes every cached transcript and the index
func (cm *CacheManager) ClearCache() error {
	indexPath := cm.GetIndexPath()

	index, err := cm.LoadIndex()
	if err == nil {
		for _, entry := range index.Threads {
			_ = os.Remove(cm.GetTranscriptPath(entry.ThreadID))
		}
	}

	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return &StorageError{Path: indexPath, Op: "write", Err: err}
	}

	return nil
}
