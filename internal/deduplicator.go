package internal

import (
	"strings"
	"sync"
	"time"
)

// DefaultRecentWindow is how long a sent message stays recognizable
const DefaultRecentWindow = 30 * time.Second

// SentEntry is one message the client itself just submitted
type SentEntry struct {
	Content   string
	Timestamp time.Time
	MessageID string
}

// RecentlySent remembers user messages this client just submitted so that
// replay can recognize the turn it already shows instead of inserting it a
// second time. Entries are keyed by trimmed text and expire after the window.
type RecentlySent struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries []SentEntry
}

// NewRecentlySent creates a new tracker with the given window. A
// non-positive window uses DefaultRecentWindow.
func NewRecentlySent(window time.Duration) *RecentlySent {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	return &RecentlySent{
		window: window,
		now:    time.Now,
	}
}

// Track records a just-submitted message
func (r *RecentlySent) Track(content string, ts time.Time, messageID string) {
	key := strings.TrimSpace(content)
	if key == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	r.entries = append(r.entries, SentEntry{
		Content:   key,
		Timestamp: ts,
		MessageID: messageID,
	})
}

// IsRecentlySent reports whether content matches a tracked entry
func (r *RecentlySent) IsRecentlySent(content string) bool {
	_, ok := r.Lookup(content)
	return ok
}

// Lookup returns the newest tracked entry matching content
func (r *RecentlySent) Lookup(content string) (SentEntry, bool) {
	key := strings.TrimSpace(content)
	if key == "" {
		return SentEntry{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Content == key {
			return r.entries[i], true
		}
	}
	return SentEntry{}, false
}

// Len returns the number of live entries
func (r *RecentlySent) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	return len(r.entries)
}

// Clear drops every entry. Called on thread switch.
func (r *RecentlySent) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

func (r *RecentlySent) evictLocked() {
	cutoff := r.now().Add(-r.window)
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}
