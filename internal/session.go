package internal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

// FallbackMessage is shown in an assistant message whose send failed
// before any content arrived
const FallbackMessage = "Sorry, something went wrong while generating a response. Please try again."

// SessionConfig wires a Session to its collaborators
type SessionConfig struct {
	WorkspaceID  string
	UserID       string
	Mode         string
	Live         LiveTransport
	Replay       ReplayTransport
	Threads      ThreadStore
	Card         TodoCard
	RecentWindow time.Duration
}

// SendOptions are per-send overrides
type SendOptions struct {
	Mode    string
	Context json.RawMessage
}

// Session owns the message list and thread identity of one workspace. It
// never lets replay run while a live send is streaming: a replay requested
// during a send is deferred until the send finishes.
type Session struct {
	cfg    SessionConfig
	store  *MessageStore
	recent *RecentlySent
	now    func() time.Time
	newID  func() string

	mu            sync.Mutex
	workspaceID   string
	threadID      string
	streaming     bool
	replaying     *ReplayReconciler
	replayPending bool
	lastErr       error

	// turns are the turns folded by the last completed replay of
	// turnsThread, by pair index
	turns       map[int]string
	turnsThread string
}

// NewSession creates a session. Call Open to load the stored thread.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Threads == nil {
		cfg.Threads = NewMemoryThreadStore()
	}
	if cfg.Card == nil {
		cfg.Card = noopCard{}
	}
	return &Session{
		cfg:         cfg,
		store:       NewMessageStore(),
		recent:      NewRecentlySent(cfg.RecentWindow),
		now:         time.Now,
		newID:       NewID,
		workspaceID: cfg.WorkspaceID,
	}
}

// Open reads the workspace's stored thread id and replays it
func (s *Session) Open(ctx context.Context) error {
	threadID, err := s.cfg.Threads.Get(s.WorkspaceID())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.threadID = threadID
	s.mu.Unlock()

	if threadID == "" {
		return nil
	}
	return s.runReplay(ctx, true)
}

// SetWorkspace switches to another workspace, dropping all state and
// replaying that workspace's stored thread
func (s *Session) SetWorkspace(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	if workspaceID == s.workspaceID {
		s.mu.Unlock()
		return nil
	}
	s.workspaceID = workspaceID
	s.resetLocked()
	s.mu.Unlock()

	if err := s.Open(ctx); err != nil && !errors.Is(err, ErrReplayDeferred) {
		return err
	}
	return nil
}

// SetThread changes the thread identity. Moving from no thread to a thread
// keeps the conversation being built; any other change clears the list and
// replays the new thread. An empty id starts a new conversation.
func (s *Session) SetThread(ctx context.Context, threadID string) error {
	if threadID == PlaceholderThreadID {
		return nil
	}

	s.mu.Lock()
	if threadID == s.threadID {
		s.mu.Unlock()
		return nil
	}
	prev := s.threadID
	s.threadID = threadID
	s.persistLocked(threadID)

	if prev == "" && s.store.Len() > 0 {
		s.mu.Unlock()
		LogDebug("session: thread %s assigned, keeping state", threadID)
		return nil
	}

	s.resetLocked()
	s.mu.Unlock()

	if threadID == "" {
		return nil
	}
	if err := s.runReplay(ctx, true); err != nil && !errors.Is(err, ErrReplayDeferred) {
		return err
	}
	return nil
}

// Replay folds the current thread's history again from scratch. During a
// live send it is deferred and ErrReplayDeferred is returned.
func (s *Session) Replay(ctx context.Context) error {
	return s.runReplay(ctx, true)
}

// Send submits a user message and folds the generation into a new
// assistant message. It returns the assistant message id.
func (s *Session) Send(ctx context.Context, text string, opts SendOptions) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return "", ErrSendInProgress
	}
	if s.replaying != nil {
		s.mu.Unlock()
		return "", ErrReplayInProgress
	}

	isNew := s.store.Len() == 0 || s.threadID == ""
	history := s.historyLocked()

	now := s.now()
	userID, assistantID := s.newID(), s.newID()
	placeholder := NewAssistantPlaceholder(assistantID, now)
	placeholder.IsStreaming = true
	s.store.Append(NewUserMessage(userID, text, now), placeholder)
	s.recent.Track(text, now, userID)

	mode := opts.Mode
	if mode == "" {
		mode = s.cfg.Mode
	}
	req := SendRequest{
		Message:     text,
		WorkspaceID: s.workspaceID,
		ThreadID:    s.threadID,
		History:     history,
		Mode:        mode,
		UserID:      s.cfg.UserID,
		Context:     opts.Context,
	}
	s.streaming = true
	s.lastErr = nil
	s.mu.Unlock()

	proc := NewLiveProcessor(s.store, assistantID, isNew, s.cfg.Card)
	err := s.cfg.Live.Send(ctx, req, func(raw RawEvent) error {
		if raw.ThreadID != "" {
			s.adoptThread(raw.ThreadID)
		}
		proc.HandleRaw(raw)
		return nil
	})
	proc.Finish()

	var sendErr error
	if err != nil {
		LogError("send [%s]: %v", assistantID, err)
		proc.Fail(err.Error(), FallbackMessage)
		sendErr = &SendError{MessageID: assistantID, Err: err}
	}

	s.mu.Lock()
	s.streaming = false
	if sendErr != nil {
		s.lastErr = sendErr
	}
	pending := s.replayPending
	s.replayPending = false
	s.mu.Unlock()

	if pending {
		if rerr := s.runReplay(ctx, false); rerr != nil {
			LogWarn("session: deferred replay failed: %v", rerr)
		}
	}
	return assistantID, sendErr
}

// adoptThread takes a thread id reported by the live stream. State is
// always kept; if the session already had a different thread the history
// is replayed once streaming ends.
func (s *Session) adoptThread(threadID string) {
	if threadID == PlaceholderThreadID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if threadID == s.threadID {
		return
	}
	prev := s.threadID
	s.threadID = threadID
	s.persistLocked(threadID)
	LogDebug("session: live stream assigned thread %s (was %q)", threadID, prev)
	if prev != "" {
		s.replayPending = true
	}
}

// runReplay starts a reconciler for the current thread unless a send is
// streaming or another replay is running. reset drops the list first.
func (s *Session) runReplay(ctx context.Context, reset bool) error {
	s.mu.Lock()
	if s.streaming {
		s.replayPending = true
		s.mu.Unlock()
		LogDebug("session: replay deferred until streaming finishes")
		return ErrReplayDeferred
	}
	if s.replaying != nil {
		s.mu.Unlock()
		return ErrReplayInProgress
	}
	threadID := s.threadID
	if threadID == "" {
		s.mu.Unlock()
		return nil
	}
	var turns map[int]string
	switch {
	case reset:
		s.store.Reset()
	case s.turnsThread == threadID:
		turns = s.turns
	default:
		// History of the previous thread does not belong to this one
		if n := s.store.DropHistory(); n > 0 {
			LogDebug("session: dropped %d messages of thread %q", n, s.turnsThread)
		}
	}
	r := NewReplayReconciler(ReplayConfig{
		Store:       s.store,
		Recent:      s.recent,
		Threads:     s.cfg.Threads,
		WorkspaceID: s.workspaceID,
		ThreadID:    threadID,
		Card:        s.cfg.Card,
		Turns:       turns,
	})
	s.replaying = r
	s.mu.Unlock()

	err := r.Run(ctx, s.cfg.Replay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaying == r {
		s.replaying = nil
	}
	switch {
	case errors.Is(err, ErrReplayAbandoned):
		return err
	case err != nil:
		s.lastErr = err
		return err
	}
	if adopted := r.ThreadID(); adopted != threadID && s.threadID == threadID {
		s.threadID = adopted
	}
	s.turns = r.Turns()
	s.turnsThread = s.threadID
	return nil
}

// resetLocked drops all messages and stops any running replay
func (s *Session) resetLocked() {
	if s.replaying != nil {
		s.replaying.Abandon()
		s.replaying = nil
	}
	s.replayPending = false
	s.turns = nil
	s.turnsThread = ""
	s.store.Reset()
	s.recent.Clear()
}

func (s *Session) persistLocked(threadID string) {
	if err := s.cfg.Threads.Set(s.workspaceID, threadID); err != nil {
		LogWarn("session: failed to persist thread id: %v", err)
	}
}

// historyLocked collects the prior turns sent along with a new message
func (s *Session) historyLocked() []HistoryTurn {
	msgs := s.store.List()
	history := make([]HistoryTurn, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Error || msg.IsStreaming || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		history = append(history, HistoryTurn{Role: msg.Role, Content: msg.Content})
	}
	return history
}

// Messages returns a snapshot of the message list
func (s *Session) Messages() []Message {
	return s.store.List()
}

// WorkspaceID returns the current workspace
func (s *Session) WorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceID
}

// ThreadID returns the current thread id, "" before one is assigned
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// IsStreaming reports whether a live send is in progress
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// IsReplaying reports whether a replay is running
func (s *Session) IsReplaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaying != nil
}

// Err returns the last send or replay failure, for banner display
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError dismisses the last failure
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}
