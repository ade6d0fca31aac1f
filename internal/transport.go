package internal

import (
	"context"
	"encoding/json"
)

// HistoryTurn is one prior turn sent along with a new message
type HistoryTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SendRequest carries everything the live transport needs to start a
// generation
type SendRequest struct {
	Message     string          `json:"message"`
	WorkspaceID string          `json:"workspace_id"`
	ThreadID    string          `json:"thread_id,omitempty"`
	History     []HistoryTurn   `json:"history"`
	Mode        string          `json:"mode,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
}

// EventHandler receives one parsed event. Returning an error stops the
// stream.
type EventHandler func(RawEvent) error

// LiveTransport opens a generation stream and drives onEvent until the
// generation finishes or fails
type LiveTransport interface {
	Send(ctx context.Context, req SendRequest, onEvent EventHandler) error
}

// ReplayTransport drives onEvent over the full historical event log of a
// thread. Unknown threads fail with an error wrapping ErrThreadNotFound.
type ReplayTransport interface {
	Replay(ctx context.Context, threadID string, onEvent EventHandler) error
}
