package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrThreadNotFound is returned (wrapped) by replay transports when the
	// server has no durable record of the thread yet.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrSendInProgress is returned when a send is requested while another
	// live send is still streaming.
	ErrSendInProgress = errors.New("send already in progress")

	// ErrReplayInProgress is returned when replay is requested while a replay
	// for the session is already running.
	ErrReplayInProgress = errors.New("replay already in progress")

	// ErrReplayDeferred is returned when replay is requested during a live
	// send. The replay runs once the send finishes.
	ErrReplayDeferred = errors.New("replay deferred until streaming finishes")

	// ErrEmptyMessage is returned when a blank message is sent
	ErrEmptyMessage = errors.New("message is empty")

	// ErrReplayAbandoned is returned when the thread or workspace changed
	// while a replay was running.
	ErrReplayAbandoned = errors.New("replay abandoned")
)

// StorageError represents errors accessing the thread store or cache files
type StorageError struct {
	Path string
	Op   string // "open", "read", "write"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// EventError represents an event that could not be decoded at the boundary
type EventError struct {
	Source string // "live", "replay"
	Kind   string // raw event name
	Err    error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event error [%s] %s: %v", e.Source, e.Kind, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// ReplayError represents a replay transport failure other than "not found"
type ReplayError struct {
	ThreadID string
	Err      error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay error [%s]: %v", e.ThreadID, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

// SendError represents a live transport failure for one assistant message
type SendError struct {
	MessageID string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send error [%s]: %v", e.MessageID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
