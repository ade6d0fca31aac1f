package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Wire event names
const (
	EventUserMessage    = "user_message"
	EventMessageChunk   = "message_chunk"
	EventToolCallChunks = "tool_call_chunks"
	EventToolCalls      = "tool_calls"
	EventToolCallResult = "tool_call_result"
	EventArtifact       = "artifact"
	EventErrorName      = "error"
	EventReplayDone     = "replay_done"
	EventCreditUsage    = "credit_usage"
)

// Content types carried by message_chunk events
const (
	ContentReasoningSignal = "reasoning_signal"
	ContentReasoning       = "reasoning"
	ContentText            = "text"
)

// Reasoning signal values
const (
	SignalStart    = "start"
	SignalComplete = "complete"
)

// ArtifactTodoUpdate is the only artifact type the engine folds
const ArtifactTodoUpdate = "todo_update"

// FinishToolCalls is the finish reason that hands off to the tool path
const FinishToolCalls = "tool_calls"

// RawEvent is one parsed event as it arrives from either transport
type RawEvent struct {
	Event        string          `json:"event,omitempty"`
	ContentType  string          `json:"content_type,omitempty"`
	Content      string          `json:"content,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Role         string          `json:"role,omitempty"`
	PairIndex    *int            `json:"pair_index,omitempty"`
	ToolCalls    []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID   string          `json:"tool_call_id,omitempty"`
	ArtifactType string          `json:"artifact_type,omitempty"`
	ArtifactID   string          `json:"artifact_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ThreadID     string          `json:"thread_id,omitempty"`
	Timestamp    string          `json:"timestamp,omitempty"`
	Error        string          `json:"error,omitempty"`
	Message      string          `json:"message,omitempty"`
	Code         string          `json:"code,omitempty"`
}

// ParseRawEvent parses one JSON event
func ParseRawEvent(data []byte) (RawEvent, error) {
	var ev RawEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return RawEvent{}, fmt.Errorf("failed to parse event JSON: %w", err)
	}
	return ev, nil
}

// EventMeta is the routing information shared by every event variant
type EventMeta struct {
	PairIndex *int
	Role      string
	ThreadID  string
	Timestamp string
}

// Pair returns the turn index and whether the event carried one
func (m EventMeta) Pair() (int, bool) {
	if m.PairIndex == nil {
		return 0, false
	}
	return *m.PairIndex, true
}

// Event is a decoded, validated event variant
type Event interface {
	Kind() string
	Meta() EventMeta
}

type (
	// UserMessage reports a user turn during replay
	UserMessage struct {
		EventMeta
		Content string
	}

	// ReasoningSignal opens or closes a reasoning episode
	ReasoningSignal struct {
		EventMeta
		Signal string
	}

	// ReasoningDelta appends to the open reasoning episode
	ReasoningDelta struct {
		EventMeta
		Content string
	}

	// TextChunk is a text delta or an end-of-stream marker
	TextChunk struct {
		EventMeta
		Content      string
		FinishReason string
		ToolCalls    []ToolCall
	}

	// ToolCallChunks is a partial tool call; only meaningful while streaming
	ToolCallChunks struct {
		EventMeta
	}

	// ToolCalls reports complete tool invocations
	ToolCalls struct {
		EventMeta
		Calls        []ToolCall
		FinishReason string
	}

	// ToolCallResult resolves a tool invocation
	ToolCallResult struct {
		EventMeta
		ToolCallID string
		Result     ToolResult
	}

	// TodoUpdate is a structured-list artifact update
	TodoUpdate struct {
		EventMeta
		ArtifactID string
		Payload    TodoPayload
	}

	// ErrorEvent is a stream-level failure
	ErrorEvent struct {
		EventMeta
		Message string
		Code    string
	}

	// ReplayDone terminates a replay stream
	ReplayDone struct {
		EventMeta
	}

	// CreditUsage marks a turn boundary; informational only
	CreditUsage struct {
		EventMeta
	}

	// Unknown is anything that failed validation
	Unknown struct {
		EventMeta
		Name string
		Err  error
	}
)

func (e UserMessage) Kind() string     { return EventUserMessage }
func (e ReasoningSignal) Kind() string { return ContentReasoningSignal }
func (e ReasoningDelta) Kind() string  { return ContentReasoning }
func (e TextChunk) Kind() string       { return ContentText }
func (e ToolCallChunks) Kind() string  { return EventToolCallChunks }
func (e ToolCalls) Kind() string       { return EventToolCalls }
func (e ToolCallResult) Kind() string  { return EventToolCallResult }
func (e TodoUpdate) Kind() string      { return ArtifactTodoUpdate }
func (e ErrorEvent) Kind() string      { return EventErrorName }
func (e ReplayDone) Kind() string      { return EventReplayDone }
func (e CreditUsage) Kind() string     { return EventCreditUsage }
func (e Unknown) Kind() string         { return "unknown" }

func (m EventMeta) Meta() EventMeta { return m }

// DefersToTools reports whether this chunk only hands off to the tool path
func (e TextChunk) DefersToTools() bool {
	return e.FinishReason == FinishToolCalls && e.Content == ""
}

var (
	errMissingContent = errors.New("missing content")
	errMissingID      = errors.New("missing tool_call_id")
	errUnknownSignal  = errors.New("unknown reasoning signal")
	errUnknownType    = errors.New("unrecognized event type")
)

// Name returns the wire event name, defaulting to message_chunk
func (r RawEvent) Name() string {
	if r.Event == "" {
		return EventMessageChunk
	}
	return r.Event
}

// Decode validates the event and returns its variant. It never fails;
// anything unrecognized comes back as Unknown.
func (r RawEvent) Decode() Event {
	meta := EventMeta{
		PairIndex: r.PairIndex,
		Role:      r.Role,
		ThreadID:  r.ThreadID,
		Timestamp: r.Timestamp,
	}

	if r.Error != "" || r.Event == EventErrorName {
		msg := firstNonEmpty(r.Error, r.Message, r.Content, "unknown error")
		return ErrorEvent{EventMeta: meta, Message: msg, Code: r.Code}
	}

	switch r.Name() {
	case EventUserMessage:
		if strings.TrimSpace(r.Content) == "" {
			return r.unknown(meta, errMissingContent)
		}
		return UserMessage{EventMeta: meta, Content: r.Content}

	case EventMessageChunk:
		return r.decodeChunk(meta)

	case EventToolCallChunks:
		return ToolCallChunks{EventMeta: meta}

	case EventToolCalls:
		return ToolCalls{EventMeta: meta, Calls: r.ToolCalls, FinishReason: r.FinishReason}

	case EventToolCallResult:
		if r.ToolCallID == "" {
			return r.unknown(meta, errMissingID)
		}
		return ToolCallResult{
			EventMeta:  meta,
			ToolCallID: r.ToolCallID,
			Result:     ToolResult{Content: r.Content, Payload: r.Payload},
		}

	case EventArtifact:
		if r.ArtifactType != ArtifactTodoUpdate {
			return r.unknown(meta, fmt.Errorf("unsupported artifact type %q", r.ArtifactType))
		}
		var payload TodoPayload
		if len(r.Payload) > 0 {
			if err := json.Unmarshal(r.Payload, &payload); err != nil {
				return r.unknown(meta, fmt.Errorf("invalid todo payload: %w", err))
			}
		}
		return TodoUpdate{EventMeta: meta, ArtifactID: r.ArtifactID, Payload: payload}

	case EventReplayDone:
		return ReplayDone{EventMeta: meta}

	case EventCreditUsage:
		return CreditUsage{EventMeta: meta}
	}

	return r.unknown(meta, errUnknownType)
}

func (r RawEvent) decodeChunk(meta EventMeta) Event {
	switch r.ContentType {
	case ContentReasoningSignal:
		if r.Content != SignalStart && r.Content != SignalComplete {
			return r.unknown(meta, fmt.Errorf("%w: %q", errUnknownSignal, r.Content))
		}
		return ReasoningSignal{EventMeta: meta, Signal: r.Content}
	case ContentReasoning:
		return ReasoningDelta{EventMeta: meta, Content: r.Content}
	case ContentText:
		return TextChunk{
			EventMeta:    meta,
			Content:      r.Content,
			FinishReason: r.FinishReason,
			ToolCalls:    r.ToolCalls,
		}
	case "":
		if len(r.ToolCalls) > 0 {
			return ToolCalls{EventMeta: meta, Calls: r.ToolCalls, FinishReason: r.FinishReason}
		}
	}
	return r.unknown(meta, fmt.Errorf("%w: content_type %q", errUnknownType, r.ContentType))
}

func (r RawEvent) unknown(meta EventMeta, err error) Unknown {
	return Unknown{EventMeta: meta, Name: r.Name(), Err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
