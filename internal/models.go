package internal

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Role identifies the speaker of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SegmentType tags a content segment
type SegmentType string

const (
	SegmentText      SegmentType = "text"
	SegmentReasoning SegmentType = "reasoning"
	SegmentToolCall  SegmentType = "tool_call"
	SegmentTodoList  SegmentType = "todo_list"
)

// UnknownToolName is used for tool calls that were only ever seen through
// their result.
const UnknownToolName = "unknown_tool"

// Segment is a positional marker in a message's rendering order. Only text
// segments carry content; the others point at a process record by id.
type Segment struct {
	Type        SegmentType `json:"type" yaml:"type"`
	Order       int         `json:"order" yaml:"order"`
	Content     string      `json:"content,omitempty" yaml:"content,omitempty"`
	ReasoningID string      `json:"reasoningId,omitempty" yaml:"reasoning_id,omitempty"`
	ToolCallID  string      `json:"toolCallId,omitempty" yaml:"tool_call_id,omitempty"`
	TodoListID  string      `json:"todoListId,omitempty" yaml:"todo_list_id,omitempty"`
}

// ReasoningProcess tracks one reasoning episode
type ReasoningProcess struct {
	Content           string `json:"content"`
	IsReasoning       bool   `json:"isReasoning"`
	ReasoningComplete bool   `json:"reasoningComplete"`
	Order             int    `json:"order"`
}

// ToolCall is the opaque invocation spec reported by the model
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolResult is the payload of a tool_call_result event
type ToolResult struct {
	Content string          `json:"content,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ToolCallProcess tracks one tool invocation.
//
//	invoked:        InProgress=true,  Complete=false
//	awaitingResult: InProgress=false, Complete=false
//	resolved:       InProgress=false, Complete=true
type ToolCallProcess struct {
	ToolName       string      `json:"toolName"`
	ToolCallSpec   ToolCall    `json:"toolCallSpec"`
	ToolCallResult *ToolResult `json:"toolCallResult,omitempty"`
	IsInProgress   bool        `json:"isInProgress"`
	IsComplete     bool        `json:"isComplete"`
	Order          int         `json:"order"`
}

// ToolCallState names the state of a tool call process
type ToolCallState string

const (
	ToolCallInvoked        ToolCallState = "invoked"
	ToolCallAwaitingResult ToolCallState = "awaitingResult"
	ToolCallResolved       ToolCallState = "resolved"
)

// State derives the named state from the flags
func (p ToolCallProcess) State() ToolCallState {
	switch {
	case p.IsComplete:
		return ToolCallResolved
	case p.IsInProgress:
		return ToolCallInvoked
	default:
		return ToolCallAwaitingResult
	}
}

// TodoPayload is the structured-list payload of a todo_update artifact
type TodoPayload struct {
	Todos      []json.RawMessage `json:"todos"`
	Total      int               `json:"total"`
	Completed  int               `json:"completed"`
	InProgress int               `json:"in_progress"`
	Pending    int               `json:"pending"`
}

// TodoSnapshot is one immutable snapshot of a structured list. Repeated
// updates of the same list share BaseID and each get their own snapshot.
type TodoSnapshot struct {
	Items      []json.RawMessage `json:"items"`
	Total      int               `json:"total"`
	Completed  int               `json:"completed"`
	InProgress int               `json:"in_progress"`
	Pending    int               `json:"pending"`
	Order      int               `json:"order"`
	BaseID     string            `json:"baseId"`
}

// Message is one conversation turn's contribution from one speaker
type Message struct {
	ID                 string                      `json:"id"`
	Role               Role                        `json:"role"`
	Content            string                      `json:"content"`
	ContentType        string                      `json:"contentType,omitempty"`
	Timestamp          time.Time                   `json:"timestamp"`
	IsStreaming        bool                        `json:"isStreaming"`
	IsHistory          bool                        `json:"isHistory"`
	Error              bool                        `json:"error"`
	ErrorMessage       string                      `json:"errorMessage,omitempty"`
	ContentSegments    []Segment                   `json:"contentSegments"`
	ReasoningProcesses map[string]ReasoningProcess `json:"reasoningProcesses"`
	ToolCallProcesses  map[string]ToolCallProcess  `json:"toolCallProcesses"`
	TodoListProcesses  map[string]TodoSnapshot     `json:"todoListProcesses"`
}

// NewID returns a fresh unique identifier
func NewID() string {
	return uuid.NewString()
}

// NewUserMessage creates a user message with the given text
func NewUserMessage(id, content string, ts time.Time) Message {
	msg := newMessage(id, RoleUser, ts)
	msg.Content = content
	msg.ContentType = "text"
	return msg
}

// NewAssistantPlaceholder creates an empty assistant message
func NewAssistantPlaceholder(id string, ts time.Time) Message {
	msg := newMessage(id, RoleAssistant, ts)
	msg.ContentType = "text"
	return msg
}

func newMessage(id string, role Role, ts time.Time) Message {
	return Message{
		ID:                 id,
		Role:               role,
		Timestamp:          ts,
		ContentSegments:    []Segment{},
		ReasoningProcesses: map[string]ReasoningProcess{},
		ToolCallProcesses:  map[string]ToolCallProcess{},
		TodoListProcesses:  map[string]TodoSnapshot{},
	}
}

// Clone returns a deep copy. Raw JSON payloads are shared since they are
// never mutated after decode.
func (m Message) Clone() Message {
	out := m
	out.ContentSegments = append([]Segment(nil), m.ContentSegments...)
	if out.ContentSegments == nil {
		out.ContentSegments = []Segment{}
	}

	out.ReasoningProcesses = make(map[string]ReasoningProcess, len(m.ReasoningProcesses))
	for id, p := range m.ReasoningProcesses {
		out.ReasoningProcesses[id] = p
	}

	out.ToolCallProcesses = make(map[string]ToolCallProcess, len(m.ToolCallProcesses))
	for id, p := range m.ToolCallProcesses {
		if p.ToolCallResult != nil {
			result := *p.ToolCallResult
			p.ToolCallResult = &result
		}
		out.ToolCallProcesses[id] = p
	}

	out.TodoListProcesses = make(map[string]TodoSnapshot, len(m.TodoListProcesses))
	for id, s := range m.TodoListProcesses {
		s.Items = append([]json.RawMessage(nil), s.Items...)
		out.TodoListProcesses[id] = s
	}
	return out
}

// AppendSegment appends a segment, keeping ContentSegments sorted by order
func (m *Message) AppendSegment(seg Segment) {
	m.ContentSegments = append(m.ContentSegments, seg)
	n := len(m.ContentSegments)
	if n > 1 && m.ContentSegments[n-2].Order > seg.Order {
		sort.SliceStable(m.ContentSegments, func(i, j int) bool {
			return m.ContentSegments[i].Order < m.ContentSegments[j].Order
		})
	}
}

// HasTodoSegment reports whether a todo_list segment with this id exists
func (m Message) HasTodoSegment(todoListID string) bool {
	for _, seg := range m.ContentSegments {
		if seg.Type == SegmentTodoList && seg.TodoListID == todoListID {
			return true
		}
	}
	return false
}

// SegmentsOfType counts the segments of the given type
func (m Message) SegmentsOfType(t SegmentType) int {
	n := 0
	for _, seg := range m.ContentSegments {
		if seg.Type == t {
			n++
		}
	}
	return n
}

// snapshotFromPayload builds a snapshot from an artifact payload
func snapshotFromPayload(p TodoPayload, order int, baseID string) TodoSnapshot {
	return TodoSnapshot{
		Items:      append([]json.RawMessage(nil), p.Todos...),
		Total:      p.Total,
		Completed:  p.Completed,
		InProgress: p.InProgress,
		Pending:    p.Pending,
		Order:      order,
		BaseID:     baseID,
	}
}
