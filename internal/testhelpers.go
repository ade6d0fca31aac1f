package internal

import (
	"context"
	"encoding/json"
	"time"
)

// CreateTestMessages creates a folded user/assistant exchange with one of
// every segment kind
func CreateTestMessages() []Message {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	user := NewUserMessage("user-1", "Plan my week", ts)
	user.IsHistory = true

	assistant := NewAssistantPlaceholder("assistant-1", ts.Add(time.Second))
	assistant.IsHistory = true
	assistant.ReasoningProcesses["r1"] = ReasoningProcess{Content: "thinking", ReasoningComplete: true, Order: 1}
	assistant.AppendSegment(Segment{Type: SegmentReasoning, Order: 1, ReasoningID: "r1"})
	assistant.ToolCallProcesses["tc1"] = ToolCallProcess{
		ToolName:       "calendar",
		ToolCallSpec:   ToolCall{ID: "tc1", Name: "calendar", Args: json.RawMessage(`{"days":7}`)},
		ToolCallResult: &ToolResult{Content: "3 events"},
		IsComplete:     true,
		Order:          2,
	}
	assistant.AppendSegment(Segment{Type: SegmentToolCall, Order: 2, ToolCallID: "tc1"})
	assistant.TodoListProcesses["plan-0-3"] = TodoSnapshot{
		Items:   []json.RawMessage{json.RawMessage(`{"title":"gym"}`)},
		Total:   1,
		Pending: 1,
		Order:   3,
		BaseID:  "plan",
	}
	assistant.AppendSegment(Segment{Type: SegmentTodoList, Order: 3, TodoListID: "plan-0-3"})
	assistant.AppendSegment(Segment{Type: SegmentText, Order: 4, Content: "Here is your plan."})
	assistant.Content = "Here is your plan."

	return []Message{user, assistant}
}

// CreateTestTranscript creates a test transcript with sample data
func CreateTestTranscript(threadID string) *Transcript {
	transcript, err := NewNormalizer().NormalizeThread(threadID, "test-workspace", "replay", CreateTestMessages())
	if err != nil {
		panic(err)
	}
	return transcript
}

// ScriptedTransport plays a fixed list of events. It serves as both the
// live and the replay transport.
type ScriptedTransport struct {
	Events []RawEvent
	Err    error

	// Requests records every live send
	Requests []SendRequest
	// Threads records every replayed thread id
	Threads []string
	// OnEvent, if set, runs after each event is delivered
	OnEvent func(i int)
}

// Send implements LiveTransport
func (s *ScriptedTransport) Send(ctx context.Context, req SendRequest, onEvent EventHandler) error {
	s.Requests = append(s.Requests, req)
	return s.play(ctx, onEvent)
}

// Replay implements ReplayTransport
func (s *ScriptedTransport) Replay(ctx context.Context, threadID string, onEvent EventHandler) error {
	s.Threads = append(s.Threads, threadID)
	return s.play(ctx, onEvent)
}

func (s *ScriptedTransport) play(ctx context.Context, onEvent EventHandler) error {
	for i, ev := range s.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onEvent(ev); err != nil {
			return err
		}
		if s.OnEvent != nil {
			s.OnEvent(i)
		}
	}
	return s.Err
}

// MustParseEvents parses JSON events, panicking on malformed input
func MustParseEvents(lines ...string) []RawEvent {
	events := make([]RawEvent, 0, len(lines))
	for _, line := range lines {
		ev, err := ParseRawEvent([]byte(line))
		if err != nil {
			panic(err)
		}
		events = append(events, ev)
	}
	return events
}
