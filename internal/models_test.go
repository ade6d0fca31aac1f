package internal

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessage_Clone_IsDeep(t *testing.T) {
	msg := NewAssistantPlaceholder("a1", time.Now())
	msg.AppendSegment(Segment{Type: SegmentText, Order: 1, Content: "Hi"})
	msg.ToolCallProcesses["tc1"] = ToolCallProcess{
		ToolName:       "search",
		ToolCallResult: &ToolResult{Content: "ok"},
		Order:          2,
	}
	msg.TodoListProcesses["todo-1"] = TodoSnapshot{Items: []json.RawMessage{json.RawMessage(`{"a":1}`)}}

	clone := msg.Clone()
	clone.ContentSegments[0].Content = "changed"
	clone.ToolCallProcesses["tc1"].ToolCallResult.Content = "changed"
	clone.ReasoningProcesses["r1"] = ReasoningProcess{Content: "x"}
	snap := clone.TodoListProcesses["todo-1"]
	snap.Items[0] = json.RawMessage(`{"b":2}`)

	if msg.ContentSegments[0].Content != "Hi" {
		t.Error("Clone() shares segment slice with original")
	}
	if msg.ToolCallProcesses["tc1"].ToolCallResult.Content != "ok" {
		t.Error("Clone() shares tool result pointer with original")
	}
	if _, ok := msg.ReasoningProcesses["r1"]; ok {
		t.Error("Clone() shares reasoning map with original")
	}
	if string(msg.TodoListProcesses["todo-1"].Items[0]) != `{"a":1}` {
		t.Error("Clone() shares snapshot items with original")
	}
}

func TestMessage_AppendSegment_KeepsOrder(t *testing.T) {
	msg := NewAssistantPlaceholder("a1", time.Now())
	msg.AppendSegment(Segment{Type: SegmentText, Order: 1})
	msg.AppendSegment(Segment{Type: SegmentText, Order: 3})
	msg.AppendSegment(Segment{Type: SegmentToolCall, Order: 2})

	for i := 1; i < len(msg.ContentSegments); i++ {
		if msg.ContentSegments[i-1].Order >= msg.ContentSegments[i].Order {
			t.Fatalf("segments not ordered: %+v", msg.ContentSegments)
		}
	}
}

func TestToolCallProcess_State(t *testing.T) {
	tests := []struct {
		name string
		proc ToolCallProcess
		want ToolCallState
	}{
		{"invoked", ToolCallProcess{IsInProgress: true}, ToolCallInvoked},
		{"awaiting", ToolCallProcess{}, ToolCallAwaitingResult},
		{"resolved", ToolCallProcess{IsComplete: true}, ToolCallResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.proc.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessage_SegmentHelpers(t *testing.T) {
	msg := NewAssistantPlaceholder("a1", time.Now())
	msg.AppendSegment(Segment{Type: SegmentTodoList, Order: 1, TodoListID: "todo-1"})
	msg.AppendSegment(Segment{Type: SegmentTodoList, Order: 2, TodoListID: "todo-2"})
	msg.AppendSegment(Segment{Type: SegmentText, Order: 3, Content: "done"})

	if got := msg.SegmentsOfType(SegmentTodoList); got != 2 {
		t.Errorf("SegmentsOfType(todo_list) = %d, want 2", got)
	}
	if !msg.HasTodoSegment("todo-2") {
		t.Error("HasTodoSegment(todo-2) = false, want true")
	}
	if msg.HasTodoSegment("todo-3") {
		t.Error("HasTodoSegment(todo-3) = true, want false")
	}
}
