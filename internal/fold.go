package internal

// The helpers below apply one event to a private copy of a message inside
// MessageStore.Update. Order values are drawn from the caller's counter in
// the same critical section, so assignment and mutation land together.

func foldOpenReasoning(m *Message, id string, order int, closed bool) {
	m.ReasoningProcesses[id] = ReasoningProcess{
		IsReasoning:       !closed,
		ReasoningComplete: closed,
		Order:             order,
	}
	m.AppendSegment(Segment{Type: SegmentReasoning, Order: order, ReasoningID: id})
}

func foldCloseReasoning(m *Message, id string) {
	proc, ok := m.ReasoningProcesses[id]
	if !ok {
		return
	}
	proc.IsReasoning = false
	proc.ReasoningComplete = true
	m.ReasoningProcesses[id] = proc
}

func foldReasoningContent(m *Message, id, content string) bool {
	proc, ok := m.ReasoningProcesses[id]
	if !ok {
		return false
	}
	proc.Content += content
	m.ReasoningProcesses[id] = proc
	return true
}

func foldText(m *Message, content string, order int) {
	m.AppendSegment(Segment{Type: SegmentText, Order: order, Content: content})
	m.Content += content
}

// foldToolCall registers or refreshes one invocation. New calls take an
// order from next; inProgress selects the invoked state (live) or the
// awaiting-result state (replay).
func foldToolCall(m *Message, call ToolCall, next func() int, inProgress bool) {
	proc, seen := m.ToolCallProcesses[call.ID]
	if seen {
		if call.Name != "" {
			proc.ToolName = call.Name
		}
		proc.ToolCallSpec = call
		if !proc.IsComplete {
			proc.IsInProgress = inProgress
		}
		m.ToolCallProcesses[call.ID] = proc
		return
	}

	order := next()
	m.ToolCallProcesses[call.ID] = ToolCallProcess{
		ToolName:     call.Name,
		ToolCallSpec: call,
		IsInProgress: inProgress,
		Order:        order,
	}
	m.AppendSegment(Segment{Type: SegmentToolCall, Order: order, ToolCallID: call.ID})
}

// foldAwaitResults moves every unresolved call to awaitingResult
func foldAwaitResults(m *Message) {
	for id, proc := range m.ToolCallProcesses {
		if proc.IsComplete {
			continue
		}
		proc.IsInProgress = false
		m.ToolCallProcesses[id] = proc
	}
}

// foldToolResult resolves a call, synthesizing it when the invocation was
// never seen. It returns true when a process had to be synthesized.
func foldToolResult(m *Message, id string, result ToolResult, next func() int) bool {
	proc, seen := m.ToolCallProcesses[id]
	if !seen {
		order := next()
		proc = ToolCallProcess{
			ToolName:     UnknownToolName,
			ToolCallSpec: ToolCall{ID: id, Name: UnknownToolName},
			Order:        order,
		}
		m.AppendSegment(Segment{Type: SegmentToolCall, Order: order, ToolCallID: id})
	}
	r := result
	proc.ToolCallResult = &r
	proc.IsInProgress = false
	proc.IsComplete = true
	m.ToolCallProcesses[id] = proc
	return !seen
}

func foldTodo(m *Message, todoListID string, snap TodoSnapshot) {
	m.TodoListProcesses[todoListID] = snap
	m.AppendSegment(Segment{Type: SegmentTodoList, Order: snap.Order, TodoListID: todoListID})
}

func foldFailure(m *Message, errMsg, fallback string) {
	m.Error = true
	m.ErrorMessage = errMsg
	m.IsStreaming = false
	if m.Content == "" {
		m.Content = fallback
	}
}
