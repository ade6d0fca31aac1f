package internal

// LiveProcessor folds the events of one in-flight generation into its
// assistant message. It owns the message's order counter for the duration
// of the send and is discarded when the send finishes.
type LiveProcessor struct {
	store             *MessageStore
	messageID         string
	isNewConversation bool
	card              TodoCard
	newID             func() string

	order              OrderCounter
	openReasoningID    string
	awaitingToolCallID string
}

// NewLiveProcessor creates a processor for the assistant message messageID,
// which must already be in the store. isNewConversation is forwarded to the
// card on every structured-list update.
func NewLiveProcessor(store *MessageStore, messageID string, isNewConversation bool, card TodoCard) *LiveProcessor {
	if card == nil {
		card = noopCard{}
	}
	return &LiveProcessor{
		store:             store,
		messageID:         messageID,
		isNewConversation: isNewConversation,
		card:              card,
		newID:             NewID,
	}
}

// MessageID returns the assistant message this processor writes to
func (p *LiveProcessor) MessageID() string {
	return p.messageID
}

// AwaitingToolCall returns the id of the most recent unresolved tool call
func (p *LiveProcessor) AwaitingToolCall() string {
	return p.awaitingToolCallID
}

// HandleRaw decodes and processes one wire event. A text chunk that only
// hands off to the tool path is redispatched as a tool_calls event when it
// carries the calls itself.
func (p *LiveProcessor) HandleRaw(raw RawEvent) bool {
	ev := raw.Decode()
	if chunk, ok := ev.(TextChunk); ok && chunk.DefersToTools() && len(chunk.ToolCalls) > 0 {
		ev = ToolCalls{
			EventMeta:    chunk.EventMeta,
			Calls:        chunk.ToolCalls,
			FinishReason: chunk.FinishReason,
		}
	}
	return p.Process(ev)
}

// Process folds one decoded event and reports whether it was handled
func (p *LiveProcessor) Process(ev Event) bool {
	switch e := ev.(type) {
	case ReasoningSignal:
		return p.handleReasoningSignal(e)
	case ReasoningDelta:
		return p.handleReasoningDelta(e)
	case TextChunk:
		return p.handleText(e)
	case ToolCalls:
		return p.handleToolCalls(e)
	case ToolCallResult:
		return p.handleToolResult(e)
	case TodoUpdate:
		return p.handleTodo(e)
	case ErrorEvent:
		p.Fail(e.Message, e.Message)
		return true
	case ToolCallChunks:
		LogDebug("live [%s]: ignoring tool_call_chunks", p.messageID)
		return false
	case CreditUsage:
		return false
	case Unknown:
		LogDebug("live [%s]: ignoring %v", p.messageID, &EventError{Source: "live", Kind: e.Name, Err: e.Err})
		return false
	default:
		LogDebug("live [%s]: ignoring %s event", p.messageID, ev.Kind())
		return false
	}
}

func (p *LiveProcessor) handleReasoningSignal(e ReasoningSignal) bool {
	switch e.Signal {
	case SignalStart:
		prev := p.openReasoningID
		id := p.newID()
		p.openReasoningID = id
		p.update(func(m *Message) {
			if prev != "" {
				foldCloseReasoning(m, prev)
			}
			foldOpenReasoning(m, id, p.order.Next(), false)
		})
	case SignalComplete:
		if p.openReasoningID == "" {
			return true
		}
		id := p.openReasoningID
		p.openReasoningID = ""
		p.update(func(m *Message) {
			foldCloseReasoning(m, id)
		})
	}
	return true
}

func (p *LiveProcessor) handleReasoningDelta(e ReasoningDelta) bool {
	if e.Content == "" || p.openReasoningID == "" {
		return false
	}
	id := p.openReasoningID
	handled := false
	p.update(func(m *Message) {
		handled = foldReasoningContent(m, id, e.Content)
	})
	return handled
}

func (p *LiveProcessor) handleText(e TextChunk) bool {
	if e.DefersToTools() {
		return false
	}
	if e.Content == "" {
		if e.FinishReason == "" {
			return false
		}
		p.update(func(m *Message) {
			m.IsStreaming = false
		})
		return true
	}
	p.update(func(m *Message) {
		foldText(m, e.Content, p.order.Next())
		m.IsStreaming = true
	})
	return true
}

func (p *LiveProcessor) handleToolCalls(e ToolCalls) bool {
	handoff := e.FinishReason == FinishToolCalls
	calls := make([]ToolCall, 0, len(e.Calls))
	for _, call := range e.Calls {
		if call.ID == "" {
			LogDebug("live [%s]: skipping tool call without id", p.messageID)
			continue
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 && !handoff {
		return false
	}

	p.update(func(m *Message) {
		for _, call := range calls {
			foldToolCall(m, call, p.order.Next, true)
		}
		if handoff {
			foldAwaitResults(m)
		}
	})
	if len(calls) > 0 {
		p.awaitingToolCallID = calls[len(calls)-1].ID
	}
	return true
}

func (p *LiveProcessor) handleToolResult(e ToolCallResult) bool {
	synthesized := false
	p.update(func(m *Message) {
		synthesized = foldToolResult(m, e.ToolCallID, e.Result, p.order.Next)
	})
	if synthesized {
		LogDebug("live [%s]: result for unseen tool call %s", p.messageID, e.ToolCallID)
	}
	if p.awaitingToolCallID == e.ToolCallID {
		p.awaitingToolCallID = ""
	}
	return true
}

func (p *LiveProcessor) handleTodo(e TodoUpdate) bool {
	baseID := e.ArtifactID
	if baseID == "" {
		baseID = "todo"
	}
	todoListID := baseID + "-" + p.newID()

	var snap TodoSnapshot
	ok := p.update(func(m *Message) {
		snap = snapshotFromPayload(e.Payload, p.order.Next(), baseID)
		foldTodo(m, todoListID, snap)
	})
	if ok {
		p.card.UpdateTodoListCard(snap, p.isNewConversation)
	}
	return ok
}

// Finish marks the message as no longer streaming and closes any reasoning
// episode left open. The session calls it once the transport returns.
func (p *LiveProcessor) Finish() {
	open := p.openReasoningID
	p.openReasoningID = ""
	p.update(func(m *Message) {
		if open != "" {
			foldCloseReasoning(m, open)
		}
		m.IsStreaming = false
	})
}

// Fail marks the message as failed. fallback becomes the content when
// nothing was received.
func (p *LiveProcessor) Fail(errMsg, fallback string) {
	p.update(func(m *Message) {
		foldFailure(m, errMsg, fallback)
	})
}

func (p *LiveProcessor) update(fn func(m *Message)) bool {
	ok := p.store.Update(p.messageID, func(m Message) Message {
		fn(&m)
		return m
	})
	if !ok {
		LogDebug("live: message %s no longer in store", p.messageID)
	}
	return ok
}
