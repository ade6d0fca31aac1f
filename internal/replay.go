package internal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ReplayConfig wires a ReplayReconciler to the session state it folds into
type ReplayConfig struct {
	Store       *MessageStore
	Recent      *RecentlySent
	Threads     ThreadStore
	WorkspaceID string
	ThreadID    string
	Card        TodoCard

	// Turns maps the pair index of every turn an earlier replay of the
	// same thread already folded to its assistant message id
	Turns map[int]string
}

// ReplayReconciler folds the full event log of one thread into the message
// list, creating a user/assistant pair for every turn it sees. Turns the
// client itself just sent are attached to the messages already shown.
type ReplayReconciler struct {
	store       *MessageStore
	recent      *RecentlySent
	threads     ThreadStore
	workspaceID string
	threadID    string
	card        TodoCard
	newID       func() string
	now         func() time.Time

	pairs      map[int]*PairState
	attached   map[string]bool
	active     *PairState
	last       *PairState
	insertAt   int
	latestTodo *TodoSnapshot
	abandoned  atomic.Bool
}

// NewReplayReconciler creates a reconciler for one replay attempt
func NewReplayReconciler(cfg ReplayConfig) *ReplayReconciler {
	if cfg.Recent == nil {
		cfg.Recent = NewRecentlySent(DefaultRecentWindow)
	}
	if cfg.Card == nil {
		cfg.Card = noopCard{}
	}
	r := &ReplayReconciler{
		store:       cfg.Store,
		recent:      cfg.Recent,
		threads:     cfg.Threads,
		workspaceID: cfg.WorkspaceID,
		threadID:    cfg.ThreadID,
		card:        cfg.Card,
		newID:       NewID,
		now:         time.Now,
		pairs:       make(map[int]*PairState),
		attached:    make(map[string]bool),
		insertAt:    cfg.Store.HistoryPrefixLen(),
	}
	for idx, assistantID := range cfg.Turns {
		if !cfg.Store.Has(assistantID) {
			continue
		}
		pair := newPairState(idx, assistantID)
		pair.Settled = true
		r.pairs[idx] = pair
		r.attached[assistantID] = true
	}
	return r
}

// ThreadID returns the thread being replayed. It changes if the log ends
// with a replay_done carrying a new id.
func (r *ReplayReconciler) ThreadID() string {
	return r.threadID
}

// Turns returns the assistant message id of every turn known to this
// replay, keyed by pair index
func (r *ReplayReconciler) Turns() map[int]string {
	turns := make(map[int]string, len(r.pairs))
	for idx, pair := range r.pairs {
		turns[idx] = pair.AssistantID
	}
	return turns
}

// Abandon suppresses every further update. Updates already applied stay.
func (r *ReplayReconciler) Abandon() {
	r.abandoned.Store(true)
}

// Abandoned reports whether Abandon was called
func (r *ReplayReconciler) Abandoned() bool {
	return r.abandoned.Load()
}

// Run drives the transport over the thread's log. An unknown thread is
// empty history and returns nil. Other failures come back as *ReplayError.
func (r *ReplayReconciler) Run(ctx context.Context, transport ReplayTransport) error {
	err := transport.Replay(ctx, r.threadID, func(raw RawEvent) error {
		if r.Abandoned() {
			return ErrReplayAbandoned
		}
		r.HandleRaw(raw)
		return nil
	})

	switch {
	case r.Abandoned() || errors.Is(err, ErrReplayAbandoned):
		LogWarn("replay [%s]: abandoned", r.threadID)
		return ErrReplayAbandoned
	case errors.Is(err, ErrThreadNotFound):
		LogDebug("replay [%s]: no history yet", r.threadID)
		return nil
	case err != nil:
		LogError("replay [%s]: %v", r.threadID, err)
		return &ReplayError{ThreadID: r.threadID, Err: err}
	}

	if r.latestTodo != nil {
		r.card.UpdateTodoListCard(*r.latestTodo, true)
	}
	LogDebug("replay [%s]: folded %d turns", r.threadID, len(r.pairs))
	return nil
}

// HandleRaw decodes and processes one wire event
func (r *ReplayReconciler) HandleRaw(raw RawEvent) bool {
	ev := raw.Decode()
	if chunk, ok := ev.(TextChunk); ok && chunk.DefersToTools() && len(chunk.ToolCalls) > 0 {
		ev = ToolCalls{
			EventMeta:    chunk.EventMeta,
			Calls:        chunk.ToolCalls,
			FinishReason: chunk.FinishReason,
		}
	}
	return r.Process(ev)
}

// Process folds one decoded event and reports whether it changed state
func (r *ReplayReconciler) Process(ev Event) bool {
	if r.Abandoned() {
		return false
	}

	if idx, ok := ev.Meta().Pair(); ok {
		if pair := r.pairs[idx]; pair != nil {
			r.active = pair
		}
	}

	switch e := ev.(type) {
	case UserMessage:
		return r.handleUserMessage(e)
	case ReasoningSignal, ReasoningDelta, TextChunk:
		return r.handleChunk(ev)
	case ToolCalls:
		return r.handleToolCalls(e)
	case ToolCallResult:
		return r.handleToolResult(e)
	case TodoUpdate:
		return r.handleTodo(e)
	case ReplayDone:
		return r.handleDone(e)
	case ToolCallChunks:
		LogDebug("replay [%s]: ignoring tool_call_chunks", r.threadID)
		return false
	case CreditUsage:
		return false
	case ErrorEvent:
		LogWarn("replay [%s]: error event in log: %s", r.threadID, e.Message)
		return false
	case Unknown:
		LogDebug("replay [%s]: ignoring %v", r.threadID, &EventError{Source: "replay", Kind: e.Name, Err: e.Err})
		return false
	default:
		LogDebug("replay [%s]: ignoring %s event", r.threadID, ev.Kind())
		return false
	}
}

func (r *ReplayReconciler) handleUserMessage(e UserMessage) bool {
	idx, ok := e.Pair()
	if !ok {
		LogDebug("replay [%s]: user_message without pair_index", r.threadID)
		return false
	}
	if _, seen := r.pairs[idx]; seen {
		return false
	}

	if assistantID, ok := r.liveTurnFor(e.Content); ok {
		pair := newPairState(idx, assistantID)
		pair.AttachedToLive = true
		r.attached[assistantID] = true
		r.register(pair)
		LogDebug("replay [%s]: turn %d attached to %s", r.threadID, idx, assistantID)
		return true
	}

	ts := parseEventTime(e.Timestamp, r.now)
	user := NewUserMessage(r.newID(), e.Content, ts)
	user.IsHistory = true
	assistant := NewAssistantPlaceholder(r.newID(), ts)
	assistant.IsHistory = true

	r.insertAt += r.store.Insert(r.insertAt, user, assistant)
	r.register(newPairState(idx, assistant.ID))
	return true
}

// liveTurnFor finds the assistant message already showing a turn this
// client just sent: the streaming message, or the one following the sent
// user message once streaming has ended.
func (r *ReplayReconciler) liveTurnFor(content string) (string, bool) {
	entry, ok := r.recent.Lookup(content)
	if !ok {
		return "", false
	}
	if live, ok := r.store.Streaming(); ok && !r.attached[live.ID] {
		return live.ID, true
	}
	if entry.MessageID == "" {
		return "", false
	}
	if user, ok := r.store.Get(entry.MessageID); !ok || user.Role != RoleUser {
		return "", false
	}
	next, ok := r.store.Next(entry.MessageID)
	if !ok || next.Role != RoleAssistant || r.attached[next.ID] {
		return "", false
	}
	return next.ID, true
}

func (r *ReplayReconciler) register(pair *PairState) {
	r.pairs[pair.PairIndex] = pair
	r.active = pair
	r.last = pair
}

// pairFor returns the known turn an event is tagged with
func (r *ReplayReconciler) pairFor(ev Event) (*PairState, bool) {
	idx, ok := ev.Meta().Pair()
	if !ok {
		return nil, false
	}
	pair, ok := r.pairs[idx]
	if !ok {
		LogDebug("replay [%s]: %s for unknown turn %d", r.threadID, ev.Kind(), idx)
	}
	return pair, ok
}

func (r *ReplayReconciler) handleChunk(ev Event) bool {
	if ev.Meta().Role != string(RoleAssistant) {
		LogDebug("replay [%s]: %s chunk with role %q", r.threadID, ev.Kind(), ev.Meta().Role)
		return false
	}
	pair, ok := r.pairFor(ev)
	if !ok || !pair.folds() {
		return false
	}

	switch e := ev.(type) {
	case ReasoningSignal:
		if e.Signal == SignalComplete {
			pair.OpenReasoningID = ""
			return true
		}
		id := r.newID()
		pair.OpenReasoningID = id
		return r.update(pair, func(m *Message) {
			foldOpenReasoning(m, id, pair.Order.Next(), true)
		})

	case ReasoningDelta:
		if e.Content == "" || pair.OpenReasoningID == "" {
			return false
		}
		id := pair.OpenReasoningID
		handled := false
		r.update(pair, func(m *Message) {
			handled = foldReasoningContent(m, id, e.Content)
		})
		return handled

	case TextChunk:
		if e.DefersToTools() {
			return false
		}
		if e.Content == "" {
			return e.FinishReason != ""
		}
		return r.update(pair, func(m *Message) {
			foldText(m, e.Content, pair.Order.Next())
		})
	}
	return false
}

func (r *ReplayReconciler) handleToolCalls(e ToolCalls) bool {
	pair, ok := r.pairFor(e)
	if !ok {
		if _, tagged := e.Pair(); !tagged {
			LogDebug("replay [%s]: tool_calls without pair_index", r.threadID)
		}
		return false
	}
	if !pair.folds() {
		return false
	}

	calls := make([]ToolCall, 0, len(e.Calls))
	for _, call := range e.Calls {
		if call.ID != "" {
			calls = append(calls, call)
		}
	}
	if len(calls) == 0 {
		return false
	}

	ok = r.update(pair, func(m *Message) {
		for _, call := range calls {
			foldToolCall(m, call, pair.Order.Next, false)
		}
		if e.FinishReason == FinishToolCalls {
			foldAwaitResults(m)
		}
	})
	pair.AwaitingToolCallID = calls[len(calls)-1].ID
	return ok
}

func (r *ReplayReconciler) handleToolResult(e ToolCallResult) bool {
	pair, ok := r.pairFor(e)
	if !ok {
		if _, tagged := e.Pair(); !tagged {
			LogDebug("replay [%s]: tool_call_result without pair_index", r.threadID)
		}
		return false
	}
	if !pair.folds() {
		return false
	}

	ok = r.update(pair, func(m *Message) {
		foldToolResult(m, e.ToolCallID, e.Result, pair.Order.Next)
	})
	if pair.AwaitingToolCallID == e.ToolCallID {
		pair.AwaitingToolCallID = ""
	}
	return ok
}

// handleTodo routes an artifact to its tagged turn, else the active turn,
// else the most recently registered one.
func (r *ReplayReconciler) handleTodo(e TodoUpdate) bool {
	pair, ok := r.pairFor(e)
	if !ok {
		pair = r.active
	}
	if pair == nil {
		pair = r.last
	}
	if pair == nil {
		LogDebug("replay [%s]: todo_update before any turn", r.threadID)
		return false
	}
	r.active = pair
	if !pair.folds() {
		return false
	}

	baseID := e.ArtifactID
	if baseID == "" {
		baseID = "todo"
	}

	var snap TodoSnapshot
	added := false
	r.update(pair, func(m *Message) {
		order := pair.Order.Peek()
		todoListID := fmt.Sprintf("%s-%d-%d", baseID, pair.PairIndex, order)
		if m.HasTodoSegment(todoListID) {
			LogDebug("replay [%s]: todo segment %s already present", r.threadID, todoListID)
			return
		}
		pair.Order.Next()
		snap = snapshotFromPayload(e.Payload, order, baseID)
		foldTodo(m, todoListID, snap)
		added = true
	})
	if added {
		r.latestTodo = &snap
	}
	return added
}

func (r *ReplayReconciler) handleDone(e ReplayDone) bool {
	id := e.ThreadID
	if id == "" || id == PlaceholderThreadID || id == r.threadID {
		return false
	}
	LogInfo("replay: adopting thread %s (was %q)", id, r.threadID)
	r.threadID = id
	if r.threads != nil {
		if err := r.threads.Set(r.workspaceID, id); err != nil {
			LogWarn("replay: failed to persist thread id: %v", err)
		}
	}
	return true
}

func (r *ReplayReconciler) update(pair *PairState, fn func(m *Message)) bool {
	ok := r.store.Update(pair.AssistantID, func(m Message) Message {
		fn(&m)
		return m
	})
	if !ok {
		LogDebug("replay [%s]: turn %d message %s gone", r.threadID, pair.PairIndex, pair.AssistantID)
	}
	return ok
}

// parseEventTime reads an RFC 3339 event timestamp, falling back to now
func parseEventTime(ts string, now func() time.Time) time.Time {
	if ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
	}
	return now()
}
