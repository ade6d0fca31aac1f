package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iksnae/chatfold/testutil"
)

type replayFixture struct {
	store   *MessageStore
	recent  *RecentlySent
	threads *MemoryThreadStore
	card    *LatestTodoCard
}

func newReplayFixture() *replayFixture {
	return &replayFixture{
		store:   NewMessageStore(),
		recent:  NewRecentlySent(time.Minute),
		threads: NewMemoryThreadStore(),
		card:    &LatestTodoCard{},
	}
}

func (f *replayFixture) reconciler(threadID string) *ReplayReconciler {
	return NewReplayReconciler(ReplayConfig{
		Store:       f.store,
		Recent:      f.recent,
		Threads:     f.threads,
		WorkspaceID: "ws",
		ThreadID:    threadID,
		Card:        f.card,
	})
}

func (f *replayFixture) run(t *testing.T, threadID string, lines ...string) *ReplayReconciler {
	t.Helper()
	r := f.reconciler(threadID)
	err := r.Run(context.Background(), &ScriptedTransport{Events: MustParseEvents(lines...)})
	require.NoError(t, err)
	return r
}

func TestReplayReconciler_SampleLog(t *testing.T) {
	f := newReplayFixture()
	r := f.run(t, "", testutil.SampleEventLog...)

	msgs := f.store.List()
	require.Len(t, msgs, 4)
	for _, msg := range msgs {
		require.True(t, msg.IsHistory)
		require.False(t, msg.IsStreaming)
	}

	require.Equal(t, RoleUser, msgs[0].Role)
	require.Equal(t, "Plan my week", msgs[0].Content)
	require.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), msgs[0].Timestamp.UTC())

	first := msgs[1]
	require.Equal(t, RoleAssistant, first.Role)
	require.Equal(t, "Here is your plan.", first.Content)
	types := make([]SegmentType, 0, len(first.ContentSegments))
	for _, seg := range first.ContentSegments {
		types = append(types, seg.Type)
	}
	require.Equal(t, []SegmentType{SegmentReasoning, SegmentToolCall, SegmentTodoList, SegmentText}, types)

	reasoning := first.ReasoningProcesses[first.ContentSegments[0].ReasoningID]
	require.Equal(t, "Check the calendar.", reasoning.Content)
	require.False(t, reasoning.IsReasoning)
	require.True(t, reasoning.ReasoningComplete)
	require.Equal(t, ToolCallResolved, first.ToolCallProcesses["tc1"].State())
	require.Contains(t, first.TodoListProcesses, "plan-0-3")

	require.Equal(t, "Thanks", msgs[2].Content)
	require.Equal(t, "Any time.", msgs[3].Content)

	// replay_done adopts and persists the thread id
	require.Equal(t, "thread-1", r.ThreadID())
	stored, _ := f.threads.Get("ws")
	require.Equal(t, "thread-1", stored)

	// The latest snapshot is pushed once the replay completes
	latest, ok := f.card.Latest()
	require.True(t, ok)
	require.Equal(t, "plan", latest.BaseID)
	replaced, _ := f.card.Counts()
	require.Equal(t, 1, replaced)
}

func TestReplayReconciler_AttachesToStreamingMessage(t *testing.T) {
	f := newReplayFixture()
	now := time.Now()
	f.store.Append(NewUserMessage("live-user", "Hello", now))
	live := NewAssistantPlaceholder("live-assistant", now)
	live.IsStreaming = true
	live.Content = "Hi"
	f.store.Append(live)
	f.recent.Track("Hello", now, "live-user")

	f.run(t, "thread-1",
		`{"event":"user_message","pair_index":0,"content":"Hello"}`,
		`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"text","content":"Hi"}`,
		`{"event":"tool_calls","pair_index":0,"tool_calls":[{"id":"tc1","name":"x"}]}`,
	)

	msgs := f.store.List()
	require.Len(t, msgs, 2)
	got, _ := f.store.Get("live-assistant")
	require.Equal(t, "Hi", got.Content)
	require.Empty(t, got.ContentSegments)
	require.Empty(t, got.ToolCallProcesses)
}

func TestReplayReconciler_AttachesAfterStreamingEnded(t *testing.T) {
	f := newReplayFixture()
	now := time.Now()
	f.store.Append(NewUserMessage("live-user", "Hello", now), NewAssistantPlaceholder("live-assistant", now))
	f.recent.Track("Hello", now, "live-user")

	f.run(t, "thread-1",
		`{"event":"user_message","pair_index":0,"content":"  Hello "}`,
		`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"text","content":"Hi"}`,
	)

	require.Equal(t, 2, f.store.Len())
}

func TestReplayReconciler_RepeatedContentAttachesOnce(t *testing.T) {
	f := newReplayFixture()
	now := time.Now()
	f.store.Append(NewUserMessage("live-user", "Hello", now), NewAssistantPlaceholder("live-assistant", now))
	f.recent.Track("Hello", now, "live-user")

	f.run(t, "thread-1",
		`{"event":"user_message","pair_index":0,"content":"Hello"}`,
		`{"event":"user_message","pair_index":1,"content":"Hello"}`,
	)

	require.Equal(t, 4, f.store.Len())
}

func TestReplayReconciler_InsertsBeforeLiveMessages(t *testing.T) {
	f := newReplayFixture()
	f.store.Append(NewUserMessage("new-user", "fresh", time.Now()))

	f.run(t, "thread-1",
		`{"event":"user_message","pair_index":0,"content":"one"}`,
		`{"event":"user_message","pair_index":1,"content":"two"}`,
	)

	msgs := f.store.List()
	require.Len(t, msgs, 5)
	require.Equal(t, "one", msgs[0].Content)
	require.Equal(t, RoleAssistant, msgs[1].Role)
	require.Equal(t, "two", msgs[2].Content)
	require.Equal(t, "fresh", msgs[4].Content)
}

func TestReplayReconciler_ArtifactRouting(t *testing.T) {
	f := newReplayFixture()
	f.run(t, "thread-1",
		`{"event":"artifact","artifact_type":"todo_update","artifact_id":"early","payload":{"total":1}}`,
		`{"event":"user_message","pair_index":0,"content":"a"}`,
		`{"event":"user_message","pair_index":1,"content":"b"}`,
		`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"text","content":"zero"}`,
		`{"event":"artifact","artifact_type":"todo_update","artifact_id":"plan","payload":{"total":2}}`,
		`{"event":"artifact","artifact_type":"todo_update","artifact_id":"plan","payload":{"total":2,"completed":1}}`,
		`{"event":"artifact","pair_index":1,"artifact_type":"todo_update","artifact_id":"plan","payload":{"total":3}}`,
	)

	msgs := f.store.List()
	require.Len(t, msgs, 4)

	turn0 := msgs[1]
	require.Equal(t, 2, turn0.SegmentsOfType(SegmentTodoList))
	require.Len(t, turn0.TodoListProcesses, 2)
	require.Contains(t, turn0.TodoListProcesses, "plan-0-2")
	require.Contains(t, turn0.TodoListProcesses, "plan-0-3")

	turn1 := msgs[3]
	require.Equal(t, 1, turn1.SegmentsOfType(SegmentTodoList))
	require.Equal(t, 3, turn1.TodoListProcesses["plan-1-1"].Total)

	latest, _ := f.card.Latest()
	require.Equal(t, 3, latest.Total)
}

func TestReplayReconciler_ArtifactFallsBackToLastTurn(t *testing.T) {
	f := newReplayFixture()
	r := f.reconciler("thread-1")

	r.HandleRaw(MustParseEvents(`{"event":"user_message","pair_index":0,"content":"a"}`)[0])
	r.active = nil
	require.True(t, r.HandleRaw(MustParseEvents(
		`{"event":"artifact","artifact_type":"todo_update","artifact_id":"plan","payload":{"total":1}}`)[0]))

	msgs := f.store.List()
	require.Equal(t, 1, msgs[1].SegmentsOfType(SegmentTodoList))
}

func TestReplayReconciler_IgnoresUnroutable(t *testing.T) {
	f := newReplayFixture()
	r := f.reconciler("thread-1")

	require.True(t, r.HandleRaw(MustParseEvents(`{"event":"user_message","pair_index":0,"content":"a"}`)[0]))

	for _, line := range []string{
		`{"event":"user_message","content":"no pair"}`,
		`{"event":"user_message","pair_index":0,"content":"already registered"}`,
		`{"event":"message_chunk","pair_index":0,"role":"user","content_type":"text","content":"wrong role"}`,
		`{"event":"message_chunk","pair_index":0,"content_type":"text","content":"no role"}`,
		`{"event":"message_chunk","pair_index":7,"role":"assistant","content_type":"text","content":"unknown turn"}`,
		`{"event":"tool_calls","tool_calls":[{"id":"tc1","name":"x"}]}`,
		`{"event":"tool_call_result","tool_call_id":"tc1"}`,
		`{"event":"tool_call_chunks","pair_index":0}`,
		`{"event":"credit_usage","pair_index":0}`,
		`{"event":"error","message":"in the log"}`,
		`{"event":"mystery"}`,
		`{"event":"replay_done","thread_id":"__default__"}`,
		`{"event":"replay_done","thread_id":"thread-1"}`,
	} {
		require.False(t, r.HandleRaw(MustParseEvents(line)[0]), line)
	}

	msgs := f.store.List()
	require.Len(t, msgs, 2)
	require.Empty(t, msgs[1].ContentSegments)
	require.Equal(t, "thread-1", r.ThreadID())
}

func TestReplayReconciler_LogsIgnoredToolCallChunks(t *testing.T) {
	f := newReplayFixture()
	r := f.reconciler("thread-1")
	require.True(t, r.HandleRaw(MustParseEvents(`{"event":"user_message","pair_index":0,"content":"a"}`)[0]))
	buf := captureDebugLog(t)

	require.False(t, r.HandleRaw(MustParseEvents(`{"event":"tool_call_chunks","pair_index":0}`)[0]))
	require.Contains(t, buf.String(), "replay [thread-1]: ignoring tool_call_chunks")
}

func TestReplayReconciler_TodoSegmentNotDuplicated(t *testing.T) {
	f := newReplayFixture()
	r := f.reconciler("thread-1")
	todo := MustParseEvents(`{"event":"artifact","pair_index":0,"artifact_type":"todo_update","artifact_id":"plan","payload":{"total":1}}`)[0]

	require.True(t, r.HandleRaw(MustParseEvents(`{"event":"user_message","pair_index":0,"content":"a"}`)[0]))
	require.True(t, r.HandleRaw(todo))

	// A rewound counter hands out an order whose segment already exists
	pair := r.pairs[0]
	pair.Order.Reset()
	require.False(t, r.HandleRaw(todo))
	require.Equal(t, 0, pair.Order.Last())

	msg := f.store.List()[1]
	require.Equal(t, 1, msg.SegmentsOfType(SegmentTodoList))
	require.Len(t, msg.TodoListProcesses, 1)
	require.Contains(t, msg.TodoListProcesses, "plan-0-1")
}

func TestReplayReconciler_SkipsSettledTurns(t *testing.T) {
	f := newReplayFixture()
	first := f.run(t, "thread-1",
		`{"event":"user_message","pair_index":0,"content":"First"}`,
		`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"text","content":"One"}`,
	)
	turns := first.Turns()
	require.Len(t, turns, 1)

	r := NewReplayReconciler(ReplayConfig{
		Store:    f.store,
		Recent:   f.recent,
		ThreadID: "thread-1",
		Card:     f.card,
		Turns:    turns,
	})
	err := r.Run(context.Background(), &ScriptedTransport{Events: MustParseEvents(
		`{"event":"user_message","pair_index":0,"content":"First"}`,
		`{"event":"message_chunk","pair_index":0,"role":"assistant","content_type":"text","content":"One"}`,
		`{"event":"user_message","pair_index":1,"content":"Second"}`,
		`{"event":"message_chunk","pair_index":1,"role":"assistant","content_type":"text","content":"Two"}`,
	)})
	require.NoError(t, err)

	msgs := f.store.List()
	require.Len(t, msgs, 4)
	require.Equal(t, turns[0], msgs[1].ID)
	require.Equal(t, "One", msgs[1].Content)
	require.Equal(t, 1, msgs[1].SegmentsOfType(SegmentText))
	require.Equal(t, "Second", msgs[2].Content)
	require.Equal(t, "Two", msgs[3].Content)
	require.Len(t, r.Turns(), 2)
}

func TestReplayReconciler_IgnoresTurnsMissingFromStore(t *testing.T) {
	f := newReplayFixture()
	f.run(t, "thread-1")

	r := NewReplayReconciler(ReplayConfig{
		Store:    f.store,
		ThreadID: "thread-1",
		Turns:    map[int]string{0: "gone"},
	})
	require.Empty(t, r.Turns())
	require.True(t, r.HandleRaw(MustParseEvents(`{"event":"user_message","pair_index":0,"content":"a"}`)[0]))
	require.Len(t, f.store.List(), 2)
}

func TestReplayReconciler_ToolCallsAwaitResult(t *testing.T) {
	f := newReplayFixture()
	f.run(t, "thread-1",
		`{"event":"user_message","pair_index":0,"content":"a"}`,
		`{"event":"tool_calls","pair_index":0,"tool_calls":[{"id":"tc1","name":"x"},{"id":"tc2","name":"y"}]}`,
		`{"event":"tool_call_result","pair_index":0,"tool_call_id":"tc2","content":"ok"}`,
		`{"event":"tool_call_result","pair_index":0,"tool_call_id":"tc2","content":"ok"}`,
		`{"event":"tool_call_result","pair_index":0,"tool_call_id":"tc-ghost"}`,
	)

	msg := f.store.List()[1]
	require.Equal(t, ToolCallAwaitingResult, msg.ToolCallProcesses["tc1"].State())
	require.Equal(t, ToolCallResolved, msg.ToolCallProcesses["tc2"].State())
	require.Equal(t, UnknownToolName, msg.ToolCallProcesses["tc-ghost"].ToolName)
	require.Equal(t, 3, msg.SegmentsOfType(SegmentToolCall))
}

func TestReplayReconciler_TransportFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "not found is empty history", err: fmt.Errorf("server: %w", ErrThreadNotFound)},
		{name: "other failure", err: errors.New("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReplayFixture()
			err := f.reconciler("thread-1").Run(context.Background(), &ScriptedTransport{Err: tt.err})
			if !tt.wantErr {
				require.NoError(t, err)
				require.Zero(t, f.store.Len())
				return
			}
			var replayErr *ReplayError
			require.ErrorAs(t, err, &replayErr)
			require.Equal(t, "thread-1", replayErr.ThreadID)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReplayReconciler_Abandon(t *testing.T) {
	f := newReplayFixture()
	r := f.reconciler("thread-1")
	transport := &ScriptedTransport{
		Events: MustParseEvents(
			`{"event":"user_message","pair_index":0,"content":"a"}`,
			`{"event":"user_message","pair_index":1,"content":"b"}`,
		),
	}
	transport.OnEvent = func(i int) {
		if i == 0 {
			r.Abandon()
		}
	}

	err := r.Run(context.Background(), transport)
	require.ErrorIs(t, err, ErrReplayAbandoned)
	require.True(t, r.Abandoned())
	// The first turn stays, the second never lands
	require.Equal(t, 2, f.store.Len())
}

// TestReplayMatchesLive folds the same generation once live and once from
// its replay log and compares the results.
func TestReplayMatchesLive(t *testing.T) {
	live := []string{
		`{"content_type":"reasoning_signal","content":"start"}`,
		`{"content_type":"reasoning","content":"hmm"}`,
		`{"content_type":"reasoning_signal","content":"complete"}`,
		`{"content_type":"text","content":"Let me check. "}`,
		`{"event":"tool_calls","tool_calls":[{"id":"tc1","name":"search"}]}`,
		`{"content_type":"text","finish_reason":"tool_calls"}`,
		`{"event":"tool_calls","finish_reason":"tool_calls","tool_calls":[{"id":"tc1","name":"search"}]}`,
		`{"event":"tool_call_result","tool_call_id":"tc1","content":"found"}`,
		`{"event":"artifact","artifact_type":"todo_update","artifact_id":"plan","payload":{"total":1}}`,
		`{"content_type":"text","content":"Done."}`,
		`{"content_type":"text","finish_reason":"stop"}`,
	}

	store := NewMessageStore()
	store.Append(NewUserMessage("u", "go", time.Now()), NewAssistantPlaceholder("a", time.Now()))
	p := NewLiveProcessor(store, "a", true, nil)
	for _, ev := range MustParseEvents(live...) {
		p.HandleRaw(ev)
	}
	p.Finish()
	liveMsg, _ := store.Get("a")

	// The replay log carries the same events tagged with the turn
	replayLog := []string{`{"event":"user_message","pair_index":0,"content":"go"}`}
	for _, line := range live {
		replayLog = append(replayLog, `{"pair_index":0,"role":"assistant",`+line[1:])
	}
	f := newReplayFixture()
	f.run(t, "thread-1", replayLog...)
	replayMsg := f.store.List()[1]

	require.Equal(t, liveMsg.Content, replayMsg.Content)
	require.Len(t, replayMsg.ContentSegments, len(liveMsg.ContentSegments))
	for i := range liveMsg.ContentSegments {
		require.Equal(t, liveMsg.ContentSegments[i].Type, replayMsg.ContentSegments[i].Type)
		require.Equal(t, liveMsg.ContentSegments[i].Content, replayMsg.ContentSegments[i].Content)
	}
	require.Equal(t, liveMsg.IsStreaming, replayMsg.IsStreaming)
}
