package internal

import (
	"fmt"
	"time"
)

// Normalizer converts folded message lists to Transcript format
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeThread converts the messages of one thread to a Transcript
func (n *Normalizer) NormalizeThread(threadID, workspace, source string, msgs []Message) (*Transcript, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("thread %s has no messages", threadID)
	}

	transcript := &Transcript{
		ThreadID:  threadID,
		Workspace: workspace,
		Source:    source,
		Entries:   make([]TranscriptEntry, 0, len(msgs)),
	}

	for _, msg := range msgs {
		entry := n.normalizeMessage(msg)
		for _, seg := range entry.Segments {
			switch seg.Type {
			case SegmentToolCall:
				transcript.Metadata.ToolCalls++
			case SegmentTodoList:
				transcript.Metadata.TodoUpdates++
			}
		}
		transcript.Entries = append(transcript.Entries, entry)
	}

	transcript.Metadata.MessageCount = len(transcript.Entries)
	transcript.Metadata.CreatedAt = formatTimestamp(msgs[0].Timestamp)
	transcript.Metadata.UpdatedAt = formatTimestamp(msgs[len(msgs)-1].Timestamp)

	return transcript, nil
}

// normalizeMessage converts a Message to a TranscriptEntry
func (n *Normalizer) normalizeMessage(msg Message) TranscriptEntry {
	entry := TranscriptEntry{
		Timestamp: formatTimestamp(msg.Timestamp),
		Role:      msg.Role,
		Content:   msg.Content,
	}
	if msg.Error {
		entry.Error = msg.ErrorMessage
	}

	// User messages carry no segments
	if msg.Role != RoleAssistant {
		return entry
	}

	for _, seg := range msg.ContentSegments {
		entry.Segments = append(entry.Segments, n.summarize(msg, seg))
	}
	return entry
}

// summarize looks a segment's process record up by its back-reference
func (n *Normalizer) summarize(msg Message, seg Segment) SegmentSummary {
	summary := SegmentSummary{Type: seg.Type, Order: seg.Order}

	switch seg.Type {
	case SegmentText:
		summary.Text = seg.Content
	case SegmentReasoning:
		summary.Text = msg.ReasoningProcesses[seg.ReasoningID].Content
	case SegmentToolCall:
		proc := msg.ToolCallProcesses[seg.ToolCallID]
		summary.ToolName = proc.ToolName
		summary.State = proc.State()
		if proc.ToolCallResult != nil {
			summary.Text = proc.ToolCallResult.Content
		}
	case SegmentTodoList:
		snap := msg.TodoListProcesses[seg.TodoListID]
		summary.Text = fmt.Sprintf("%d/%d completed, %d in progress, %d pending",
			snap.Completed, snap.Total, snap.InProgress, snap.Pending)
	}
	return summary
}

// formatTimestamp formats a time as RFC 3339, empty for the zero time
func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
