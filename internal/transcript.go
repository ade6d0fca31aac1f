package internal

// Transcript is a flattened, export-ready view of one thread
type Transcript struct {
	ThreadID  string             `json:"thread_id" yaml:"thread_id"`
	Workspace string             `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Source    string             `json:"source" yaml:"source"` // "replay", "live"
	Entries   []TranscriptEntry  `json:"entries" yaml:"entries"`
	Metadata  TranscriptMetadata `json:"metadata" yaml:"metadata"`
}

// TranscriptEntry is one message of a transcript
type TranscriptEntry struct {
	Timestamp string           `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Role      Role             `json:"role" yaml:"role"`
	Content   string           `json:"content" yaml:"content"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
	Segments  []SegmentSummary `json:"segments,omitempty" yaml:"segments,omitempty"`
}

// SegmentSummary resolves a segment against its process record
type SegmentSummary struct {
	Type     SegmentType   `json:"type" yaml:"type"`
	Order    int           `json:"order" yaml:"order"`
	Text     string        `json:"text,omitempty" yaml:"text,omitempty"`
	ToolName string        `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`
	State    ToolCallState `json:"state,omitempty" yaml:"state,omitempty"`
}

// TranscriptMetadata contains counts and timestamps for a transcript
type TranscriptMetadata struct {
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
	ToolCalls    int    `json:"tool_calls" yaml:"tool_calls"`
	TodoUpdates  int    `json:"todo_updates" yaml:"todo_updates"`
}
