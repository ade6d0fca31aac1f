package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/chatfold/internal"
)

// JSONLExporter exports transcripts in JSONL format (one entry per line)
type JSONLExporter struct{}

type jsonlLine struct {
	Thread    string                    `json:"thread"`
	Role      internal.Role             `json:"role"`
	Content   string                    `json:"content"`
	Timestamp string                    `json:"timestamp,omitempty"`
	Error     string                    `json:"error,omitempty"`
	Segments  []internal.SegmentSummary `json:"segments,omitempty"`
}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, entry := range transcript.Entries {
		line := jsonlLine{
			Thread:    transcript.ThreadID,
			Role:      entry.Role,
			Content:   entry.Content,
			Timestamp: entry.Timestamp,
			Error:     entry.Error,
			Segments:  entry.Segments,
		}

		// Encode to single line
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
