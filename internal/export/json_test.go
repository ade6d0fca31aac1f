package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/chatfold/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	transcript := internal.CreateTestTranscript("test1")

	var buf bytes.Buffer
	exporter := &JSONExporter{}
	if err := exporter.Export(transcript, &buf); err != nil {
		t.Fatalf("JSONExporter.Export() error = %v", err)
	}

	var decoded internal.Transcript
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.ThreadID != "test1" {
		t.Errorf("ThreadID = %q, want test1", decoded.ThreadID)
	}
	if decoded.Metadata.ToolCalls != 1 {
		t.Errorf("Metadata.ToolCalls = %d, want 1", decoded.Metadata.ToolCalls)
	}

	// Pretty-printed
	if !strings.Contains(buf.String(), "\n  \"thread_id\"") {
		t.Errorf("Output should be indented, got:\n%s", buf.String())
	}
}
