package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/chatfold/internal"
)

func TestJSONLExporter_Export(t *testing.T) {
	tests := []struct {
		name       string
		transcript *internal.Transcript
		wantLines  int
		want       []string
	}{
		{
			name:       "empty transcript",
			transcript: &internal.Transcript{ThreadID: "test1"},
			wantLines:  0,
		},
		{
			name:       "transcript with entries",
			transcript: internal.CreateTestTranscript("test2"),
			wantLines:  2,
			want: []string{
				`"thread":"test2"`,
				`"role":"user"`,
				`"role":"assistant"`,
				`"timestamp":"2025-01-02T03:04:05Z"`,
				`"tool_name":"calendar"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &JSONLExporter{}

			if err := exporter.Export(tt.transcript, &buf); err != nil {
				t.Fatalf("JSONLExporter.Export() error = %v", err)
			}

			output := strings.TrimSpace(buf.String())
			if tt.wantLines == 0 {
				if output != "" {
					t.Errorf("Empty transcript should produce empty output, got: %q", output)
				}
				return
			}

			lines := strings.Split(output, "\n")
			if len(lines) != tt.wantLines {
				t.Fatalf("got %d lines, want %d", len(lines), tt.wantLines)
			}
			for i, line := range lines {
				var obj map[string]interface{}
				if err := json.Unmarshal([]byte(line), &obj); err != nil {
					t.Errorf("Line %d is not valid JSON: %v", i, err)
				}
				for _, field := range []string{"role", "content", "thread"} {
					if _, ok := obj[field]; !ok {
						t.Errorf("Line %d missing %q field", i, field)
					}
				}
			}

			for _, wantStr := range tt.want {
				if !strings.Contains(output, wantStr) {
					t.Errorf("Output should contain %q", wantStr)
				}
			}
		})
	}
}
