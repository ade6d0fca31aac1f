package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/chatfold/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# Thread %s\n\n", transcript.ThreadID)

	if transcript.Workspace != "" {
		_, _ = fmt.Fprintf(w, "**Workspace:** %s  \n", transcript.Workspace)
	}
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", transcript.Source)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(transcript.Entries))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, entry := range transcript.Entries {
		timestamp := ""
		if entry.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", entry.Timestamp)
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n", entry.Role, timestamp)

		if len(entry.Segments) == 0 {
			_, _ = fmt.Fprintf(w, "%s\n\n", escapeMarkdown(entry.Content))
		}
		for _, seg := range entry.Segments {
			writeSegment(w, seg)
		}

		if entry.Error != "" {
			_, _ = fmt.Fprintf(w, "> **Error:** %s\n\n", entry.Error)
		}

		// Add horizontal rule after each message (except the last one)
		if i < len(transcript.Entries)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func writeSegment(w io.Writer, seg internal.SegmentSummary) {
	switch seg.Type {
	case internal.SegmentText:
		_, _ = fmt.Fprintf(w, "%s\n\n", escapeMarkdown(seg.Text))
	case internal.SegmentReasoning:
		_, _ = fmt.Fprintf(w, "<details><summary>Reasoning</summary>\n\n%s\n\n</details>\n\n", seg.Text)
	case internal.SegmentToolCall:
		_, _ = fmt.Fprintf(w, "- Tool `%s` (%s)", seg.ToolName, seg.State)
		if seg.Text != "" {
			_, _ = fmt.Fprintf(w, ": %s", firstLine(seg.Text))
		}
		_, _ = fmt.Fprintf(w, "\n\n")
	case internal.SegmentTodoList:
		_, _ = fmt.Fprintf(w, "- Todo list: %s\n\n", seg.Text)
	}
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i] + " …"
	}
	return text
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
