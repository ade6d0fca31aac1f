package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/chatfold/internal"
)

var (
	// Styles for transcripts
	threadHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1)

	threadMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	reasoningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true).
			Padding(0, 2)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Padding(0, 2)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func renderThreadHeader(w io.Writer, transcript *internal.Transcript) {
	_, _ = fmt.Fprintln(w, threadHeaderStyle.Render(fmt.Sprintf("💬 Thread %s", transcript.ThreadID)))

	metaParts := []string{fmt.Sprintf("Messages: %d", len(transcript.Entries))}
	if transcript.Workspace != "" {
		metaParts = append(metaParts, fmt.Sprintf("Workspace: %s", transcript.Workspace))
	}
	if transcript.Source != "" {
		metaParts = append(metaParts, fmt.Sprintf("Source: %s", transcript.Source))
	}
	if transcript.Metadata.ToolCalls > 0 {
		metaParts = append(metaParts, fmt.Sprintf("Tool calls: %d", transcript.Metadata.ToolCalls))
	}
	_, _ = fmt.Fprintln(w, threadMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(w)
}

func renderEntry(w io.Writer, index, total int, entry internal.TranscriptEntry) {
	var header string
	switch entry.Role {
	case internal.RoleUser:
		header = userMessageStyle.Render("👤 User")
	case internal.RoleAssistant:
		header = assistantMessageStyle.Render("🤖 Assistant")
	default:
		header = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Render(string(entry.Role))
	}

	header += " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if entry.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
			header += " " + timestampStyle.Render(t.Format("15:04:05"))
		}
	}
	_, _ = fmt.Fprintln(w, header)

	if len(entry.Segments) == 0 {
		content := strings.TrimSpace(entry.Content)
		if content == "" {
			content = "(empty message)"
		}
		_, _ = fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	}
	for _, seg := range entry.Segments {
		renderSegment(w, seg)
	}

	if entry.Error != "" {
		_, _ = fmt.Fprintln(w, errorMessageStyle.Render("✗ "+entry.Error))
	}
	_, _ = fmt.Fprintln(w)
}

func renderSegment(w io.Writer, seg internal.SegmentSummary) {
	switch seg.Type {
	case internal.SegmentText:
		_, _ = fmt.Fprintln(w, messageContentStyle.Render(wrapText(strings.TrimSpace(seg.Text), 80)))
	case internal.SegmentReasoning:
		_, _ = fmt.Fprintln(w, reasoningStyle.Render("💭 "+wrapText(strings.TrimSpace(seg.Text), 76)))
	case internal.SegmentToolCall:
		line := fmt.Sprintf("🔧 %s [%s]", seg.ToolName, seg.State)
		if result := strings.TrimSpace(seg.Text); result != "" {
			line += " → " + truncate(result, 60)
		}
		_, _ = fmt.Fprintln(w, toolStyle.Render(line))
	case internal.SegmentTodoList:
		_, _ = fmt.Fprintln(w, toolStyle.Render("📋 "+seg.Text))
	}
}

// renderCard prints the floating todo card
func renderCard(w io.Writer, card *internal.LatestTodoCard) {
	snap, ok := card.Latest()
	if !ok {
		return
	}
	body := fmt.Sprintf("📋 %s\n%d/%d completed • %d in progress • %d pending",
		snap.BaseID, snap.Completed, snap.Total, snap.InProgress, snap.Pending)
	_, _ = fmt.Fprintln(w, cardStyle.Render(body))
}

func renderTranscript(w io.Writer, transcript *internal.Transcript) {
	renderThreadHeader(w, transcript)
	for i, entry := range transcript.Entries {
		renderEntry(w, i+1, len(transcript.Entries), entry)
	}
}

func truncate(text string, width int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " …"
	}
	if len(text) > width {
		return text[:width-3] + "..."
	}
	return text
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		// Wrap long lines
		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
				}
				currentLine = word
			} else if currentLine == "" {
				currentLine = word
			} else {
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}
