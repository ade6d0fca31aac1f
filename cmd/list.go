package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/chatfold/internal"
)

var listClearCache bool

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	workspaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached transcripts",
	Long:  `List every thread transcript cached by 'chatfold replay' and 'chatfold send'.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheManager := internal.NewCacheManager(cfg.CacheDir)

		if listClearCache {
			if err := cacheManager.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		index, err := cacheManager.LoadIndex()
		if err != nil {
			internal.LogDebug("No cache index: %v", err)
			index = &internal.ThreadIndex{}
		}

		displayThreadIndex(cmd.OutOrStdout(), index, time.Now())
		return nil
	},
}

func displayThreadIndex(out io.Writer, index *internal.ThreadIndex, now time.Time) {
	if len(index.Threads) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No transcripts cached"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d thread(s)", len(index.Threads))))
	_, _ = fmt.Fprintln(out)

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Thread")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("Workspace")+"\t"+titleStyle.Render("Source")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, entry := range index.Threads {
		workspace := dateStyle.Render("—")
		if entry.Workspace != "" {
			workspace = workspaceStyle.Render(entry.Workspace)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(entry.ThreadID),
			countStyle.Render(strconv.Itoa(entry.MessageCount)),
			dateStyle.Render(formatRelative(entry.UpdatedAt, now)),
			workspace,
			dateStyle.Render(entry.Source))
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("💡 Tip: Use ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render("chatfold show "+index.Threads[0].ThreadID)+
		idStyle.Render(" to view a transcript"))
}

// formatRelative shortens an RFC 3339 timestamp relative to now
func formatRelative(ts string, now time.Time) string {
	if ts == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listClearCache, "clear-cache", false, "Clear the cache before listing")
}
