package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/chatfold/internal"
)

var (
	limit int
	since string
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Show a cached transcript",
	Long:  `Display the cached transcript of a thread. Run 'chatfold replay <thread-id>' first to fold and cache it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID := args[0]

		cacheManager := internal.NewCacheManager(cfg.CacheDir)
		transcript, err := cacheManager.LoadTranscript(threadID)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("thread %s is not cached (run 'chatfold replay %s')", threadID, threadID)
			}
			return err
		}

		entries, err := filterEntries(transcript.Entries, since)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		renderThreadHeader(out, transcript)

		totalFiltered := len(entries)
		if limit > 0 && limit < len(entries) {
			entries = entries[:limit]
		}
		for i, entry := range entries {
			renderEntry(out, i+1, totalFiltered, entry)
		}

		// Show remaining count if limit was applied
		if limit > 0 && limit < totalFiltered {
			_, _ = fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d more message(s))", totalFiltered-limit)))
		}
		return nil
	},
}

// filterEntries keeps entries at or after the RFC 3339 timestamp sinceTS
func filterEntries(entries []internal.TranscriptEntry, sinceTS string) ([]internal.TranscriptEntry, error) {
	if sinceTS == "" {
		return entries, nil
	}
	sinceTime, err := time.Parse(time.RFC3339, sinceTS)
	if err != nil {
		return nil, fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
	}

	filtered := make([]internal.TranscriptEntry, 0, len(entries))
	for _, entry := range entries {
		t, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			continue
		}
		if !t.Before(sinceTime) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}
