package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatfold/internal"
)

var replayNoCache bool

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [thread-id]",
	Short: "Replay a thread's full history",
	Long: `Replay the full event log of a thread and fold it into a transcript.

Without a thread id the thread stored for the current workspace is replayed.
With --log-dir the log is read from <dir>/<thread-id>.jsonl instead of the
server. The folded transcript is cached for 'chatfold show' and 'chatfold export'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tdb, err := openThreadDB(cfg)
		if err != nil {
			return err
		}
		defer tdb.Close()

		card := &internal.LatestTodoCard{}
		session := newSession(cfg, tdb.store, card)
		ctx := cmd.Context()

		message := fmt.Sprintf("Replaying workspace %s", cfg.Workspace)
		if len(args) == 1 {
			message = fmt.Sprintf("Replaying thread %s", args[0])
		}
		err = internal.ShowProgress(ctx, message, func() error {
			if len(args) == 1 {
				return session.SetThread(ctx, args[0])
			}
			return session.Open(ctx)
		})
		if err != nil {
			return err
		}

		if session.ThreadID() == "" {
			return fmt.Errorf("no thread stored for workspace %s (pass a thread id)", cfg.Workspace)
		}

		out := cmd.OutOrStdout()
		if len(session.Messages()) == 0 {
			internal.PrintWarning(out, fmt.Sprintf("Thread %s has no history yet", session.ThreadID()))
			return nil
		}

		var transcript *internal.Transcript
		if replayNoCache {
			transcript, err = internal.NewNormalizer().NormalizeThread(session.ThreadID(), session.WorkspaceID(), "replay", session.Messages())
		} else {
			transcript, err = cacheSession(cfg, session, "replay")
			if err != nil && transcript != nil {
				internal.LogWarn("Failed to cache transcript: %v", err)
				err = nil
			}
		}
		if err != nil {
			return err
		}

		renderTranscript(out, transcript)
		renderCard(out, card)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayNoCache, "no-cache", false, "Do not cache the folded transcript")
}
