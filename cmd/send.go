package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatfold/internal"
)

var (
	sendThread  string
	sendNew     bool
	sendContext string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message and fold the streamed reply",
	Long: `Send a message to the chat server and fold the streamed generation.

The workspace's stored thread is replayed first so the message continues it.
Use --new to start a new conversation or --thread to continue another thread.
The server-assigned thread id is stored for the workspace.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		var opts internal.SendOptions
		if sendContext != "" {
			if !json.Valid([]byte(sendContext)) {
				return fmt.Errorf("--context must be valid JSON")
			}
			opts.Context = json.RawMessage(sendContext)
		}

		tdb, err := openThreadDB(cfg)
		if err != nil {
			return err
		}
		defer tdb.Close()

		card := &internal.LatestTodoCard{}
		session := newSession(cfg, tdb.store, card)
		ctx := cmd.Context()

		switch {
		case sendNew:
			// Leave the stored thread alone until the server assigns a new one
		case sendThread != "":
			err = session.SetThread(ctx, sendThread)
		default:
			err = session.Open(ctx)
		}
		if err != nil {
			internal.LogWarn("Continuing without history: %v", err)
			session.ClearError()
		}

		_, sendErr := session.Send(ctx, text, opts)

		out := cmd.OutOrStdout()
		transcript, err := cacheSession(cfg, session, "live")
		if err != nil {
			internal.LogDebug("Transcript not cached: %v", err)
			if transcript == nil {
				transcript, _ = internal.NewNormalizer().NormalizeThread(session.ThreadID(), session.WorkspaceID(), "live", session.Messages())
			}
		}
		if transcript != nil {
			renderTranscript(out, transcript)
			renderCard(out, card)
		}
		return sendErr
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendThread, "thread", "", "Continue this thread instead of the stored one")
	sendCmd.Flags().BoolVar(&sendNew, "new", false, "Start a new conversation")
	sendCmd.Flags().StringVar(&sendContext, "context", "", "JSON context attached to the message")
}
