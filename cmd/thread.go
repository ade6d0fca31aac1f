package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatfold/internal"
)

// threadCmd groups the thread store commands
var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Inspect or change the stored thread of a workspace",
}

var threadGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the thread stored for the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tdb, err := openThreadDB(cfg)
		if err != nil {
			return err
		}
		defer tdb.Close()

		threadID, err := tdb.store.Get(cfg.Workspace)
		if err != nil {
			return err
		}
		if threadID == "" {
			return fmt.Errorf("no thread stored for workspace %s", cfg.Workspace)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), threadID)
		return nil
	},
}

var threadSetCmd = &cobra.Command{
	Use:   "set <thread-id>",
	Short: "Store the thread for the workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == internal.PlaceholderThreadID {
			return fmt.Errorf("%s is not a real thread id", args[0])
		}

		tdb, err := openThreadDB(cfg)
		if err != nil {
			return err
		}
		defer tdb.Close()

		if err := tdb.store.Set(cfg.Workspace, args[0]); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Workspace %s now uses thread %s", cfg.Workspace, args[0]))
		return nil
	},
}

var threadListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored thread of every workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tdb, err := openThreadDB(cfg)
		if err != nil {
			return err
		}
		defer tdb.Close()

		pairs, err := tdb.store.All()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(pairs) == 0 {
			_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No threads stored"))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Workspace")+"\t"+titleStyle.Render("Thread")+"\t")
		for _, pair := range pairs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t\n", workspaceStyle.Render(pair.Key), idStyle.Render(pair.Value))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(threadCmd)
	threadCmd.AddCommand(threadGetCmd, threadSetCmd, threadListCmd)
}
