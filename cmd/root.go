package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iksnae/chatfold/internal"
	"github.com/iksnae/chatfold/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// flagKeys maps persistent flag names to config keys
var flagKeys = map[string]string{
	"verbose":       config.KeyVerbose,
	"server":        config.KeyServerURL,
	"workspace":     config.KeyWorkspace,
	"user":          config.KeyUserID,
	"mode":          config.KeyMode,
	"db":            config.KeyDBPath,
	"cache-dir":     config.KeyCacheDir,
	"log-dir":       config.KeyLogDir,
	"recent-window": config.KeyRecentWindow,
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatfold",
	Short: "Fold chat event streams into conversation transcripts",
	Long: `chatfold folds the event stream of a chat agent into an ordered message list.

Live generations and replayed thread history go through the same folding, so a
thread looks the same whether you watched it stream or replayed it later.

Quick Start:
  chatfold send "Plan my week"          # Send a message and watch it fold
  chatfold replay <thread-id>           # Replay a thread's full history
  chatfold replay --log-dir ./logs t1   # Replay from a JSONL event log
  chatfold list                         # List cached transcripts
  chatfold export --format md           # Export cached transcripts`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			internal.LogWarn("%v", err)
		}

		v := viper.New()
		if err := bindFlags(v, cmd.Root().PersistentFlags()); err != nil {
			return err
		}
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		internal.SetVerbose(cfg.Verbose)
		return nil
	},
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./chatfold.yaml or ~/.chatfold/chatfold.yaml)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("server", "", "Chat server websocket URL")
	flags.StringP("workspace", "w", "", "Workspace id")
	flags.String("user", "", "User id sent with every message")
	flags.String("mode", "", "Agent mode sent with every message")
	flags.String("db", "", "Path of the thread database")
	flags.String("cache-dir", "", "Transcript cache directory")
	flags.String("log-dir", "", "Replay from <dir>/<thread>.jsonl event logs instead of the server")
	flags.Duration("recent-window", 0, "How long a sent message can attach to its replayed turn")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
