package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatfold/internal"
	"github.com/iksnae/chatfold/internal/export"
)

var (
	format       string
	outputDir    string
	exportThread string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached transcripts to files",
	Long: `Export cached transcripts to various formats (jsonl, md, yaml, json).

All cached threads are exported unless --thread or --workspace narrows them.
Use 'chatfold list' to see cached thread ids.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Fail on a bad format before touching the cache
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		cacheManager := internal.NewCacheManager(cfg.CacheDir)
		transcripts, err := cacheManager.LoadAllTranscripts()
		if err != nil {
			return fmt.Errorf("no cached transcripts (run 'chatfold replay' first): %w", err)
		}

		filterWorkspace := ""
		if cmd.Flags().Changed("workspace") {
			filterWorkspace = cfg.Workspace
		}
		selected := make([]*internal.Transcript, 0, len(transcripts))
		for _, transcript := range transcripts {
			if exportThread != "" && transcript.ThreadID != exportThread {
				continue
			}
			if filterWorkspace != "" && transcript.Workspace != filterWorkspace {
				continue
			}
			selected = append(selected, transcript)
		}
		if exportThread != "" && len(selected) == 0 {
			return fmt.Errorf("thread not cached: %s (use 'chatfold list' to see cached threads)", exportThread)
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Exporting %d thread(s) to %s", len(selected), outputDir), func() error {
			for _, transcript := range selected {
				path := filepath.Join(outputDir, fmt.Sprintf("thread_%s.%s", transcript.ThreadID, exporter.Extension()))
				if err := exportFile(exporter, transcript, path); err != nil {
					internal.LogError("%v", err)
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Export complete: %d thread(s) exported to %s", exported, outputDir))
		return nil
	},
}

func exportFile(exporter export.Exporter, transcript *internal.Transcript, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}

	if err := exporter.Export(transcript, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}

	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&exportThread, "thread", "", "Export a single thread by id")
}
