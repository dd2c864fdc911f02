// Package cli implements the Cobra command hierarchy for the copytree CLI tool.
// This file implements the `copytree preview` subcommand which shows file selection
// and token statistics without generating an output file.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copytree/copytree/internal/engine"
	"github.com/copytree/copytree/internal/tokenizer"
)

// previewHeatmap is a local flag target for --heatmap on the preview command.
// It is a file-level variable (not inside init) to avoid dereferencing the
// flagValues pointer before root.go's init() has populated it.
var previewHeatmap bool

// previewCmd implements `copytree preview` which shows file selection and token
// distribution without generating an output file.
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview file selection and token statistics without generating output",
	Long: `Preview runs the file discovery and token counting stages without writing
an output context file. Use this to inspect which files would be included,
their token counts, and how they relate to your token budget.

Examples:
  # Preview the current directory
  copytree preview

  # Show token density heatmap to find context-bloat files
  copytree preview --heatmap

  # Preview with a specific tokenizer
  copytree preview --tokenizer o200k_base

  # Show the top 20 largest files
  copytree preview --top-files 20`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewHeatmap, "heatmap", false, "Show token density heatmap (tokens per line)")
	rootCmd.AddCommand(previewCmd)
}

// runPreview executes the preview subcommand: it runs the real discovery and
// stage pipeline via engine.Evaluate and reports on the resulting files
// without writing a context document.
func runPreview(cmd *cobra.Command, args []string) error {
	fv := GlobalFlags()

	// Sync the local heatmap flag back to the shared FlagValues so that
	// downstream callers can read it from a single place.
	fv.Heatmap = previewHeatmap

	v, err := engine.Evaluate(cmd.Context(), fv)
	if err != nil {
		return err
	}
	files := v.NonNilFiles()

	if fv.Heatmap {
		lineCounts := make(map[string]int, len(files))
		for _, fd := range files {
			lineCounts[fd.Path] = strings.Count(fd.Content, "\n") + 1
		}
		report := tokenizer.NewHeatmapReport(files, lineCounts)
		fmt.Fprint(cmd.OutOrStdout(), report.Format())
		return nil
	}

	report := tokenizer.NewTokenReport(files, fv.Tokenizer, fv.MaxTokens)
	fmt.Fprint(cmd.OutOrStdout(), report.Format())
	return nil
}
