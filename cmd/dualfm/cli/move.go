package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"dualfm/internal/logging"
)

var mvOverwrite bool

var mvCmd = &cobra.Command{
	Use:   "mv <source>... <dest-dir>",
	Short: "Move files and directories into a destination directory",
	Long: `Mv moves each source into the destination directory under its own name.

Within one filesystem a move is a single rename. Across filesystems the
content is copied in chunks with a progress bar and the source is removed
only after the copy has fully succeeded.

Examples:
  dualfm mv draft.txt archive/
  dualfm mv -f downloads/album/ /mnt/music/`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMv,
}

func init() {
	mvCmd.Flags().BoolVarP(&mvOverwrite, "overwrite", "f", false, "Replace existing destination entries")
	rootCmd.AddCommand(mvCmd)
}

func runMv(cmd *cobra.Command, args []string) error {
	items, destDir := args[:len(args)-1], args[len(args)-1]

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	onProgress, finish := newOperationProgress("Moving")

	start := time.Now()
	s := orch.MoveItems(ctx, items, destDir, mvOverwrite, onProgress)
	finish()
	logging.LogPerformance("mv", start)

	printSummary(os.Stdout, "Move", s)
	return summaryErr(s)
}
