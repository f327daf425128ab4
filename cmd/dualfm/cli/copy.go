package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"dualfm/internal/logging"
)

var cpOverwrite bool

var cpCmd = &cobra.Command{
	Use:   "cp <source>... <dest-dir>",
	Short: "Copy files and directories into a destination directory",
	Long: `Cp copies each source into the destination directory under its own name.

Small payloads copy in one step; large ones stream in chunks with a
progress bar and can be interrupted with Ctrl-C. A failed item does not
stop the rest of the batch.

Examples:
  dualfm cp notes.txt backup/
  dualfm cp -f photos/ music/ /mnt/usb/`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCp,
}

func init() {
	cpCmd.Flags().BoolVarP(&cpOverwrite, "overwrite", "f", false, "Replace existing destination entries")
	rootCmd.AddCommand(cpCmd)
}

func runCp(cmd *cobra.Command, args []string) error {
	items, destDir := args[:len(args)-1], args[len(args)-1]

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	onProgress, finish := newOperationProgress("Copying")

	start := time.Now()
	s := orch.CopyItems(ctx, items, destDir, cpOverwrite, onProgress)
	finish()
	logging.LogPerformance("cp", start)

	printSummary(os.Stdout, "Copy", s)
	return summaryErr(s)
}
