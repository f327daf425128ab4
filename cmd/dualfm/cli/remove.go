package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"dualfm/internal/logging"
)

var rmRecursive bool

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Delete files and directories",
	Long: `Rm deletes each path. Directories with content are refused unless
--recursive is given.

Deletion is not transactional: interrupting a recursive delete with
Ctrl-C keeps whatever has not been removed yet.

Examples:
  dualfm rm stale.log
  dualfm rm -r build/ dist/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "Delete directories and their contents")
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	onProgress, finish := newOperationProgress("Deleting")

	start := time.Now()
	s := orch.DeleteItems(ctx, args, rmRecursive, onProgress)
	finish()
	logging.LogPerformance("rm", start)

	printSummary(os.Stdout, "Delete", s)
	return summaryErr(s)
}
