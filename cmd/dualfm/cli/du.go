package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dualfm/internal/logging"
)

var duCmd = &cobra.Command{
	Use:   "du <path>",
	Short: "Report the total size of a directory tree",
	Long: `Du walks a directory tree and reports the total size of the regular
files in it. Symlinks are counted as entries but never followed, so a
link back into the tree cannot inflate the total.

Example:
  dualfm du ~/photos`,
	Args: cobra.ExactArgs(1),
	RunE: runDu,
}

func init() {
	rootCmd.AddCommand(duCmd)
}

func runDu(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	onProgress, finish := newOperationProgress("Scanning")

	start := time.Now()
	size, err := orch.DirectorySize(ctx, args[0], onProgress)
	finish()
	if err != nil {
		return err
	}
	logging.LogPerformance("du", start)

	fmt.Printf("%s\t%s\n", humanize.IBytes(uint64(size)), args[0])
	return nil
}
