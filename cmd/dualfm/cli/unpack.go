package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dualfm/internal/logging"
)

var (
	unpackMembers    []string
	unpackOverwrite  bool
	unpackSkipChecks bool
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive> <dest-dir>",
	Short: "Extract an archive into a directory",
	Long: `Unpack extracts an archive into the destination directory. Every member
name is validated before anything is written: entries that would escape
the destination are rejected, and the archive's total size, file count,
and compression ratio are checked against the configured limits.

With --member only the named members (and their children, for
directories) are extracted.

Examples:
  dualfm unpack release.tar.gz /opt/app
  dualfm unpack -m docs/ -m README.md site.zip extracted/`,
	Args: cobra.ExactArgs(2),
	RunE: runUnpack,
}

func init() {
	unpackCmd.Flags().StringArrayVarP(&unpackMembers, "member", "m", nil, "Extract only this member (repeatable)")
	unpackCmd.Flags().BoolVarP(&unpackOverwrite, "overwrite", "f", false, "Replace existing files in the destination")
	unpackCmd.Flags().BoolVar(&unpackSkipChecks, "skip-safety-checks", false, "Skip pre-extraction bomb and name checks for trusted archives")
	rootCmd.AddCommand(unpackCmd)
}

func runUnpack(cmd *cobra.Command, args []string) error {
	source, dest := args[0], args[1]

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	if err := orch.ExtractArchive(ctx, source, dest, unpackMembers, unpackOverwrite, !unpackSkipChecks); err != nil {
		return err
	}
	logging.LogPerformance("unpack", start)

	fmt.Printf("Extracted %s to %s\n", source, dest)
	return nil
}
