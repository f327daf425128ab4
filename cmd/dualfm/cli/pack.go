package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dualfm/internal/archive"
	"dualfm/internal/logging"
)

var (
	packLevel     int
	packBaseDir   string
	packOverwrite bool
)

var packCmd = &cobra.Command{
	Use:   "pack <archive> <source>...",
	Short: "Create an archive from files and directories",
	Long: `Pack writes the sources into a new archive. The format follows the
archive extension: .zip, .tar, .tar.gz (.tgz), .tar.bz2, .tar.xz, or
.tar.zst.

Member names are recorded relative to --base-dir when given, otherwise
relative to each source's parent. The archive is written atomically, so
an interrupted pack leaves nothing behind.

Examples:
  dualfm pack backup.tar.zst documents/ notes.txt
  dualfm pack -C src release.zip src/app src/lib`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPack,
}

func init() {
	packCmd.Flags().IntVarP(&packLevel, "level", "l", archive.DefaultCompressionLevel, "Compression level (0 = store, 9 = smallest)")
	packCmd.Flags().StringVarP(&packBaseDir, "base-dir", "C", "", "Record member names relative to this directory")
	packCmd.Flags().BoolVarP(&packOverwrite, "overwrite", "f", false, "Replace an existing archive")
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	dest, sources := args[0], args[1:]

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	if err := orch.CreateArchive(ctx, sources, dest, packLevel, packBaseDir, packOverwrite); err != nil {
		return err
	}
	logging.LogPerformance("pack", start)

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("archive written but cannot stat %s: %w", dest, err)
	}
	fmt.Printf("Created %s (%s)\n", dest, humanize.IBytes(uint64(info.Size())))
	return nil
}
