package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Show aggregate statistics for an archive",
	Long: `Info reads an archive's metadata and reports member counts, the total
uncompressed size, the on-disk size, and the resulting compression
ratio. Nothing is extracted.

Example:
  dualfm info backup.tar.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	stats, err := orch.ArchiveInfo(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Format:\t%s\n", stats.Type)
	fmt.Fprintf(w, "Files:\t%d\n", stats.Files)
	fmt.Fprintf(w, "Directories:\t%d\n", stats.Dirs)
	if stats.Symlinks > 0 {
		fmt.Fprintf(w, "Links:\t%d\n", stats.Symlinks)
	}
	fmt.Fprintf(w, "Uncompressed:\t%s\n", humanize.IBytes(uint64(stats.TotalSize)))
	fmt.Fprintf(w, "On disk:\t%s\n", humanize.IBytes(uint64(stats.CompressedSize)))
	if stats.Ratio > 0 {
		fmt.Fprintf(w, "Ratio:\t%.2fx\n", stats.Ratio)
	}
	return w.Flush()
}
