package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dualfm/internal/archive"
)

var (
	lsLong  bool
	lsHuman bool
)

var lsCmd = &cobra.Command{
	Use:   "ls <archive>",
	Short: "List the members of an archive",
	Long: `Ls prints the members of an archive without extracting anything.

By default it prints one member name per line. With --long it adds mode,
size, and modification time.

Examples:
  dualfm ls release.zip
  dualfm ls -lH backup.tar.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Show mode, size, and modification time")
	lsCmd.Flags().BoolVarP(&lsHuman, "human-readable", "H", false, "Show sizes as KiB, MiB, GiB")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	entries, err := orch.ListArchive(args[0])
	if err != nil {
		return err
	}

	if !lsLong {
		for _, e := range entries {
			fmt.Println(e.Name)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tSIZE\tMODIFIED\tNAME")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Mode.String(), listSize(e), e.ModTime.Format("2006-01-02 15:04"), listName(e))
	}
	return w.Flush()
}

func listSize(e archive.Entry) string {
	if e.IsDir {
		return "-"
	}
	if lsHuman {
		return humanize.IBytes(uint64(e.Size))
	}
	return strconv.FormatInt(e.Size, 10)
}

func listName(e archive.Entry) string {
	switch {
	case e.IsSymlink && e.LinkTarget != "":
		return e.Name + " -> " + e.LinkTarget
	case e.IsHardlink:
		return e.Name + " link to " + e.LinkTarget
	default:
		return e.Name
	}
}
