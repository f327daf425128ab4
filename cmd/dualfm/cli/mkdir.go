package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var mkdirExistOK bool

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Long: `Mkdir creates one directory. The parent must already exist, the final
name is validated against unsafe characters and reserved names, and the
path may not resolve outside the parent.

Examples:
  dualfm mkdir projects/demo
  dualfm mkdir --exist-ok cache`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdir,
}

func init() {
	mkdirCmd.Flags().BoolVar(&mkdirExistOK, "exist-ok", false, "Succeed when the directory already exists")
	rootCmd.AddCommand(mkdirCmd)
}

func runMkdir(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	path := filepath.Clean(args[0])
	created, err := orch.NewDirectory(filepath.Dir(path), filepath.Base(path), mkdirExistOK)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", created)
	return nil
}
