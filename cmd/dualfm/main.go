// Command dualfm drives the dualfm file-operation core from the command
// line: validated copy, move, and delete, atomic directory creation, and
// archive packing and unpacking.
package main

import (
	"os"

	"dualfm/cmd/dualfm/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
