// Command hoopgraph queries the teammate graph and manages edge metadata
// from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hoopgraph:", err)
		os.Exit(1)
	}
}
