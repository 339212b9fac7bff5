// Command softgraph runs graph scenarios, inspects transition journals and
// stress-tests the graph's locking from concurrent workers.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/softgraph/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
