// Command ih5ctl creates, patches, merges and inspects ih5 chains.
package main

import (
	"fmt"
	"os"

	"github.com/metador-go/ih5/cmd/ih5ctl/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
