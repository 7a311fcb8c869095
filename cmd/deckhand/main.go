// Command deckhand is a local front door onto the rendering engine: it
// drives a SQLite-backed revision store through the render, validate,
// and diff subcommands in internal/cli.
package main

import (
	"fmt"
	"os"

	"github.com/deckhand/deckhand/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
