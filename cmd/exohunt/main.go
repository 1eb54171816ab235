package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"exohunt/internal/runctl"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

func main() {
	os.Exit(execute(newRootCommand(), os.Stderr))
}

// execute runs cmd and maps its error to a process exit status. Interrupted
// runs get a one-line notice instead of the wrapped error chain.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case runctl.IsInterrupt(err):
		fmt.Fprintln(stderr, "exohunt: interrupted; completed items were kept")
		return exitInterrupted
	default:
		fmt.Fprintf(stderr, "exohunt: %v\n", err)
		return 1
	}
}
