// Solace is the command-line client for the solaced daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "solace",
		Short: "Talk to the solaced task-intelligence daemon",
		Long: `Solace captures freeform thoughts as structured tasks and asks the
daemon what to focus on and what each task unlocks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180",
		"base URL of the solaced daemon")

	root.AddCommand(newCaptureCmd())
	root.AddCommand(newFocusCmd())
	root.AddCommand(newDominoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
