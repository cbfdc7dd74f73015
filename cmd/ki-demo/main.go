// Command ki-demo runs the runnable examples under examples/ from a
// terminal, so a reader can exercise the library without writing a
// Go program first.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
)

var (
	timeoutSeconds int
	timeoutCancel  context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "ki-demo",
	Short: "Run the go-ki structured concurrency demos",
	Long:  "ki-demo runs one of the examples/ programs shipped with the go-ki module.",
}

var demoNames = []string{"basic", "fanout", "lifecycle", "observability", "variants", "zombie"}

var runCmd = &cobra.Command{
	Use:       "run <demo>",
	Short:     "Run a named demo (basic|fanout|lifecycle|observability|variants|zombie)",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: demoNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pkg := "github.com/sundew-dev/go-ki/examples/" + args[0]
		run := exec.CommandContext(ctx, "go", "run", pkg)
		run.Stdout = cmd.OutOrStdout()
		run.Stderr = cmd.ErrOrStderr()
		return run.Run()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available demos",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range demoNames {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

// main configures the root command, registers the run and list
// subcommands, and executes it, exiting with status 1 on failure.
func main() {
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0, "abort the demo after N seconds (0 disables the timeout)")
	rootCmd.PersistentPreRunE = applyTimeout
	rootCmd.PersistentPostRun = cleanupTimeout

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func applyTimeout(cmd *cobra.Command, _ []string) error {
	if timeoutSeconds <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSeconds)*time.Second)
	timeoutCancel = cancel
	cmd.SetContext(ctx)
	return nil
}

func cleanupTimeout(*cobra.Command, []string) {
	if timeoutCancel != nil {
		timeoutCancel()
		timeoutCancel = nil
	}
}
