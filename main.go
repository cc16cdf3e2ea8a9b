// Package main provides the acdbot entry point.
// acdbot keeps meeting issues, their discussion topics, Zoom meetings
// and calendar events in sync, and posts meeting transcripts once the
// recordings are ready.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ethcatherders/acdbot/cmd"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "acdbot",
	Short: "Meeting coordination bot for protocol call repositories",
	Long: `acdbot automates the chore work around recurring protocol calls.

It reads meeting issues, creates or updates the matching discussion
topic, Zoom meeting and calendar event, comments the outcome back on
the issue, and later posts the meeting transcript to the topic once
Zoom has produced it. All state lives in a JSON mapping file committed
to the repository, so every run is inspectable in git history.

Typical workflow usage:
  acdbot reconcile --issue 1234    # on issue open/edit
  acdbot harvest                   # on a schedule
  acdbot harvest --meeting <id>    # manual re-post`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.NewReconcileCommand(nil))
	rootCmd.AddCommand(cmd.NewHarvestCommand(nil))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
