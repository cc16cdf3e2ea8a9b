package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ethcatherders/acdbot/config"
	"github.com/ethcatherders/acdbot/pkg/logging"
	"github.com/ethcatherders/acdbot/pkg/reconcile"
)

// issueFetcher reads the issue to reconcile.
type issueFetcher interface {
	GetIssue(ctx context.Context, number int) (reconcile.Issue, error)
}

// issueReconciler runs the per-issue sync.
type issueReconciler interface {
	Reconcile(ctx context.Context, issue reconcile.Issue) (*reconcile.Result, error)
}

// ReconcileCommandDeps holds the dependencies for the reconcile command.
type ReconcileCommandDeps struct {
	LoadConfig func(path string) (*config.Config, error)
	Build      func(cfg *config.Config, log logging.Logger) (issueFetcher, issueReconciler, error)
}

// DefaultReconcileDeps returns the default dependencies for production use.
func DefaultReconcileDeps() *ReconcileCommandDeps {
	return &ReconcileCommandDeps{
		LoadConfig: config.Load,
		Build:      buildReconciler,
	}
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(deps *ReconcileCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultReconcileDeps()
	}

	var issueNumber int
	var configPath string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Sync one issue's topic, meeting and calendar event",
		Long: `Reconcile reads a meeting issue, extracts its schedule and converges
the discussion topic, the Zoom meeting and the calendar event toward it,
recording the outcome in the committed meeting-topic mapping.

Intended to run from an issue-triggered workflow:

  acdbot reconcile --issue 1234`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), deps, issueNumber, configPath)
		},
	}

	cmd.Flags().IntVar(&issueNumber, "issue", 0, "Issue number to reconcile")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path")

	return cmd
}

func runReconcile(ctx context.Context, deps *ReconcileCommandDeps, issueNumber int, configPath string) error {
	cfg, err := deps.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := newCommandLogger(cfg, "reconcile", uuid.NewString())

	// A workflow run without an issue number has nothing to converge.
	// That is a clean no-op, not a failure.
	if issueNumber <= 0 {
		log.Warn("no issue number provided, nothing to do")
		return nil
	}

	fetcher, reconciler, err := deps.Build(cfg, log)
	if err != nil {
		return err
	}

	issue, err := fetcher.GetIssue(ctx, issueNumber)
	if err != nil {
		return fmt.Errorf("fetching issue %d: %w", issueNumber, err)
	}

	result, err := reconciler.Reconcile(ctx, issue)
	if err != nil {
		return fmt.Errorf("reconciling issue %d: %w", issueNumber, err)
	}

	fmt.Printf("Topic %d %s: %s\n", result.TopicID, result.TopicAction, result.TopicURL)
	if result.ParseFailure != "" {
		fmt.Printf("Meeting setup skipped: %s\n", result.ParseFailure)
		return nil
	}
	if result.MeetingID != "" {
		fmt.Printf("Meeting %s %s\n", result.MeetingID, result.MeetingAction)
	}
	if result.CalendarEventID != "" {
		fmt.Printf("Calendar event: %s\n", result.CalendarEventID)
	}
	return nil
}
