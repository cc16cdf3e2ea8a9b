package cmd

import (
	"context"
	"fmt"

	"github.com/ethcatherders/acdbot/config"
	"github.com/ethcatherders/acdbot/pkg/harvest"
	"github.com/ethcatherders/acdbot/pkg/logging"
	"github.com/ethcatherders/acdbot/pkg/mapping"
	"github.com/ethcatherders/acdbot/pkg/providers/discourse"
	"github.com/ethcatherders/acdbot/pkg/providers/gcal"
	"github.com/ethcatherders/acdbot/pkg/providers/github"
	"github.com/ethcatherders/acdbot/pkg/providers/telegram"
	"github.com/ethcatherders/acdbot/pkg/providers/zoom"
	"github.com/ethcatherders/acdbot/pkg/reconcile"
	"github.com/ethcatherders/acdbot/pkg/transcript"
)

// issueSourceAdapter maps the GitHub client onto the reconciler's
// issue surface.
type issueSourceAdapter struct {
	c *github.Client
}

func (a issueSourceAdapter) GetIssue(ctx context.Context, number int) (reconcile.Issue, error) {
	issue, err := a.c.GetIssue(ctx, number)
	if err != nil {
		return reconcile.Issue{}, err
	}
	return reconcile.Issue{
		Number: issue.Number,
		Title:  issue.Title,
		Body:   issue.Body,
		URL:    issue.URL,
	}, nil
}

func (a issueSourceAdapter) PostComment(ctx context.Context, number int, text string) error {
	return a.c.PostComment(ctx, number, text)
}

// recordingListerAdapter maps the Zoom client onto the harvester's
// recording surface.
type recordingListerAdapter struct {
	c *zoom.Client
}

func (a recordingListerAdapter) ListRecentRecordings(ctx context.Context) ([]harvest.Recording, error) {
	recs, err := a.c.ListRecentRecordings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]harvest.Recording, len(recs))
	for i, r := range recs {
		out[i] = harvest.Recording{ID: r.ID, Topic: r.Topic, EndTime: r.EndTime}
	}
	return out, nil
}

// newGitHubClient validates the GitHub settings and builds the client
// used both as issue source and as mapping checkpointer.
func newGitHubClient(cfg *config.Config) (*github.Client, error) {
	if cfg.GitHub.Repository == "" {
		return nil, fmt.Errorf("github repository is not configured (set GITHUB_REPOSITORY)")
	}
	if cfg.GitHub.Token == "" {
		return nil, fmt.Errorf("github token is not configured (set GITHUB_TOKEN)")
	}
	return github.NewClient(cfg.GitHub.Repository, cfg.GitHub.Token, github.CommitOptions{
		Path:        cfg.GitHub.MappingFile,
		Branch:      cfg.GitHub.Branch,
		Message:     cfg.GitHub.CommitMessage,
		AuthorName:  cfg.GitHub.CommitAuthorName,
		AuthorEmail: cfg.GitHub.CommitAuthorEmail,
	}), nil
}

// newMappingStore builds the mapping store, checkpointing through gh.
func newMappingStore(cfg *config.Config, gh *github.Client, log logging.Logger) *mapping.Store {
	return mapping.NewStore(cfg.GitHub.MappingFile, gh, log)
}

// newNotifier builds the Telegram notifier, or nil when the bot token
// is absent and notifications are disabled.
func newNotifier(cfg *config.Config) reconcile.Notifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return nil
	}
	return telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

// buildReconciler wires the production reconciler from configuration.
func buildReconciler(cfg *config.Config, log logging.Logger) (issueFetcher, issueReconciler, error) {
	gh, err := newGitHubClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	issues := issueSourceAdapter{c: gh}
	forum := discourse.NewClient(cfg.Discourse.BaseURL, cfg.Discourse.APIKey, cfg.Discourse.APIUsername)
	meetings := zoom.NewClient(cfg.Zoom.AccountID, cfg.Zoom.ClientID, cfg.Zoom.ClientSecret)
	calendar := gcal.NewClient(cfg.Calendar.AccessToken)
	store := newMappingStore(cfg, gh, log)

	rec := reconcile.New(issues, forum, meetings, calendar, newNotifier(cfg), store, reconcile.Options{
		DiscourseBaseURL: cfg.Discourse.BaseURL,
		CategoryID:       cfg.Discourse.CategoryID,
		CalendarID:       cfg.Calendar.CalendarID,
	}, log)
	return issues, rec, nil
}

// buildHarvester wires the production harvester from configuration.
func buildHarvester(cfg *config.Config, log logging.Logger) (transcriptHarvester, error) {
	gh, err := newGitHubClient(cfg)
	if err != nil {
		return nil, err
	}

	zm := zoom.NewClient(cfg.Zoom.AccountID, cfg.Zoom.ClientID, cfg.Zoom.ClientSecret)
	forum := discourse.NewClient(cfg.Discourse.BaseURL, cfg.Discourse.APIKey, cfg.Discourse.APIUsername)
	publisher := transcript.NewPublisher(zm, forum, cfg.Discourse.CategoryID, log)
	store := newMappingStore(cfg, gh, log)

	return harvest.New(store, recordingListerAdapter{c: zm}, publisher, harvest.Options{
		GracePeriod:       cfg.Harvest.GracePeriod,
		MaxUploadAttempts: cfg.Harvest.MaxUploadAttempts,
		RecentWindow:      cfg.Harvest.RecentWindow,
	}, log), nil
}

// newCommandLogger builds the per-run logger with a unique run id.
func newCommandLogger(cfg *config.Config, component, runID string) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:      logging.Level(cfg.LogLevel),
		Component:  component,
		JSONFormat: cfg.LogJSON,
	}).With(logging.F("run_id", runID))
}
