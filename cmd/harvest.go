package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ethcatherders/acdbot/config"
	"github.com/ethcatherders/acdbot/pkg/logging"
)

// transcriptHarvester runs one harvest pass.
type transcriptHarvester interface {
	Harvest(ctx context.Context, forcedID string) error
}

// HarvestCommandDeps holds the dependencies for the harvest command.
type HarvestCommandDeps struct {
	LoadConfig func(path string) (*config.Config, error)
	Build      func(cfg *config.Config, log logging.Logger) (transcriptHarvester, error)
}

// DefaultHarvestDeps returns the default dependencies for production use.
func DefaultHarvestDeps() *HarvestCommandDeps {
	return &HarvestCommandDeps{
		LoadConfig: config.Load,
		Build:      buildHarvester,
	}
}

// NewHarvestCommand creates the harvest command.
func NewHarvestCommand(deps *HarvestCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultHarvestDeps()
	}

	var meetingID string
	var configPath string

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Post finished meetings' transcripts to their topics",
		Long: `Harvest sweeps the meeting-topic mapping for recorded meetings whose
transcripts have not been posted yet, downloads each transcript and
replies to the meeting's discussion topic with it. With --meeting it
processes exactly that meeting regardless of its processed state.

Intended to run on a schedule:

  acdbot harvest
  acdbot harvest --meeting 84000000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(cmd.Context(), deps, meetingID, configPath)
		},
	}

	cmd.Flags().StringVar(&meetingID, "meeting", "", "Meeting ID to force-process")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path")

	return cmd
}

func runHarvest(ctx context.Context, deps *HarvestCommandDeps, meetingID, configPath string) error {
	cfg, err := deps.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := newCommandLogger(cfg, "harvest", uuid.NewString())

	harvester, err := deps.Build(cfg, log)
	if err != nil {
		return err
	}

	if err := harvester.Harvest(ctx, meetingID); err != nil {
		return fmt.Errorf("harvesting transcripts: %w", err)
	}
	return nil
}
