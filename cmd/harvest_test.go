package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethcatherders/acdbot/config"
	"github.com/ethcatherders/acdbot/pkg/logging"
)

type fakeHarvester struct {
	err         error
	gotForcedID string
	calls       int
}

func (f *fakeHarvester) Harvest(ctx context.Context, forcedID string) error {
	f.calls++
	f.gotForcedID = forcedID
	return f.err
}

func testHarvestDeps(h *fakeHarvester) *HarvestCommandDeps {
	return &HarvestCommandDeps{
		LoadConfig: func(path string) (*config.Config, error) {
			return config.DefaultConfig(), nil
		},
		Build: func(cfg *config.Config, log logging.Logger) (transcriptHarvester, error) {
			return h, nil
		},
	}
}

func TestRunHarvestSweep(t *testing.T) {
	h := &fakeHarvester{}
	require.NoError(t, runHarvest(context.Background(), testHarvestDeps(h), "", ""))
	assert.Equal(t, 1, h.calls)
	assert.Empty(t, h.gotForcedID)
}

func TestRunHarvestForcedMeeting(t *testing.T) {
	h := &fakeHarvester{}
	require.NoError(t, runHarvest(context.Background(), testHarvestDeps(h), "84000000000", ""))
	assert.Equal(t, "84000000000", h.gotForcedID)
}

func TestRunHarvestFailure(t *testing.T) {
	h := &fakeHarvester{err: errors.New("transcript not ready")}
	err := runHarvest(context.Background(), testHarvestDeps(h), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "harvesting transcripts")
}

func TestRunHarvestBuildFailure(t *testing.T) {
	deps := testHarvestDeps(&fakeHarvester{})
	deps.Build = func(cfg *config.Config, log logging.Logger) (transcriptHarvester, error) {
		return nil, errors.New("github token is not configured")
	}
	require.Error(t, runHarvest(context.Background(), deps, "", ""))
}

func TestNewHarvestCommandFlags(t *testing.T) {
	cmd := NewHarvestCommand(nil)
	assert.Equal(t, "harvest", cmd.Use)
	require.NotNil(t, cmd.Flags().Lookup("meeting"))
	require.NotNil(t, cmd.Flags().Lookup("config"))
}
