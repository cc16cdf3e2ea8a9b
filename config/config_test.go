package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultMappingFile, cfg.GitHub.MappingFile)
	assert.Equal(t, DefaultCommitMessage, cfg.GitHub.CommitMessage)
	assert.Equal(t, DefaultCategoryID, cfg.Discourse.CategoryID)
	assert.Equal(t, 3*time.Hour, cfg.Harvest.GracePeriod)
	assert.Equal(t, 10, cfg.Harvest.MaxUploadAttempts)
	assert.Equal(t, 5, cfg.Harvest.RecentWindow)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
discourse:
  base_url: https://forum.example.org
  category_id: 12
harvest:
  grace_period: 1h
  max_upload_attempts: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://forum.example.org", cfg.Discourse.BaseURL)
	assert.Equal(t, 12, cfg.Discourse.CategoryID)
	assert.Equal(t, time.Hour, cfg.Harvest.GracePeriod)
	assert.Equal(t, 3, cfg.Harvest.MaxUploadAttempts)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultBranch, cfg.GitHub.Branch)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))

	t.Setenv("ACDBOT_LOG_LEVEL", "error")
	t.Setenv("GITHUB_TOKEN", "ghs_test")
	t.Setenv("GITHUB_REPOSITORY", "ethereum/pm")
	t.Setenv("GITHUB_REF_NAME", "master")
	t.Setenv("ACDBOT_GRACE_PERIOD", "90m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "ghs_test", cfg.GitHub.Token)
	assert.Equal(t, "ethereum/pm", cfg.GitHub.Repository)
	assert.Equal(t, "master", cfg.GitHub.Branch)
	assert.Equal(t, 90*time.Minute, cfg.Harvest.GracePeriod)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCategoryID, cfg.Discourse.CategoryID)
}

func TestLoad_CredentialsNeverReadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// A token smuggled into the YAML must be ignored.
	content := `
github:
  token: leaked
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.GitHub.Token)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [broken"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
