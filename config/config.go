// Package config provides configuration management for the acdbot
// command-line tool. It supports loading configuration from a YAML file
// and environment variables; credentials are environment-only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultConfigFile       = ".github/ACDbot/config.yaml"
	DefaultMappingFile      = ".github/ACDbot/meeting_topic_mapping.json"
	DefaultCommitMessage    = "Update meeting-topic mapping"
	DefaultCommitAuthor     = "ACD Bot"
	DefaultCommitEmail      = "acdbot@users.noreply.github.com"
	DefaultBranch           = "main"
	DefaultDiscourseBaseURL = "https://ethereum-magicians.org"
	DefaultCategoryID       = 63
	DefaultGracePeriod      = 3 * time.Hour
	DefaultMaxAttempts      = 10
	DefaultRecentWindow     = 5
)

// GitHubConfig holds issue-tracker and checkpoint settings.
type GitHubConfig struct {
	// Repository is the owner/name of the repository holding the issues
	// and the mapping file.
	Repository string `yaml:"repository,omitempty"`

	// Branch is the ref the mapping-file checkpoint is committed to.
	Branch string `yaml:"branch,omitempty"`

	// MappingFile is the repository-relative path of the mapping file.
	MappingFile string `yaml:"mapping_file,omitempty"`

	// CommitAuthorName and CommitAuthorEmail identify the bot in
	// checkpoint commits.
	CommitAuthorName  string `yaml:"commit_author_name,omitempty"`
	CommitAuthorEmail string `yaml:"commit_author_email,omitempty"`

	// CommitMessage is the fixed message used for every checkpoint.
	CommitMessage string `yaml:"commit_message,omitempty"`

	// Token is the API token. Environment-only (GITHUB_TOKEN), never
	// read from the config file.
	Token string `yaml:"-"`
}

// DiscourseConfig holds discussion-forum settings.
type DiscourseConfig struct {
	// BaseURL is the forum root, e.g. https://ethereum-magicians.org.
	BaseURL string `yaml:"base_url,omitempty"`

	// CategoryID is the category new topics are created in.
	CategoryID int `yaml:"category_id,omitempty"`

	// APIUsername is the acting forum user.
	APIUsername string `yaml:"api_username,omitempty"`

	// APIKey is environment-only (DISCOURSE_API_KEY).
	APIKey string `yaml:"-"`
}

// ZoomConfig holds meeting-provider settings. The three credential
// fields back a server-to-server OAuth app and are environment-only
// (ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID, ZOOM_CLIENT_SECRET).
type ZoomConfig struct {
	AccountID    string `yaml:"-"`
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
}

// CalendarConfig holds calendar settings.
type CalendarConfig struct {
	// CalendarID is the target calendar, e.g. a group calendar address.
	CalendarID string `yaml:"calendar_id,omitempty"`

	// AccessToken is environment-only (GCAL_ACCESS_TOKEN).
	AccessToken string `yaml:"-"`
}

// TelegramConfig holds chat-notification settings. Notifications are
// best-effort; an unset token disables them.
type TelegramConfig struct {
	// ChatID is the destination chat or channel.
	ChatID string `yaml:"chat_id,omitempty"`

	// BotToken is environment-only (TELEGRAM_BOT_TOKEN).
	BotToken string `yaml:"-"`
}

// HarvestConfig holds tunables for the transcript harvester.
type HarvestConfig struct {
	// GracePeriod is how long after a meeting's end time the provider is
	// assumed to need before the transcript exists.
	GracePeriod time.Duration `yaml:"grace_period,omitempty"`

	// MaxUploadAttempts is the terminal retry ceiling per meeting.
	MaxUploadAttempts int `yaml:"max_upload_attempts,omitempty"`

	// RecentWindow is how many of the newest mapping entries the sweep
	// checks before falling back to the provider's recording list.
	RecentWindow int `yaml:"recent_window,omitempty"`
}

// UnmarshalYAML decodes HarvestConfig, accepting grace_period as a
// duration string like "3h". Absent fields keep their current values.
func (h *HarvestConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		GracePeriod       string `yaml:"grace_period"`
		MaxUploadAttempts int    `yaml:"max_upload_attempts"`
		RecentWindow      int    `yaml:"recent_window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.GracePeriod != "" {
		d, err := time.ParseDuration(raw.GracePeriod)
		if err != nil {
			return fmt.Errorf("parsing harvest.grace_period: %w", err)
		}
		h.GracePeriod = d
	}
	if raw.MaxUploadAttempts > 0 {
		h.MaxUploadAttempts = raw.MaxUploadAttempts
	}
	if raw.RecentWindow > 0 {
		h.RecentWindow = raw.RecentWindow
	}
	return nil
}

// Config is the full acdbot configuration.
type Config struct {
	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`

	// LogJSON enables JSON log output (set automatically in CI).
	LogJSON bool `yaml:"log_json,omitempty"`

	GitHub    GitHubConfig    `yaml:"github"`
	Discourse DiscourseConfig `yaml:"discourse"`
	Zoom      ZoomConfig      `yaml:"zoom"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Harvest   HarvestConfig   `yaml:"harvest"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		GitHub: GitHubConfig{
			Branch:            DefaultBranch,
			MappingFile:       DefaultMappingFile,
			CommitAuthorName:  DefaultCommitAuthor,
			CommitAuthorEmail: DefaultCommitEmail,
			CommitMessage:     DefaultCommitMessage,
		},
		Discourse: DiscourseConfig{
			BaseURL:    DefaultDiscourseBaseURL,
			CategoryID: DefaultCategoryID,
		},
		Harvest: HarvestConfig{
			GracePeriod:       DefaultGracePeriod,
			MaxUploadAttempts: DefaultMaxAttempts,
			RecentWindow:      DefaultRecentWindow,
		},
	}
}

// Load loads the configuration from an optional YAML file and the
// environment. Configuration is loaded in this order (later sources
// override earlier):
//  1. Default values
//  2. Config file (path, or ACDBOT_CONFIG, or the default location)
//  3. Environment variables (credentials are environment-only)
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("ACDBOT_CONFIG")
	}
	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// loadFromEnv overlays environment variables onto cfg.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("GITHUB_REPOSITORY"); v != "" {
		cfg.GitHub.Repository = v
	}
	if v := os.Getenv("GITHUB_REF_NAME"); v != "" {
		cfg.GitHub.Branch = v
	}
	cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")

	if v := os.Getenv("DISCOURSE_BASE_URL"); v != "" {
		cfg.Discourse.BaseURL = v
	}
	if v := os.Getenv("DISCOURSE_API_USERNAME"); v != "" {
		cfg.Discourse.APIUsername = v
	}
	cfg.Discourse.APIKey = os.Getenv("DISCOURSE_API_KEY")

	cfg.Zoom.AccountID = os.Getenv("ZOOM_ACCOUNT_ID")
	cfg.Zoom.ClientID = os.Getenv("ZOOM_CLIENT_ID")
	cfg.Zoom.ClientSecret = os.Getenv("ZOOM_CLIENT_SECRET")

	if v := os.Getenv("GCAL_CALENDAR_ID"); v != "" {
		cfg.Calendar.CalendarID = v
	}
	cfg.Calendar.AccessToken = os.Getenv("GCAL_ACCESS_TOKEN")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	if v := os.Getenv("ACDBOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ACDBOT_LOG_JSON"); v == "true" || v == "1" {
		cfg.LogJSON = true
	}
	if v := os.Getenv("ACDBOT_GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Harvest.GracePeriod = d
		}
	}
	if v := os.Getenv("ACDBOT_MAX_UPLOAD_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Harvest.MaxUploadAttempts = n
		}
	}
}
