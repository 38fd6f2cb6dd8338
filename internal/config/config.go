// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/danielolaszy/stitch/pkg/models"
)

// Sync target strategies. Exactly one is active per deployment.
const (
	// TargetDescription stores markers in the pull request description.
	TargetDescription = "description"

	// TargetComments stores markers in the pull request comment stream.
	TargetComments = "comments"
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub GitHubConfig
	Jira   JiraConfig
	Sync   SyncConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string

	// FixStatusID and CloseStatusID are the numeric JIRA status ids that
	// merged pull requests transition issues to, for "fix" and "close"
	// annotations respectively.
	FixStatusID   int
	CloseStatusID int
}

// SyncConfig controls which workflows run and where markers are stored.
type SyncConfig struct {
	// OnOpen enables the link workflow for opened/edited pull requests.
	OnOpen bool

	// OnMerge enables the transition workflow for merged pull requests.
	OnMerge bool

	// Target selects the marker surface: TargetDescription or TargetComments.
	Target string

	// BotLogin is the GitHub login of this tool's own account. Edit events
	// by this login are ignored to prevent feedback loops.
	BotLogin string
}

// LoadConfig initializes and loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Initialize Viper for environment variables
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("jira.fix_status_id", "JIRA_FIX_STATUS_ID")
	v.BindEnv("jira.close_status_id", "JIRA_CLOSE_STATUS_ID")
	v.BindEnv("sync.on_open", "SYNC_ON_OPEN")
	v.BindEnv("sync.on_merge", "SYNC_ON_MERGE")
	v.BindEnv("sync.target", "SYNC_TARGET")
	v.BindEnv("sync.bot_login", "SYNC_BOT_LOGIN")

	v.SetDefault("github.domain", "github.com")
	v.SetDefault("sync.on_open", true)
	v.SetDefault("sync.on_merge", true)
	v.SetDefault("sync.target", TargetComments)

	// Create config structure
	config := &Config{
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		Jira: JiraConfig{
			URL:           v.GetString("jira.url"),
			Username:      v.GetString("jira.username"),
			Token:         v.GetString("jira.token"),
			FixStatusID:   v.GetInt("jira.fix_status_id"),
			CloseStatusID: v.GetInt("jira.close_status_id"),
		},
		Sync: SyncConfig{
			OnOpen:   v.GetBool("sync.on_open"),
			OnMerge:  v.GetBool("sync.on_merge"),
			Target:   v.GetString("sync.target"),
			BotLogin: v.GetString("sync.bot_login"),
		},
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig ensures that all required configuration values are provided.
func validateConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}
	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}
	if config.Jira.FixStatusID == 0 {
		missingVars = append(missingVars, "JIRA_FIX_STATUS_ID")
	}
	if config.Jira.CloseStatusID == 0 {
		missingVars = append(missingVars, "JIRA_CLOSE_STATUS_ID")
	}

	if len(missingVars) > 0 {
		return &models.ConfigurationError{Missing: missingVars}
	}

	if config.Sync.Target != TargetDescription && config.Sync.Target != TargetComments {
		return fmt.Errorf("invalid SYNC_TARGET %q: must be %q or %q",
			config.Sync.Target, TargetDescription, TargetComments)
	}

	return nil
}
