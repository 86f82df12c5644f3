// Package config loads agent configuration from a YAML file with
// environment variable overrides on top. Secrets (session tokens, OAuth
// material, API keys) are expected in the environment, never in the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eduardhabryd/slack-alert-agent/internal/mail"
	"github.com/eduardhabryd/slack-alert-agent/internal/window"
)

// Config is the root configuration for one agent run.
type Config struct {
	WorkingHours  window.Config       `yaml:"working_hours"`
	Email         mail.FilterConfig   `yaml:"email"`
	Meet          mail.FilterConfig   `yaml:"meet"`
	Slack         SlackConfig         `yaml:"slack"`
	Gmail         GmailConfig         `yaml:"gmail"`
	Notifications NotificationsConfig `yaml:"notifications"`
	State         StateConfig         `yaml:"state"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	History       HistoryConfig       `yaml:"history"`
	// Schedule is a cron expression for daemon mode; empty means run once
	// and exit (the normal per-tick invocation).
	Schedule string    `yaml:"schedule"`
	Log      LogConfig `yaml:"log"`
}

// SlackConfig identifies the workspace. Token and cookie come from the
// environment.
type SlackConfig struct {
	WorkspaceURL string `yaml:"workspace_url"`
	Token        string `yaml:"-"`
	Cookie       string `yaml:"-"`
}

// GmailConfig carries the OAuth material, environment-only.
type GmailConfig struct {
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	RefreshToken string `yaml:"-"`
}

// StrategyConfig is the ordered escalation policy across channels.
type StrategyConfig struct {
	Order            []string `yaml:"order"`
	StopAfterSuccess bool     `yaml:"stop_after_success"`
}

// CallConfig configures the voice-call channel.
type CallConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Message  string `yaml:"message"`
}

// PushoverConfig configures the push channel. UserKey and APIToken come from
// the environment.
type PushoverConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Priority int    `yaml:"priority"`
	UserKey  string `yaml:"-"`
	APIToken string `yaml:"-"`
}

type NotificationsConfig struct {
	Strategy     StrategyConfig `yaml:"strategy"`
	TelegramCall CallConfig     `yaml:"telegram_call"`
	Pushover     PushoverConfig `yaml:"pushover"`
}

// StateConfig selects the ledger backend.
type StateConfig struct {
	Backend  string `yaml:"backend"` // "file" or "redis"
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a configuration that works without a file as long as
// the secrets are present in the environment.
func DefaultConfig() *Config {
	return &Config{
		WorkingHours: window.DefaultConfig(),
		Email: mail.FilterConfig{
			Sender: "notification@slack.com",
		},
		Meet: mail.FilterConfig{
			Sender:          "calendar-notification@google.com",
			SubjectKeywords: []string{"invitation", "canceled", "updated"},
		},
		Notifications: NotificationsConfig{
			Strategy: StrategyConfig{
				Order:            []string{"telegram_call", "pushover"},
				StopAfterSuccess: true,
			},
			TelegramCall: CallConfig{
				Enabled: true,
				Message: "Urgent Slack notification detected.",
			},
			Pushover: PushoverConfig{
				Enabled:  true,
				Priority: 2,
			},
		},
		State: StateConfig{
			Backend: "file",
			Path:    "state.json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadFromFile reads YAML over the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate returns non-fatal warnings, mostly about credential combinations
// that will make a channel fail at send time.
func (c *Config) Validate() []string {
	var warnings []string
	checks := []struct {
		cond bool
		msg  string
	}{
		{c.Notifications.TelegramCall.Enabled && c.Notifications.TelegramCall.Username == "",
			"telegram call enabled but username is missing (set TELEGRAM_USERNAME)"},
		{c.Notifications.Pushover.Enabled && (c.Notifications.Pushover.UserKey == "" || c.Notifications.Pushover.APIToken == ""),
			"pushover enabled but credentials are incomplete (set PUSHOVER_USER_KEY and PUSHOVER_API_TOKEN)"},
		{c.Slack.WorkspaceURL != "" && (c.Slack.Token == "" || c.Slack.Cookie == ""),
			"slack workspace configured but session credentials are missing (set SLACK_TOKEN and SLACK_COOKIE)"},
		{c.State.Backend == "redis" && c.State.RedisURL == "",
			"state backend is redis but redis_url is empty"},
		{len(c.Notifications.Strategy.Order) == 0,
			"notification strategy order is empty; no channel will ever be invoked"},
	}
	for _, ch := range checks {
		if ch.cond {
			warnings = append(warnings, ch.msg)
		}
	}
	for _, d := range c.WorkingHours.Days {
		if d < 0 || d > 6 {
			warnings = append(warnings, fmt.Sprintf("working_hours day %d is outside 0-6 (0=Monday)", d))
		}
	}
	return warnings
}
