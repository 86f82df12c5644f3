package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides reads configuration from environment variables and
// overrides fields in the provided Config. Secrets are only ever supplied
// this way. Returns an error when a value fails to parse.
//
// Supported variables:
//   - SLACK_TOKEN, SLACK_COOKIE, SLACK_WORKSPACE_URL
//   - GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET, GMAIL_REFRESH_TOKEN
//   - TELEGRAM_USERNAME
//   - PUSHOVER_USER_KEY, PUSHOVER_API_TOKEN
//   - WORKING_HOURS_START, WORKING_HOURS_END, WORKING_HOURS_DAYS ("0,1,2")
//   - AGENT_STATE_BACKEND, AGENT_STATE_PATH, AGENT_REDIS_URL
//   - AGENT_METRICS_ENABLED, AGENT_METRICS_PORT
//   - AGENT_HISTORY_PATH, AGENT_SCHEDULE
//   - AGENT_LOG_LEVEL, AGENT_LOG_FILE
func ApplyEnvOverrides(cfg *Config) error {
	applySecretEnv(cfg)
	applyWindowEnvStrings(cfg)
	if err := applyWindowDaysEnv(cfg); err != nil {
		return err
	}
	applyStateEnv(cfg)
	if err := applyRuntimeEnv(cfg); err != nil {
		return err
	}
	return nil
}

func applySecretEnv(cfg *Config) {
	setStringEnv("SLACK_TOKEN", &cfg.Slack.Token)
	setStringEnv("SLACK_COOKIE", &cfg.Slack.Cookie)
	setStringEnv("SLACK_WORKSPACE_URL", &cfg.Slack.WorkspaceURL)
	setStringEnv("GMAIL_CLIENT_ID", &cfg.Gmail.ClientID)
	setStringEnv("GMAIL_CLIENT_SECRET", &cfg.Gmail.ClientSecret)
	setStringEnv("GMAIL_REFRESH_TOKEN", &cfg.Gmail.RefreshToken)
	setStringEnv("TELEGRAM_USERNAME", &cfg.Notifications.TelegramCall.Username)
	setStringEnv("PUSHOVER_USER_KEY", &cfg.Notifications.Pushover.UserKey)
	setStringEnv("PUSHOVER_API_TOKEN", &cfg.Notifications.Pushover.APIToken)
}

func applyWindowEnvStrings(cfg *Config) {
	setStringEnv("WORKING_HOURS_START", &cfg.WorkingHours.Start)
	setStringEnv("WORKING_HOURS_END", &cfg.WorkingHours.End)
	setStringEnv("WORKING_HOURS_TIMEZONE", &cfg.WorkingHours.Timezone)
}

func applyWindowDaysEnv(cfg *Config) error {
	v := os.Getenv("WORKING_HOURS_DAYS")
	if v == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid WORKING_HOURS_DAYS %q: expected comma-separated integers", v)
		}
		days = append(days, d)
	}
	cfg.WorkingHours.Days = days
	return nil
}

func applyStateEnv(cfg *Config) {
	setStringEnv("AGENT_STATE_BACKEND", &cfg.State.Backend)
	setStringEnv("AGENT_STATE_PATH", &cfg.State.Path)
	setStringEnv("AGENT_REDIS_URL", &cfg.State.RedisURL)
}

func applyRuntimeEnv(cfg *Config) error {
	setStringEnv("AGENT_HISTORY_PATH", &cfg.History.Path)
	setStringEnv("AGENT_SCHEDULE", &cfg.Schedule)
	setStringEnv("AGENT_LOG_LEVEL", &cfg.Log.Level)
	setStringEnv("AGENT_LOG_FILE", &cfg.Log.File)

	if v := os.Getenv("AGENT_METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AGENT_METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = b
	}
	if v := os.Getenv("AGENT_METRICS_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AGENT_METRICS_PORT: %w", err)
		}
		cfg.Metrics.Port = p
	}
	return nil
}

func setStringEnv(env string, dst *string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
