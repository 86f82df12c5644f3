package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Email.Sender != "notification@slack.com" {
		t.Errorf("unexpected default email sender: %s", cfg.Email.Sender)
	}
	if len(cfg.Notifications.Strategy.Order) == 0 {
		t.Error("default strategy order must not be empty")
	}
	if !cfg.Notifications.Strategy.StopAfterSuccess {
		t.Error("default strategy should stop after first success")
	}
	if cfg.State.Backend != "file" {
		t.Errorf("unexpected default state backend: %s", cfg.State.Backend)
	}
}

func TestLoadFromFile(t *testing.T) {
	yamlBody := `
working_hours:
  enabled: true
  timezone: Europe/Kyiv
  start: "10:00"
  end: "18:30"
  days: [0, 1, 2]
email:
  sender: notification@slack.com
  subject_keywords: ["new message", "mention"]
notifications:
  strategy:
    order: [pushover, telegram_call]
    stop_after_success: false
  telegram_call:
    enabled: true
    message: "Check Slack."
  pushover:
    enabled: false
    priority: 1
state:
  backend: redis
  redis_url: redis://localhost:6379/0
schedule: "*/5 * * * *"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.WorkingHours.Timezone != "Europe/Kyiv" || cfg.WorkingHours.End != "18:30" {
		t.Errorf("working hours not loaded: %+v", cfg.WorkingHours)
	}
	if len(cfg.Email.SubjectKeywords) != 2 {
		t.Errorf("subject keywords not loaded: %v", cfg.Email.SubjectKeywords)
	}
	if got := cfg.Notifications.Strategy.Order; len(got) != 2 || got[0] != "pushover" {
		t.Errorf("strategy order not loaded: %v", got)
	}
	if cfg.Notifications.Strategy.StopAfterSuccess {
		t.Error("stop_after_success=false not honored")
	}
	if cfg.Notifications.Pushover.Enabled {
		t.Error("pushover enabled=false not honored")
	}
	if cfg.State.Backend != "redis" || cfg.State.RedisURL == "" {
		t.Errorf("state config not loaded: %+v", cfg.State)
	}
	if cfg.Schedule != "*/5 * * * *" {
		t.Errorf("schedule not loaded: %q", cfg.Schedule)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n bad"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := DefaultConfig()
	// Defaults enable both channels without credentials and configure no
	// slack workspace: expect the two credential warnings.
	warnings := cfg.Validate()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings from bare defaults, got %d: %v", len(warnings), warnings)
	}

	cfg.Notifications.TelegramCall.Username = "@someone"
	cfg.Notifications.Pushover.UserKey = "u"
	cfg.Notifications.Pushover.APIToken = "t"
	if w := cfg.Validate(); len(w) != 0 {
		t.Errorf("expected no warnings with credentials set, got %v", w)
	}

	cfg.State.Backend = "redis"
	if w := cfg.Validate(); len(w) != 1 {
		t.Errorf("expected redis_url warning, got %v", w)
	}

	cfg.State.Backend = "file"
	cfg.WorkingHours.Days = []int{0, 9}
	if w := cfg.Validate(); len(w) != 1 {
		t.Errorf("expected out-of-range day warning, got %v", w)
	}
}
