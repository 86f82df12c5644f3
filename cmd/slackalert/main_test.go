package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("notifications:\n  pushover:\n    priority: 1\nschedule: \"*/10 * * * *\"\n")
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AGENT_SCHEDULE", "*/5 * * * *")

	cfg := loadConfigOrFatal(path)
	if cfg.Notifications.Pushover.Priority != 1 {
		t.Fatalf("file value not applied: priority=%d", cfg.Notifications.Pushover.Priority)
	}
	// Env wins over the file.
	if cfg.Schedule != "*/5 * * * *" {
		t.Fatalf("env override not applied: schedule=%q", cfg.Schedule)
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg := loadConfigOrFatal("")
	if len(cfg.Notifications.Strategy.Order) == 0 {
		t.Fatalf("default strategy order is empty")
	}
}

func TestGracefulShutdownSignal(t *testing.T) {
	sig := make(chan os.Signal, 1)
	done := make(chan bool, 1)

	go func() {
		<-sig
		done <- true
	}()

	sig <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("signal handler did not receive signal")
	}
}
