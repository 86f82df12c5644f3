package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduardhabryd/slack-alert-agent/internal/agent"
	"github.com/eduardhabryd/slack-alert-agent/internal/config"
	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
	"github.com/eduardhabryd/slack-alert-agent/internal/metrics"
)

func main() {
	cfgFile := flag.String("config", "", "Path to config file")
	schedule := flag.String("schedule", "", "Cron schedule for daemon mode (overrides config; empty = run once)")
	showHistory := flag.Int("show-history", 0, "Print the last N dispatch log entries and exit")
	flag.Parse()

	cfg := loadConfigOrFatal(*cfgFile)
	if *schedule != "" {
		cfg.Schedule = *schedule
	}

	cleanup := initLogging(cfg)
	defer cleanup()

	initMetrics(cfg)

	ctx := context.Background()
	a, err := agent.New(ctx, cfg)
	if err != nil {
		logging.Get().Fatal().Err(err).Msg("failed to initialize agent")
	}
	defer a.Close()

	if *showHistory > 0 {
		printHistory(ctx, a, *showHistory)
		return
	}

	runAndWait(ctx, cfg, a)
}

// loadConfigOrFatal builds the configuration from defaults, the optional
// file, and environment overrides, in that precedence order.
func loadConfigOrFatal(path string) *config.Config {
	cfg := config.DefaultConfig()
	if path != "" {
		c, err := config.LoadFromFile(path)
		if err != nil {
			log.Fatalf("failed loading config: %v", err)
		}
		cfg = c
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		log.Fatalf("invalid environment configuration: %v", err)
	}
	return cfg
}

// initLogging initializes the log subsystem and returns a cleanup func.
func initLogging(cfg *config.Config) func() {
	cleanup, err := logging.Init(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	return cleanup
}

// initMetrics starts the optional metrics server.
func initMetrics(cfg *config.Config) {
	if !cfg.Metrics.Enabled {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.PromHandler())
		mux.Handle("/status", metrics.JSONHandler())
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		logging.Get().Info().Str("addr", addr).Msg("starting metrics server")
		_ = http.ListenAndServe(addr, mux)
	}()
}

func printHistory(ctx context.Context, a *agent.Agent, n int) {
	entries, err := a.History().Recent(ctx, n)
	if err != nil {
		logging.Get().Fatal().Err(err).Msg("failed to read dispatch history")
	}
	if len(entries) == 0 {
		fmt.Println("no dispatch history recorded")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-11s signals=%-3d %-8s %s\n",
			e.At.Format("2006-01-02 15:04:05"), e.Source, e.Signals, e.Outcome, e.Message)
	}
}

// runAndWait runs a single pass when no schedule is configured, or the
// daemon loop until a shutdown signal otherwise. Panics are caught so
// the operator still hears about a broken agent.
func runAndWait(ctx context.Context, cfg *config.Config, a *agent.Agent) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get().Error().Interface("panic", r).Msg("unexpected failure")
			a.Alert(context.Background(), fmt.Sprintf("Alert agent crashed: %v", r))
			os.Exit(1)
		}
	}()

	if cfg.Schedule == "" {
		if err := a.RunOnce(ctx); err != nil {
			logging.Get().Error().Err(err).Msg("pass failed")
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logging.Get().Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := a.Start(ctx); err != nil {
		logging.Get().Error().Err(err).Msg("daemon stopped with error")
		os.Exit(1)
	}
}
