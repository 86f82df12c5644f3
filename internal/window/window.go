// Package window implements the allowed-hours gate that decides whether a
// run may alert at all. The gate fails closed: any misconfiguration (unknown
// timezone, malformed times) blocks dispatch rather than risking a call at
// 3am.
package window

import (
	"fmt"
	"time"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// Config describes the allowed time window. Days use 0=Monday .. 6=Sunday.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Timezone string `yaml:"timezone"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Days     []int  `yaml:"days"`
}

// DefaultConfig allows Mon-Fri 09:00-17:00 UTC.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Timezone: "UTC",
		Start:    "09:00",
		End:      "17:00",
		Days:     []int{0, 1, 2, 3, 4},
	}
}

// Allowed reports whether the current time falls inside the configured window.
func Allowed(cfg Config) bool {
	return IsWithin(cfg, time.Now())
}

// IsWithin reports whether now falls inside the configured window. A disabled
// window always allows execution. The window is inclusive on both ends and
// must not wrap midnight (start <= end).
func IsWithin(cfg Config, now time.Time) bool {
	if !cfg.Enabled {
		logging.Get().Debug().Msg("time window disabled, allowing execution")
		return true
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logging.Get().Error().Str("timezone", cfg.Timezone).Msg("unknown timezone, blocking execution")
		return false
	}
	local := now.In(loc)

	if !dayAllowed(cfg.Days, local.Weekday()) {
		logging.Get().Info().Str("day", local.Weekday().String()).Msg("outside allowed days")
		return false
	}

	startMin, err := parseClock(cfg.Start)
	if err != nil {
		logging.Get().Error().Str("start", cfg.Start).Err(err).Msg("invalid window start, blocking execution")
		return false
	}
	endMin, err := parseClock(cfg.End)
	if err != nil {
		logging.Get().Error().Str("end", cfg.End).Err(err).Msg("invalid window end, blocking execution")
		return false
	}

	nowMin := local.Hour()*60 + local.Minute()
	within := startMin <= nowMin && nowMin <= endMin
	logging.Get().Debug().
		Str("now", local.Format("15:04")).
		Str("window", cfg.Start+"-"+cfg.End).
		Bool("within", within).
		Msg("time window check")
	return within
}

// dayAllowed maps Go's Sunday-first weekday onto the configured Monday-first
// ordinals before testing membership.
func dayAllowed(days []int, wd time.Weekday) bool {
	ordinal := (int(wd) + 6) % 7
	for _, d := range days {
		if d == ordinal {
			return true
		}
	}
	return false
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if n, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || n != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return h*60 + m, nil
}
