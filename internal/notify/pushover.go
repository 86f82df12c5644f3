package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// pushoverAPIURL can be overridden in tests.
var pushoverAPIURL = "https://api.pushover.net/1/messages.json"

// Pushover emergency-priority parameters: the provider re-alerts every
// retry seconds until acknowledged or expire seconds have passed.
const (
	pushoverRetrySeconds  = 30
	pushoverExpireSeconds = 3600
)

// Pushover sends a mobile push alert.
type Pushover struct {
	On       bool
	UserKey  string
	APIToken string
	Priority int
}

func (p *Pushover) Name() string { return "pushover" }

func (p *Pushover) Enabled() bool { return p.On }

func (p *Pushover) Send(ctx context.Context, message string) error {
	if !p.On {
		logging.Get().Info().Msg("pushover disabled by config, skipping")
		return nil
	}
	if p.UserKey == "" || p.APIToken == "" {
		return errors.New("pushover credentials (user_key or api_token) missing")
	}

	form := url.Values{
		"token":    {p.APIToken},
		"user":     {p.UserKey},
		"message":  {message},
		"priority": {strconv.Itoa(p.Priority)},
		"retry":    {strconv.Itoa(pushoverRetrySeconds)},
		"expire":   {strconv.Itoa(pushoverExpireSeconds)},
		"sound":    {"siren"},
	}

	logging.Get().Info().Int("priority", p.Priority).Msg("sending pushover notification")
	if err := postFormOK(ctx, pushoverAPIURL, form); err != nil {
		return fmt.Errorf("pushover: %w", err)
	}
	logging.Get().Info().Msg("pushover notification sent")
	return nil
}
