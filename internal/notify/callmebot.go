package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// callMeBotAPIBase can be overridden in tests.
var callMeBotAPIBase = "http://api.callmebot.com"

// CallMeBot places a Telegram voice call through the CallMeBot gateway and
// reads the message aloud. The recipient must have authorized the bot once.
type CallMeBot struct {
	On       bool
	Username string
}

func (c *CallMeBot) Name() string { return "telegram_call" }

func (c *CallMeBot) Enabled() bool { return c.On }

// Send triggers the call. Success means the gateway accepted the request,
// not that the call was answered.
func (c *CallMeBot) Send(ctx context.Context, message string) error {
	if !c.On {
		logging.Get().Info().Msg("telegram call disabled by config, skipping")
		return nil
	}
	if c.Username == "" {
		return errors.New("telegram username not configured, cannot place call")
	}

	endpoint := fmt.Sprintf("%s/start.php?user=%s&text=%s&lang=en-US-Standard-B&rpt=2",
		callMeBotAPIBase, url.QueryEscape(c.Username), url.QueryEscape(message))

	logging.Get().Info().Str("user", c.Username).Msg("initiating telegram call")
	if err := getOK(ctx, endpoint); err != nil {
		return fmt.Errorf("callmebot: %w", err)
	}
	logging.Get().Info().Msg("call initiated")
	return nil
}
