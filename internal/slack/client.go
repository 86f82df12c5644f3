// Package slack reads unread counts from Slack's internal client.counts
// endpoint using a browser session token and cookie. The response shape has
// drifted across Slack versions, so the parser carries a fallback chain and
// refuses to silently report zero when the shape is unrecognized.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// ErrAuthExpired is returned when Slack rejects the session credentials.
// Callers treat it as an alert in its own right: the operator has to refresh
// the token and cookie by hand.
var ErrAuthExpired = errors.New("slack session token/cookie is invalid or expired")

// APIError is any non-auth failure reported by or observed while talking to
// the Slack API. Code holds Slack's error token when one was returned.
type APIError struct {
	Code string
	Hint string
}

func (e *APIError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("slack api error: %s (%s)", e.Code, e.Hint)
	}
	return fmt.Sprintf("slack api error: %s", e.Code)
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// SessionClient talks to Slack's internal API with session credentials.
type SessionClient struct {
	token        string
	cookie       string
	workspaceURL string
	httpClient   *http.Client
}

// NewSessionClient builds a client for the given workspace. workspaceURL is
// the team domain (https://your-team.slack.com), not the app.slack.com web
// client URL.
func NewSessionClient(token, cookie, workspaceURL string) *SessionClient {
	trimmed := strings.TrimRight(workspaceURL, "/")
	if strings.Contains(trimmed, "app.slack.com") {
		logging.Get().Warn().
			Str("workspace_url", trimmed).
			Msg("workspace_url looks like the web client; use your team domain, e.g. https://your-company.slack.com")
	}
	return &SessionClient{
		token:        token,
		cookie:       cookie,
		workspaceURL: trimmed,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// countsResponse covers the client.counts shapes seen in the wild. Pointer
// fields distinguish "absent" from "zero" so a missing field can be detected.
type countsResponse struct {
	OK                 bool   `json:"ok"`
	Error              string `json:"error"`
	UnreadCountDisplay *int   `json:"unread_count_display"`
	ChannelBadges      *struct {
		Channels       int `json:"channels"`
		DMs            int `json:"dms"`
		ThreadMentions int `json:"thread_mentions"`
		AppDMs         int `json:"app_dms"`
		ThreadUnreads  int `json:"thread_unreads"`
	} `json:"channel_badges"`
}

// GetUnreadCount queries client.counts and returns the number of unread items
// a human is likely to care about. Returns ErrAuthExpired when the session is
// no longer valid, or an *APIError for any other failure.
func (c *SessionClient) GetUnreadCount(ctx context.Context) (int, error) {
	form := url.Values{
		"token": {c.token},
		"include_archived_channels_on_client_counts": {"1"},
	}
	endpoint := c.workspaceURL + "/api/client.counts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, &APIError{Code: "request_build_failed", Hint: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", "d="+c.cookie)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &APIError{Code: "unreachable", Hint: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, &APIError{Code: "read_failed", Hint: err.Error()}
	}

	var data countsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		snippet := string(body)
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		logging.Get().Error().Int("status", resp.StatusCode).Str("body", snippet).Msg("slack returned non-JSON response")
		if strings.Contains(snippet, "<!DOCTYPE html") || strings.Contains(snippet, "<html") {
			return 0, &APIError{
				Code: "html_response",
				Hint: "check workspace_url: it should be https://your-team.slack.com, not https://app.slack.com/client/...",
			}
		}
		return 0, &APIError{Code: fmt.Sprintf("invalid_response_status_%d", resp.StatusCode)}
	}

	if !data.OK {
		logging.Get().Error().Str("error", data.Error).Msg("slack api returned error")
		if data.Error == "invalid_auth" {
			return 0, ErrAuthExpired
		}
		return 0, &APIError{Code: data.Error}
	}

	return parseUnread(&data)
}

// parseUnread extracts the unread count with the version fallback chain:
// unread_count_display when present, otherwise the channel_badges mention
// counters. App/bot DMs and un-mentioned thread unreads are deliberately
// excluded: they are noise a human rarely wants a phone call about.
func parseUnread(data *countsResponse) (int, error) {
	if data.UnreadCountDisplay != nil {
		return *data.UnreadCountDisplay, nil
	}
	if data.ChannelBadges == nil {
		// Both known fields missing: the API shape changed. Surfacing an
		// error beats silently suppressing real alerts with a zero.
		return 0, &APIError{
			Code: "missing_counters",
			Hint: "response has neither unread_count_display nor channel_badges; API structure may have changed",
		}
	}
	b := data.ChannelBadges
	return b.Channels + b.DMs + b.ThreadMentions, nil
}

// ValidateSession reports whether the stored credentials are still accepted.
// Transient network failures also report false; callers who need to tell the
// cases apart should use GetUnreadCount directly.
func (c *SessionClient) ValidateSession(ctx context.Context) bool {
	_, err := c.GetUnreadCount(ctx)
	return err == nil
}
