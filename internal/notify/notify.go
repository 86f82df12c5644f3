// Package notify provides the outbound notification channels and the
// ordered dispatch strategy that walks them. Channels never retry and never
// leak provider errors past Send; escalation and fallback are the manager's
// job.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Service is the capability every notification channel implements. A
// disabled channel's Send returns nil without any network call: a skipped
// optional channel must never block a stop-after-success chain or count as a
// real failure.
type Service interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, message string) error
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// getOK issues a GET and treats any transport error or non-200 status as
// failure.
func getOK(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// postFormOK issues a form POST and treats any transport error or non-200
// status as failure.
func postFormOK(ctx context.Context, rawURL string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
