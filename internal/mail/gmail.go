package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// gmailAPIBase can be overridden in tests.
var gmailAPIBase = "https://gmail.googleapis.com/gmail/v1"

var googleTokenURL = "https://oauth2.googleapis.com/token"

// Credentials holds the offline-access OAuth material for a Gmail account.
// The refresh token is obtained once via an interactive consent flow and
// kept in the environment afterwards.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// GmailClient implements Client against the Gmail REST API.
type GmailClient struct {
	creds      Credentials
	httpClient *http.Client
}

func NewGmailClient(creds Credentials) *GmailClient {
	return &GmailClient{creds: creds}
}

// Connect builds an auto-refreshing HTTP client from the stored refresh
// token and verifies it can mint an access token.
func (g *GmailClient) Connect(ctx context.Context) error {
	if !g.creds.complete() {
		return errors.New("gmail credentials incomplete: need client id, client secret and refresh token")
	}
	conf := &oauth2.Config{
		ClientID:     g.creds.ClientID,
		ClientSecret: g.creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.modify"},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: g.creds.RefreshToken})
	if _, err := ts.Token(); err != nil {
		return fmt.Errorf("gmail token refresh: %w", err)
	}
	g.httpClient = oauth2.NewClient(ctx, ts)
	g.httpClient.Timeout = 10 * time.Second
	logging.Get().Info().Msg("connected to gmail api")
	return nil
}

// List fetches inbox messages matching the given constraints. The query is
// expressed in Gmail search syntax and evaluated server-side.
func (g *GmailClient) List(ctx context.Context, senderFilter string, onlyUnread bool) ([]Message, error) {
	if g.httpClient == nil {
		return nil, errors.New("gmail client not connected")
	}

	query := buildQuery(senderFilter, onlyUnread)
	logging.Get().Debug().Str("query", query).Msg("querying gmail")

	listURL := fmt.Sprintf("%s/users/me/messages?q=%s", gmailAPIBase, url.QueryEscape(query))
	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := g.getJSON(ctx, listURL, &list); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return nil, nil
	}

	out := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := g.fetchMessage(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", ref.ID, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// MarkRead removes the UNREAD label from the given message ids.
func (g *GmailClient) MarkRead(ctx context.Context, ids []string) error {
	if g.httpClient == nil {
		return errors.New("gmail client not connected")
	}
	body, _ := json.Marshal(map[string][]string{"removeLabelIds": {"UNREAD"}})
	for _, id := range ids {
		endpoint := fmt.Sprintf("%s/users/me/messages/%s/modify", gmailAPIBase, url.PathEscape(id))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := g.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("mark read %s: %w", id, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("mark read %s: status %d", id, resp.StatusCode)
		}
	}
	return nil
}

func buildQuery(senderFilter string, onlyUnread bool) string {
	parts := []string{"label:INBOX"}
	if onlyUnread {
		parts = append(parts, "is:unread")
	}
	if senderFilter != "" {
		parts = append(parts, "from:"+senderFilter)
	}
	return strings.Join(parts, " ")
}

// gmailMessage mirrors the fields we need from messages.get format=full.
type gmailMessage struct {
	ID           string    `json:"id"`
	Snippet      string    `json:"snippet"`
	InternalDate string    `json:"internalDate"`
	LabelIDs     []string  `json:"labelIds"`
	Payload      gmailPart `json:"payload"`
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

func (g *GmailClient) fetchMessage(ctx context.Context, id string) (Message, error) {
	endpoint := fmt.Sprintf("%s/users/me/messages/%s?format=full", gmailAPIBase, url.PathEscape(id))
	var raw gmailMessage
	if err := g.getJSON(ctx, endpoint, &raw); err != nil {
		return Message{}, err
	}

	subject := header(raw.Payload.Headers, "Subject")
	if subject == "" {
		subject = "(No Subject)"
	}
	sender := header(raw.Payload.Headers, "From")
	if sender == "" {
		sender = "(Unknown)"
	}

	var receivedAt time.Time
	if ms, err := strconv.ParseInt(raw.InternalDate, 10, 64); err == nil {
		receivedAt = time.UnixMilli(ms)
	}

	body := extractBody(raw.Payload)
	if body == "" {
		body = raw.Snippet
	}

	read := true
	for _, l := range raw.LabelIDs {
		if l == "UNREAD" {
			read = false
			break
		}
	}

	return Message{
		ID:         raw.ID,
		Sender:     sender,
		Subject:    subject,
		Body:       body,
		Snippet:    raw.Snippet,
		ReceivedAt: receivedAt,
		Read:       read,
	}, nil
}

// extractBody walks the MIME tree and concatenates text/plain parts, falling
// back to the top-level body for single-part messages.
func extractBody(p gmailPart) string {
	if len(p.Parts) == 0 {
		return decodeBody(p.Body.Data)
	}
	var b strings.Builder
	for _, part := range p.Parts {
		if part.MimeType == "text/plain" {
			b.WriteString(decodeBody(part.Body.Data))
		} else if len(part.Parts) > 0 {
			b.WriteString(extractBody(part))
		}
	}
	return b.String()
}

func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		logging.Get().Debug().Err(err).Msg("failed to decode message part")
		return ""
	}
	return string(decoded)
}

func header(headers []struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}, name string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

func (g *GmailClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
