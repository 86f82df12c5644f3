// Package agent wires the signal sources, the dedup ledger and the
// notification manager into a single run, and optionally keeps that run
// on a cron schedule.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eduardhabryd/slack-alert-agent/internal/config"
	"github.com/eduardhabryd/slack-alert-agent/internal/history"
	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
	"github.com/eduardhabryd/slack-alert-agent/internal/mail"
	"github.com/eduardhabryd/slack-alert-agent/internal/metrics"
	"github.com/eduardhabryd/slack-alert-agent/internal/notify"
	"github.com/eduardhabryd/slack-alert-agent/internal/slack"
	"github.com/eduardhabryd/slack-alert-agent/internal/state"
	"github.com/eduardhabryd/slack-alert-agent/internal/window"
)

// authExpiredMessage is dispatched when the Slack session token stops
// working. The run still exits non-zero afterwards.
const authExpiredMessage = "Slack session expired. Alert agent needs new credentials."

// UnreadCounter is the part of the Slack client the agent needs.
type UnreadCounter interface {
	GetUnreadCount(ctx context.Context) (int, error)
}

// Dispatcher is the part of the notification manager the agent needs.
type Dispatcher interface {
	Notify(ctx context.Context, message string) bool
}

// Agent runs one detection pass: gate on working hours, poll the
// sources, drop already-handled signals, dispatch, record.
type Agent struct {
	cfg     *config.Config
	mail    mail.Client
	slack   UnreadCounter
	ledger  state.Ledger
	manager Dispatcher
	history *history.Store
	Now     func() time.Time // injectable clock for testing
}

// New builds an agent with real components from the configuration.
// Validation warnings are logged, not fatal.
func New(ctx context.Context, cfg *config.Config) (*Agent, error) {
	for _, w := range cfg.Validate() {
		logging.Get().Warn().Str("warning", w).Msg("config validation")
	}

	a := &Agent{cfg: cfg, Now: time.Now}

	if cfg.Slack.WorkspaceURL != "" {
		a.slack = slack.NewSessionClient(cfg.Slack.Token, cfg.Slack.Cookie, cfg.Slack.WorkspaceURL)
	}
	if cfg.Gmail.ClientID != "" && cfg.Gmail.RefreshToken != "" {
		a.mail = mail.NewGmailClient(mail.Credentials{
			ClientID:     cfg.Gmail.ClientID,
			ClientSecret: cfg.Gmail.ClientSecret,
			RefreshToken: cfg.Gmail.RefreshToken,
		})
	}

	switch cfg.State.Backend {
	case "", "file":
		a.ledger = state.NewFileStore(cfg.State.Path)
	case "redis":
		st, err := state.NewRedisStore(ctx, cfg.State.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis ledger: %w", err)
		}
		a.ledger = st
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}

	a.manager = buildManager(cfg)

	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open dispatch history: %w", err)
	}
	a.history = hist

	return a, nil
}

// buildManager assembles the escalation chain from the configuration.
func buildManager(cfg *config.Config) *notify.Manager {
	n := cfg.Notifications
	return notify.NewManager(n.Strategy.Order, n.Strategy.StopAfterSuccess,
		&notify.CallMeBot{On: n.TelegramCall.Enabled, Username: n.TelegramCall.Username},
		&notify.Pushover{On: n.Pushover.Enabled, UserKey: n.Pushover.UserKey, APIToken: n.Pushover.APIToken, Priority: n.Pushover.Priority},
	)
}

// Close releases the agent's resources.
func (a *Agent) Close() error {
	return a.history.Close()
}

// History exposes the dispatch log for the CLI.
func (a *Agent) History() *history.Store { return a.history }

// Alert pushes a message through the escalation chain outside a normal
// pass. The CLI's crash handler uses it for a best-effort last word.
func (a *Agent) Alert(ctx context.Context, message string) bool {
	return a.manager.Notify(ctx, message)
}

// mailResult is what one pass over the mailbox produced. markRead
// holds the source ids whose filter wants them marked read after a
// successful dispatch.
type mailResult struct {
	notifs   []mail.Notification
	markRead map[string]bool
}

// RunOnce performs a single detection and dispatch pass. A nil return
// means the pass completed, whether or not anything was dispatched.
func (a *Agent) RunOnce(ctx context.Context) error {
	metrics.IncRun()
	defer metrics.SetLastRun(a.Now())

	if !window.IsWithin(a.cfg.WorkingHours, a.Now()) {
		logging.Get().Info().Msg("outside working hours, skipping pass")
		metrics.IncWindowSkip()
		return nil
	}

	unread, err := a.collectSlack(ctx)
	if err != nil {
		return err
	}
	res := a.collectMail(ctx)
	fresh := a.dropHandled(ctx, res.notifs)

	if unread == 0 && len(fresh) == 0 {
		logging.Get().Info().Msg("no new signals")
		return nil
	}
	metrics.AddSignals(len(fresh))
	logging.Get().Info().Int("unread", unread).Int("new_notifications", len(fresh)).Msg("signals detected")

	message := composeMessage(a.cfg.Notifications.TelegramCall.Message, unread, fresh)
	ok := a.manager.Notify(ctx, message)
	a.record(ctx, unread, fresh, ok, message)

	if !ok {
		metrics.IncDispatchFailure()
		return errors.New("all notification channels failed")
	}
	metrics.IncDispatchSuccess()
	a.settle(ctx, fresh, res.markRead)
	return nil
}

// collectSlack polls the workspace unread count. An expired session is
// the one source error that is fatal: the operator gets a last alert
// about it through the regular chain first.
func (a *Agent) collectSlack(ctx context.Context) (int, error) {
	if a.slack == nil {
		return 0, nil
	}
	unread, err := a.slack.GetUnreadCount(ctx)
	if err == nil {
		return unread, nil
	}
	if errors.Is(err, slack.ErrAuthExpired) {
		logging.Get().Error().Msg("slack session expired; alerting operator")
		a.manager.Notify(ctx, authExpiredMessage)
		return 0, err
	}
	logging.Get().Warn().Err(err).Msg("slack unread count unavailable, continuing without it")
	metrics.IncSourceError("slack")
	return 0, nil
}

// collectMail lists unread messages per configured sender and runs the
// matching filter over each batch. Any mailbox error degrades that
// source to an empty contribution.
func (a *Agent) collectMail(ctx context.Context) mailResult {
	var res mailResult
	if a.mail == nil {
		return res
	}
	if err := a.mail.Connect(ctx); err != nil {
		logging.Get().Warn().Err(err).Msg("mailbox unavailable, continuing without it")
		metrics.IncSourceError("mail")
		return res
	}

	sources := []struct {
		cfg    mail.FilterConfig
		filter interface {
			FilterAndParse([]mail.Message) []mail.Notification
		}
	}{
		{a.cfg.Email, mail.NewChatFilter(a.cfg.Email)},
		{a.cfg.Meet, mail.NewMeetFilter(a.cfg.Meet)},
	}
	for _, s := range sources {
		if s.cfg.Sender == "" {
			continue
		}
		msgs, err := a.mail.List(ctx, s.cfg.Sender, true)
		if err != nil {
			logging.Get().Warn().Err(err).Str("sender", s.cfg.Sender).Msg("listing messages failed")
			metrics.IncSourceError("mail")
			continue
		}
		notifs := s.filter.FilterAndParse(msgs)
		res.notifs = append(res.notifs, notifs...)
		if s.cfg.MarkRead {
			if res.markRead == nil {
				res.markRead = make(map[string]bool)
			}
			for _, n := range notifs {
				res.markRead[n.SourceID] = true
			}
		}
	}
	return res
}

// dropHandled removes notifications whose source id is already in the
// ledger. A ledger read error counts as "not handled"; a duplicate
// alert beats a silently dropped one.
func (a *Agent) dropHandled(ctx context.Context, notifs []mail.Notification) []mail.Notification {
	var fresh []mail.Notification
	for _, n := range notifs {
		handled, err := a.ledger.IsHandled(ctx, n.SourceID)
		if err != nil {
			logging.Get().Warn().Err(err).Str("id", n.SourceID).Msg("ledger read failed, treating as new")
			handled = false
		}
		if handled {
			logging.Get().Debug().Str("id", n.SourceID).Msg("already handled, skipping")
			continue
		}
		fresh = append(fresh, n)
	}
	return fresh
}

// settle persists the outcome of a successful dispatch: the ledger
// learns the new ids and, where configured, the source emails are
// marked read.
func (a *Agent) settle(ctx context.Context, fresh []mail.Notification, markRead map[string]bool) {
	ids := make([]string, 0, len(fresh))
	var readIDs []string
	for _, n := range fresh {
		ids = append(ids, n.SourceID)
		if markRead[n.SourceID] {
			readIDs = append(readIDs, n.SourceID)
		}
	}
	if err := a.ledger.MarkHandled(ctx, ids); err != nil {
		logging.Get().Error().Err(err).Msg("failed to update ledger; duplicates possible next run")
	}
	if len(readIDs) > 0 && a.mail != nil {
		if err := a.mail.MarkRead(ctx, readIDs); err != nil {
			logging.Get().Warn().Err(err).Msg("failed to mark messages read")
		}
	}
}

// record appends the dispatch attempt to the audit log when one is
// configured.
func (a *Agent) record(ctx context.Context, unread int, fresh []mail.Notification, ok bool, message string) {
	source := "slack"
	if len(fresh) > 0 {
		if unread > 0 {
			source = "slack+mail"
		} else {
			source = "mail"
		}
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	err := a.history.Append(ctx, history.Entry{
		At:      a.Now(),
		Source:  source,
		Signals: unread + len(fresh),
		Outcome: outcome,
		Message: message,
	})
	if err != nil {
		logging.Get().Warn().Err(err).Msg("failed to append dispatch history")
	}
}

// composeMessage builds the text handed to the channels. The base text
// comes from configuration so the voice call stays intelligible.
func composeMessage(base string, unread int, notifs []mail.Notification) string {
	if base == "" {
		base = "Urgent Slack notification detected."
	}
	parts := []string{base}
	if unread > 0 {
		parts = append(parts, fmt.Sprintf("%d unread Slack messages.", unread))
	}
	if len(notifs) > 0 {
		parts = append(parts, fmt.Sprintf("%d new email notifications.", len(notifs)))
	}
	return strings.Join(parts, " ")
}

// Start keeps RunOnce on the configured cron schedule until ctx is
// cancelled. An expired Slack session stops the loop.
func (a *Agent) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fatal := make(chan error, 1)
	run := func() {
		if err := a.RunOnce(ctx); err != nil {
			logging.Get().Error().Err(err).Msg("pass failed")
			if errors.Is(err, slack.ErrAuthExpired) {
				select {
				case fatal <- err:
				default:
				}
				cancel()
			}
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(a.cfg.Schedule, run); err != nil {
		return fmt.Errorf("parse schedule %q: %w", a.cfg.Schedule, err)
	}
	logging.Get().Info().Str("schedule", a.cfg.Schedule).Msg("starting agent daemon")

	// Run an immediate pass so users don't wait for the first tick.
	run()
	c.Start()

	<-ctx.Done()
	logging.Get().Info().Msg("stopping agent daemon")
	<-c.Stop().Done()

	select {
	case err := <-fatal:
		return err
	default:
		return nil
	}
}
