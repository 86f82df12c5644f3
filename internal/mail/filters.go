package mail

import (
	"strings"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// FilterConfig holds the matching rules shared by all filters. An empty
// Sender or SubjectKeywords disables the corresponding predicate.
type FilterConfig struct {
	Sender          string   `yaml:"sender"`
	SubjectKeywords []string `yaml:"subject_keywords"`
	// MarkRead marks the source messages read after a successful dispatch.
	MarkRead bool `yaml:"mark_read"`
}

// meetBodyPhrases guards the calendar filter against false positives:
// a message has to contain one of these to count as a genuine calendar
// event message, not just a mention of the keyword.
var meetBodyPhrases = []string{
	"Invitation from Google Calendar",
	"Join with Google Meet",
	"meet.google.com",
}

// ChatFilter keeps messages that look like Slack notification emails.
type ChatFilter struct {
	cfg FilterConfig
}

func NewChatFilter(cfg FilterConfig) *ChatFilter {
	return &ChatFilter{cfg: cfg}
}

// FilterAndParse returns one Notification per qualifying message, preserving
// input order.
func (f *ChatFilter) FilterAndParse(messages []Message) []Notification {
	var out []Notification
	for _, m := range messages {
		if !matchesSender(f.cfg.Sender, m.Sender) || !matchesKeywords(f.cfg.SubjectKeywords, m.Subject) {
			continue
		}
		n := Notification{
			SourceID:   m.ID,
			Title:      m.Subject,
			ReceivedAt: m.ReceivedAt,
			Kind:       KindGeneric,
		}
		out = append(out, n)
		logging.Get().Info().Str("title", n.Title).Msg("identified chat notification")
	}
	return out
}

// MeetFilter keeps messages that are genuine calendar/Meet event emails and
// tags each with the event kind derived from its subject.
type MeetFilter struct {
	cfg FilterConfig
}

func NewMeetFilter(cfg FilterConfig) *MeetFilter {
	return &MeetFilter{cfg: cfg}
}

// FilterAndParse returns one Notification per qualifying message, preserving
// input order. Beyond the sender and keyword predicates, the body must
// contain a known calendar phrase.
func (f *MeetFilter) FilterAndParse(messages []Message) []Notification {
	var out []Notification
	for _, m := range messages {
		if !matchesSender(f.cfg.Sender, m.Sender) || !matchesKeywords(f.cfg.SubjectKeywords, m.Subject) {
			continue
		}
		if !containsAny(m.Body, meetBodyPhrases) {
			continue
		}
		n := Notification{
			SourceID:   m.ID,
			Title:      m.Subject,
			ReceivedAt: m.ReceivedAt,
			Kind:       meetKind(m.Subject),
		}
		out = append(out, n)
		logging.Get().Info().Str("title", n.Title).Str("kind", string(n.Kind)).Msg("identified meet notification")
	}
	return out
}

// meetKind derives the event kind from the subject. First match wins;
// anything that is neither a cancellation nor an update is an invitation.
func meetKind(subject string) Kind {
	lower := strings.ToLower(subject)
	switch {
	case strings.Contains(lower, "cancel"):
		return KindCancelled
	case strings.Contains(lower, "update"):
		return KindUpdated
	default:
		return KindInvitation
	}
}

// matchesSender applies the case-sensitive sender substring predicate.
func matchesSender(filter, sender string) bool {
	return filter == "" || strings.Contains(sender, filter)
}

// matchesKeywords applies the case-insensitive any-of subject predicate.
func matchesKeywords(keywords []string, subject string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(subject)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
