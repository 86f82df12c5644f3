// Package mail provides the email signal source: a provider-neutral message
// model, the client capability the agent consumes, and the filters that turn
// raw messages into structured notifications.
package mail

import (
	"context"
	"time"
)

// Message is a provider-neutral email representation. Filters consume it
// read-only.
type Message struct {
	ID         string
	Sender     string
	Subject    string
	Body       string
	Snippet    string
	ReceivedAt time.Time
	Read       bool
}

// Kind classifies a parsed notification.
type Kind string

const (
	KindGeneric    Kind = "generic"
	KindInvitation Kind = "invitation"
	KindUpdated    Kind = "updated"
	KindCancelled  Kind = "cancelled"
)

// Notification is a structured signal extracted from a message. SourceID is
// the originating message id and doubles as the dedup key in the state
// ledger.
type Notification struct {
	SourceID   string
	Title      string
	ReceivedAt time.Time
	Kind       Kind
}

// Client is the capability the agent needs from an email provider.
type Client interface {
	// Connect authenticates against the provider.
	Connect(ctx context.Context) error
	// List fetches inbox messages, optionally restricted to a sender and to
	// unread messages.
	List(ctx context.Context, senderFilter string, onlyUnread bool) ([]Message, error)
	// MarkRead marks the given message ids as read.
	MarkRead(ctx context.Context, ids []string) error
}
