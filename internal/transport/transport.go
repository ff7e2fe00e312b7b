// Package transport defines what lurk needs from the protocol engine and
// provides a gateway client that speaks to one over a websocket.
package transport

import (
	"context"
	"encoding/json"

	"github.com/vburojevic/lurk/internal/domain"
)

// GetMessageFunc resolves a previously seen message for a replay request.
// It returns nil content when the message is unknown.
type GetMessageFunc func(ctx context.Context, key domain.MessageKey) (json.RawMessage, error)

// Browser is the client identity announced to the remote service.
type Browser [3]string

// DefaultBrowser announces a desktop Chrome on Ubuntu.
var DefaultBrowser = Browser{"Ubuntu", "Chrome", "22.04.4"}

// DialOptions configures one session.
type DialOptions struct {
	Version             domain.Version
	Credentials         domain.Credentials
	Browser             Browser
	MarkOnlineOnConnect bool
	GetMessage          GetMessageFunc
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, opts DialOptions) (Session, error)
}

// Session is one live connection. Events is closed once the session is gone;
// every session ends with a ConnectionUpdate in state ConnectionClose unless
// it was closed locally.
type Session interface {
	Events() <-chan domain.Event
	User() domain.User
	SendMessage(ctx context.Context, to domain.JID, msg domain.OutgoingMessage) error
	MarkRead(ctx context.Context, keys []domain.MessageKey) error
	SetPresence(ctx context.Context, p domain.Presence) error
	RequestPairingCode(ctx context.Context, phone string) (string, error)
	Close() error
}

// VersionFetcher negotiates the protocol version.
type VersionFetcher interface {
	FetchVersion(ctx context.Context) (domain.Version, bool, error)
}
