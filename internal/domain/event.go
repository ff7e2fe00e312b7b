package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ConnectionState is the connection phase reported by the gateway.
type ConnectionState string

const (
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
	ConnectionClose      ConnectionState = "close"
)

// Presence is what this client advertises to its contacts.
type Presence string

const (
	PresenceAvailable   Presence = "available"
	PresenceUnavailable Presence = "unavailable"
)

// DisconnectSignal is the opaque reason delivered when a session ends.
type DisconnectSignal struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func (s DisconnectSignal) Error() string {
	if s.Message == "" {
		return fmt.Sprintf("disconnected (code %d)", s.Code)
	}
	return fmt.Sprintf("disconnected (code %d): %s", s.Code, s.Message)
}

// User is the account the session is logged in as.
type User struct {
	ID   JID    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Version is the protocol version negotiated with the remote service.
type Version [3]int

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ".")
}

// MessageKey identifies one message within a conversation.
type MessageKey struct {
	RemoteJID   JID    `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant JID    `json:"participant,omitempty"`
}

// Message is an inbound message. Content stays in the gateway's encoding.
type Message struct {
	Key       MessageKey      `json:"key"`
	Content   json.RawMessage `json:"message,omitempty"`
	Timestamp int64           `json:"messageTimestamp,omitempty"`
	PushName  string          `json:"pushName,omitempty"`
}

// OutgoingMessage is a text message sent by lurk.
type OutgoingMessage struct {
	Text      string        `json:"text"`
	Mentions  []JID         `json:"mentions,omitempty"`
	Quoted    *Message      `json:"quoted,omitempty"`
	Ephemeral time.Duration `json:"-"`
}

// Event is anything the gateway emits on a session's event stream.
type Event interface {
	eventName() string
}

// ConnectionUpdate reports a connection phase change. Disconnect is set when
// State is ConnectionClose.
type ConnectionUpdate struct {
	State      ConnectionState
	Disconnect *DisconnectSignal
	QR         string
}

// CredentialsUpdate carries the new credentials to persist.
type CredentialsUpdate struct {
	Credentials Credentials
}

// PresenceQuery is emitted when a peer's presence update reaches this client.
type PresenceQuery struct {
	From JID
}

// MessagesUpsert delivers one or more new messages.
type MessagesUpsert struct {
	Messages []Message
}

func (ConnectionUpdate) eventName() string  { return "connection.update" }
func (CredentialsUpdate) eventName() string { return "creds.update" }
func (PresenceQuery) eventName() string     { return "presence.update" }
func (MessagesUpsert) eventName() string    { return "messages.upsert" }

// EventName returns the wire name of an event, used in logs.
func EventName(e Event) string {
	if e == nil {
		return ""
	}
	return e.eventName()
}
