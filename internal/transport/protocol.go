package transport

import (
	"encoding/json"

	"github.com/vburojevic/lurk/internal/domain"
)

// FrameType names a gateway frame.
type FrameType string

const (
	// client -> gateway
	FrameHello              FrameType = "hello"
	FrameSendMessage        FrameType = "send_message"
	FrameReadMessages       FrameType = "read_messages"
	FramePresence           FrameType = "presence"
	FrameRequestPairingCode FrameType = "request_pairing_code"

	// gateway -> client
	FrameConnectionUpdate FrameType = "connection.update"
	FrameCredsUpdate      FrameType = "creds.update"
	FramePresenceUpdate   FrameType = "presence.update"
	FrameMessagesUpsert   FrameType = "messages.upsert"
	FrameGetMessage       FrameType = "get_message"

	// both directions, correlated by ID
	FrameResult FrameType = "result"
)

// Frame is the envelope of every websocket message.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type HelloPayload struct {
	Version             domain.Version     `json:"version"`
	Browser             Browser            `json:"browser"`
	MarkOnlineOnConnect bool               `json:"markOnlineOnConnect"`
	Credentials         domain.Credentials `json:"creds"`
}

type ConnectionPayload struct {
	Connection     domain.ConnectionState   `json:"connection,omitempty"`
	LastDisconnect *domain.DisconnectSignal `json:"lastDisconnect,omitempty"`
	QR             string                   `json:"qr,omitempty"`
	User           *domain.User             `json:"user,omitempty"`
}

type PresenceUpdatePayload struct {
	ID domain.JID `json:"id"`
}

type MessagesPayload struct {
	Messages []domain.Message `json:"messages"`
}

type SendMessagePayload struct {
	To                  domain.JID      `json:"to"`
	Text                string          `json:"text"`
	Mentions            []domain.JID    `json:"mentions,omitempty"`
	Quoted              *domain.Message `json:"quoted,omitempty"`
	EphemeralExpiration int64           `json:"ephemeralExpiration,omitempty"`
}

type ReadMessagesPayload struct {
	Keys []domain.MessageKey `json:"keys"`
}

type PresencePayload struct {
	Presence domain.Presence `json:"presence"`
}

type PairingRequestPayload struct {
	Phone string `json:"phone"`
}

type PairingResultPayload struct {
	Code string `json:"code"`
}

type GetMessageResultPayload struct {
	Message json.RawMessage `json:"message"`
}
