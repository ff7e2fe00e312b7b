package domain

import "encoding/json"

// Credentials is the persisted session identity. Everything except the
// registration flag is opaque to lurk and owned by the gateway.
type Credentials struct {
	Registered bool            `json:"registered"`
	Me         JID             `json:"me,omitempty"`
	Keys       json.RawMessage `json:"keys,omitempty"`
}

// NewCredentials returns a fresh, unregistered identity.
func NewCredentials() Credentials {
	return Credentials{}
}
