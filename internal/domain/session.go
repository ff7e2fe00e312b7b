package domain

import "time"

// AttemptStart is emitted when a session attempt begins
type AttemptStart struct {
	Type          string `json:"type"`                     // "attempt_start"
	SchemaVersion int    `json:"schemaVersion"`            // 1
	Alert         string `json:"alert,omitempty"`          // "RECONNECTING" when a previous attempt existed
	Attempt       int    `json:"attempt"`                  // Attempt number (1, 2, 3...)
	PreviousCause string `json:"previous_cause,omitempty"` // Reason the previous attempt closed
	Version       string `json:"version"`                  // Negotiated protocol version
	Registered    bool   `json:"registered"`               // Whether credentials were already paired
	Timestamp     string `json:"timestamp"`                // ISO8601 timestamp
}

// AttemptEnd is emitted when a session attempt closes
type AttemptEnd struct {
	Type          string         `json:"type"`          // "attempt_end"
	SchemaVersion int            `json:"schemaVersion"` // 1
	Attempt       int            `json:"attempt"`       // Attempt number that ended
	Outcome       string         `json:"outcome"`       // retry, terminate-clean, terminate-unknown
	Reason        string         `json:"reason"`        // Classified disconnect category
	Code          int            `json:"code"`          // Raw disconnect code
	Summary       AttemptSummary `json:"summary"`       // Summary of the attempt
}

// AttemptSummary contains statistics about a completed attempt
type AttemptSummary struct {
	Opened          bool `json:"opened"`
	Messages        int  `json:"messages"`
	StatusRead      int  `json:"status_read"`
	CredentialSaves int  `json:"credential_saves"`
	DurationSeconds int  `json:"duration_seconds"`
}

// NewAttemptStart creates a new AttemptStart event
func NewAttemptStart(attempt int, previousCause string, version Version, registered bool) *AttemptStart {
	s := &AttemptStart{
		Type:          "attempt_start",
		SchemaVersion: 1,
		Attempt:       attempt,
		Version:       version.String(),
		Registered:    registered,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if attempt > 1 {
		s.Alert = "RECONNECTING"
		s.PreviousCause = previousCause
	}
	return s
}

// NewAttemptEnd creates a new AttemptEnd event
func NewAttemptEnd(attempt int, outcome Outcome, code int, summary AttemptSummary) *AttemptEnd {
	return &AttemptEnd{
		Type:          "attempt_end",
		SchemaVersion: 1,
		Attempt:       attempt,
		Outcome:       outcome.Action.String(),
		Reason:        outcome.Reason,
		Code:          code,
		Summary:       summary,
	}
}
