package domain

// Action is what the supervisor does after a disconnect.
type Action int

const (
	// ActionRetry starts a fresh connect cycle with the same credentials.
	ActionRetry Action = iota
	// ActionTerminateClean destroys the credentials and stops.
	ActionTerminateClean
	// ActionTerminateUnknown stops without touching the credentials.
	ActionTerminateUnknown
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionTerminateClean:
		return "terminate-clean"
	case ActionTerminateUnknown:
		return "terminate-unknown"
	default:
		return "invalid"
	}
}

// Outcome is the classified result of a disconnect signal.
type Outcome struct {
	Action     Action
	Reason     string // category, e.g. "connection-lost"
	Diagnostic string // operator-facing text
	Known      bool   // false when the signal matched no category
}

// State is the supervisor's connection state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticating
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
