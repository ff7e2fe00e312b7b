package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrLoggedOut means the session was invalidated remotely and the local
	// credentials were destroyed.
	ErrLoggedOut = errors.New("session logged out, please re-authenticate")
	// ErrTerminated means the supervisor stopped on an outcome it chose not
	// to retry. Credentials are left in place.
	ErrTerminated = errors.New("session terminated")
)

// ConfigError is a fatal configuration problem. Retrying cannot fix it.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
