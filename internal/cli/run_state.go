package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// runState remembers how the last run of an identity went, for `lurk status`.
// It lives outside the identity directory so it survives a logout.
type runState struct {
	Type          string `json:"type"` // "run_state"
	SchemaVersion int    `json:"schemaVersion"`
	SessionDir    string `json:"session_dir"`
	Attempt       int    `json:"attempt"`
	State         string `json:"state,omitempty"`
	LastOutcome   string `json:"last_outcome,omitempty"`
	LastReason    string `json:"last_reason,omitempty"`
	LastCode      int    `json:"last_code,omitempty"`
	LastOpenedAt  string `json:"last_opened_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func runStateKey(sessionDir string) (string, error) {
	sessionDir = strings.TrimSpace(sessionDir)
	if sessionDir == "" {
		return "", errors.New("session directory is required for run state path")
	}
	abs, err := filepath.Abs(sessionDir)
	if err != nil {
		return "", err
	}
	key := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		return '_'
	}, abs)
	return strings.Trim(key, "_"), nil
}

func defaultRunStatePath(sessionDir string) (string, error) {
	key, err := runStateKey(sessionDir)
	if err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".lurk", "state")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, key+".json"), nil
}

func loadRunState(path string) (*runState, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("run state path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var st runState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func saveRunState(path string, st *runState) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("run state path is required")
	}
	if st == nil {
		return errors.New("run state is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func parseRFC3339Any(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
