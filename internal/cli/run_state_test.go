package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultRunStatePath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	got, err := defaultRunStatePath("/srv/lurk/sessions")
	require.NoError(t, err)

	want := filepath.Join(tmp, ".lurk", "state", "srv_lurk_sessions.json")
	require.Equal(t, want, got)

	info, err := os.Stat(filepath.Dir(got))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestDefaultRunStatePathRequiresDir(t *testing.T) {
	_, err := defaultRunStatePath("  ")
	require.Error(t, err)
}

func TestLoadRunStateMissingFile(t *testing.T) {
	tmp := t.TempDir()
	got, err := loadRunState(filepath.Join(tmp, "missing.json"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveAndLoadRunStateRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "state.json")

	st := &runState{
		Type:          "run_state",
		SchemaVersion: 1,
		SessionDir:    "/srv/lurk/sessions",
		Attempt:       3,
		State:         "closed",
		LastOutcome:   "retry",
		LastReason:    "connection-lost",
		LastCode:      408,
		LastOpenedAt:  "2026-01-14T22:00:00Z",
		UpdatedAt:     "2026-01-14T22:00:02Z",
	}
	require.NoError(t, saveRunState(path, st))

	loaded, err := loadRunState(path)
	require.NoError(t, err)
	require.Equal(t, st, loaded)
}

func TestParseRFC3339Any(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got, err := parseRFC3339Any("")
		require.NoError(t, err)
		require.True(t, got.IsZero())
	})

	t.Run("rfc3339nano", func(t *testing.T) {
		got, err := parseRFC3339Any("2026-01-14T22:00:00.123456789Z")
		require.NoError(t, err)
		require.Equal(t, time.Date(2026, 1, 14, 22, 0, 0, 123456789, time.UTC), got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := parseRFC3339Any("not-a-time")
		require.Error(t, err)
	})
}
