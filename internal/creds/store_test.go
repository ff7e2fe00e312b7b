package creds

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/lurk/internal/domain"
)

func TestNewFileStoreRequiresDir(t *testing.T) {
	_, err := NewFileStore("  ")
	require.Error(t, err)
}

func TestLoadMissingReturnsFreshCredentials(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	got, err := s.Load()
	require.NoError(t, err)
	assert.False(t, got.Registered)
	assert.False(t, s.Exists())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	c := domain.Credentials{
		Registered: true,
		Me:         "628123456789:3@s.whatsapp.net",
		Keys:       json.RawMessage(`{"noiseKey":"abc"}`),
	}
	require.NoError(t, s.Save(c))
	assert.True(t, s.Exists())

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, c.Registered, loaded.Registered)
	assert.Equal(t, c.Me, loaded.Me)
	assert.JSONEq(t, string(c.Keys), string(loaded.Keys))

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestSaveOverwritesAndLeavesNoTempFiles(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(domain.Credentials{Registered: false}))
	require.NoError(t, s.Save(domain.Credentials{Registered: true}))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Registered)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, credsFile, entries[0].Name())
}

func TestLoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, credsFile), []byte("{not json"), 0o600))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = s.Load()
	require.Error(t, err)
}

func TestDestroyIsIdempotent(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	require.NoError(t, s.Destroy())

	require.NoError(t, s.Save(domain.Credentials{Registered: true}))
	require.NoError(t, s.Destroy())
	_, err = os.Stat(s.Dir())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Destroy())
}
