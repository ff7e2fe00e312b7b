package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/lurk/internal/domain"
)

func TestFetchVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":[2,3000,1020],"isLatest":true}`))
	}))
	defer srv.Close()

	v, latest, err := NewHTTPVersionFetcher(srv.URL).FetchVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Version{2, 3000, 1020}, v)
	assert.True(t, latest)
}

func TestFetchVersionFallsBackToDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v, latest, err := NewHTTPVersionFetcher(srv.URL).FetchVersion(context.Background())
	require.Error(t, err)
	assert.Equal(t, DefaultVersion, v)
	assert.False(t, latest)
}

func TestFetchVersionRejectsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"version":[2,3000]}`))
	}))
	defer srv.Close()

	v, _, err := NewHTTPVersionFetcher(srv.URL).FetchVersion(context.Background())
	require.Error(t, err)
	assert.Equal(t, DefaultVersion, v)
}

func TestFetchVersionWithoutURL(t *testing.T) {
	v, latest, err := NewHTTPVersionFetcher("").FetchVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, v)
	assert.False(t, latest)
}
