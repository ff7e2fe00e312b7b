package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vburojevic/lurk/internal/domain"
)

// DefaultVersion is used when the latest version cannot be fetched.
var DefaultVersion = domain.Version{2, 3000, 1015901307}

// HTTPVersionFetcher asks the gateway which protocol version is current.
type HTTPVersionFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPVersionFetcher creates a fetcher for url. An empty url always yields
// DefaultVersion.
func NewHTTPVersionFetcher(url string) *HTTPVersionFetcher {
	return &HTTPVersionFetcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type versionResponse struct {
	Version  []int `json:"version"`
	IsLatest bool  `json:"isLatest"`
}

// FetchVersion returns the latest version. On failure it returns
// DefaultVersion, false and the error, so callers can log and carry on.
func (f *HTTPVersionFetcher) FetchVersion(ctx context.Context) (domain.Version, bool, error) {
	if f.url == "" {
		return DefaultVersion, false, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return DefaultVersion, false, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return DefaultVersion, false, fmt.Errorf("fetch version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return DefaultVersion, false, fmt.Errorf("fetch version: status %d: %s", resp.StatusCode, body)
	}

	var vr versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return DefaultVersion, false, fmt.Errorf("decode version: %w", err)
	}
	if len(vr.Version) != 3 {
		return DefaultVersion, false, fmt.Errorf("decode version: want 3 components, got %d", len(vr.Version))
	}
	return domain.Version{vr.Version[0], vr.Version[1], vr.Version[2]}, vr.IsLatest, nil
}
