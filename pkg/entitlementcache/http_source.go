package entitlementcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fluentive/entitlements/pkg/catalog"
)

// HTTPSource fetches catalog snapshots from the entitlement server's
// /v1/catalog endpoint, using the catalog version as an ETag for cheap
// "no change" responses.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// HTTPSourceOption configures an HTTPSource.
type HTTPSourceOption func(*HTTPSource)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// NewHTTPSource creates a snapshot source against the given server base URL.
func NewHTTPSource(baseURL string, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) FetchSnapshot(ctx context.Context, haveVersion string) (*catalog.Snapshot, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/catalog", nil)
	if err != nil {
		return nil, false, err
	}
	if haveVersion != "" {
		req.Header.Set("If-None-Match", fmt.Sprintf("%q", haveVersion))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, errors.Join(ErrSnapshotFetchFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return nil, true, nil
	case http.StatusOK:
		var snap catalog.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return nil, false, errors.Join(ErrSnapshotFetchFailed, err)
		}
		return &snap, false, nil
	default:
		return nil, false, errors.Join(ErrSnapshotFetchFailed,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}
