package catalog

import "context"

// Store provides read access to the feature registry plus the single admin
// write path. The decision engine only ever calls Get; List and Version serve
// the client snapshot endpoint.
type Store interface {
	// Get retrieves a feature by key.
	// Returns ErrFeatureNotFound if no such feature is registered.
	Get(ctx context.Context, key string) (*Feature, error)

	// List returns every registered feature ordered by key.
	List(ctx context.Context) ([]Feature, error)

	// Version returns an opaque token that changes whenever the catalog
	// changes. Used for cheap "no change" snapshot responses.
	Version(ctx context.Context) (string, error)

	// Put creates or replaces a feature definition and bumps the catalog
	// version. Reserved for the admin surface.
	Put(ctx context.Context, f *Feature) error
}

// Snapshot is the wire shape served to client entitlement caches: the full
// ordered catalog and the version it was taken at.
type Snapshot struct {
	Version  string    `json:"version"`
	Features []Feature `json:"features"`
}

// TakeSnapshot reads a consistent-enough view of the catalog for client
// consumption. Version is read first so a concurrent write yields a stale
// version, which only causes an extra refresh, never a wrong grant.
func TakeSnapshot(ctx context.Context, s Store) (*Snapshot, error) {
	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}
	features, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Version: version, Features: features}, nil
}
