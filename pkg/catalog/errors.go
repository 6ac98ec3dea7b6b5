package catalog

import "errors"

var (
	ErrFeatureNotFound = errors.New("feature not found in catalog")
	ErrInvalidFeature  = errors.New("invalid feature definition")
	ErrStoreFailure    = errors.New("catalog store failure")
)
