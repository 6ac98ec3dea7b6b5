package entitlementcache

import "errors"

var ErrSnapshotFetchFailed = errors.New("catalog snapshot fetch failed")
