package ledger

import "errors"

var (
	ErrUnknownPeriod = errors.New("unknown quota period")
	ErrConflict      = errors.New("conflicting concurrent ledger write")
	ErrStoreFailure  = errors.New("usage ledger store failure")
)
