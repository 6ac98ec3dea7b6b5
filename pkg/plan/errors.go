package plan

import "errors"

var (
	ErrInvalidHierarchy    = errors.New("invalid plan hierarchy")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrEntitlementNotFound = errors.New("user entitlement not found")
	ErrFailedToLoadTiers   = errors.New("failed to load plan tiers")
	ErrInvalidChange       = errors.New("invalid plan change event")
	ErrStoreFailure        = errors.New("entitlement store failure")
)
