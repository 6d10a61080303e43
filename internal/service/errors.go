package service

import "errors"

// Error kinds handlers translate to HTTP statuses. Domain services wrap
// these so the boundary can tell a bad request from a broken rule.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrDomainRule       = errors.New("domain rule violation")
	ErrStockUnavailable = errors.New("stock platform unavailable")
)
