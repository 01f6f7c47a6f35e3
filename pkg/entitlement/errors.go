package entitlement

import "errors"

var (
	ErrUnknownTier        = errors.New("entitlement: unknown tier")
	ErrUnknownCapability  = errors.New("entitlement: unknown capability")
	ErrEmptyCatalog       = errors.New("entitlement: catalog is empty")
	ErrInvalidCatalog     = errors.New("entitlement: invalid catalog configuration")
	ErrFailedToLoadSource = errors.New("entitlement: failed to load catalog source")
)
