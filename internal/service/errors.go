package service

import "errors"

// Every failure is returned as a value to the caller; the ledger has no
// fatal error class. A failed call leaves shared state either fully
// applied or fully unapplied.
var (
	ErrItemNotFound        = errors.New("item not found")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidRating       = errors.New("invalid rating")
	ErrInvalidRelationKind = errors.New("invalid relation kind")
	ErrAlreadyPurchased    = errors.New("already purchased")
	ErrStoreUnavailable    = errors.New("store unavailable")
)
