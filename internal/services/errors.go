// internal/services/errors.go
package services

import "errors"

// Ledger error kinds. Handlers map these to HTTP status codes; the ledger
// itself never retries and never commits partial effects.
var (
	ErrNotFound          = errors.New("model not found")
	ErrForbidden         = errors.New("only the seller can perform this action")
	ErrAlreadySold       = errors.New("model has already been sold")
	ErrAlreadyRated      = errors.New("account has already rated this model")
	ErrNotYetPurchased   = errors.New("model has not been purchased yet")
	ErrSelfPurchase      = errors.New("seller cannot buy their own model")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInsufficientFunds = errors.New("insufficient token balance or allowance")
	ErrTransferFailed    = errors.New("token transfer failed")
)
