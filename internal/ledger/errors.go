// internal/ledger/errors.go
package ledger

import "errors"

// Every operation rejects with one of these sentinels before any state is
// mutated; a returned error always means the ledger is unchanged.
var (
	ErrValidation                = errors.New("validation failed")
	ErrInsufficientAuthorization = errors.New("listing fee transfer not authorized")
	ErrProductNotFound           = errors.New("product not found")
	ErrProductDeprecated         = errors.New("product is deprecated")
	ErrSelfPurchaseForbidden     = errors.New("seller cannot purchase own product")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrNotAPurchaser             = errors.New("caller holds no proof of purchase")
	ErrDuplicateReview           = errors.New("product already reviewed by caller")
	ErrInvalidRating             = errors.New("rating must be between 1 and 5")
	ErrNotOwner                  = errors.New("caller is not the product seller")
	ErrUnknownTx                 = errors.New("unknown transaction reference")
)
