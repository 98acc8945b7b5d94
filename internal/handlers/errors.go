// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/services"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

// writeDomainError maps a service error to its wire code. Callers are
// autonomous agents, so the code and the retryable flag are the contract;
// anything unmapped is an internal error, deliberately opaque.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ledger.ErrInvalidRating):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_RATING", "Rating must be between 1 and 5", nil)
	case errors.Is(err, ledger.ErrInsufficientAuthorization):
		utils.ErrorResponse(c, http.StatusPaymentRequired, "INSUFFICIENT_AUTHORIZATION", "Balance does not cover the listing fee", nil)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		utils.ErrorResponse(c, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", "Balance does not cover the purchase price", nil)
	case errors.Is(err, ledger.ErrProductNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "No such product", nil)
	case errors.Is(err, ledger.ErrUnknownTx):
		utils.ErrorResponse(c, http.StatusNotFound, "UNKNOWN_TX", "No such transaction", nil)
	case errors.Is(err, ledger.ErrProductDeprecated):
		utils.ConflictResponse(c, "PRODUCT_DEPRECATED", "Product is no longer purchasable")
	case errors.Is(err, ledger.ErrDuplicateReview):
		utils.ConflictResponse(c, "DUPLICATE_REVIEW", "Each purchaser may review a product once")
	case errors.Is(err, ledger.ErrSelfPurchaseForbidden):
		utils.ErrorResponse(c, http.StatusForbidden, "SELF_PURCHASE_FORBIDDEN", "Sellers cannot purchase their own products", nil)
	case errors.Is(err, ledger.ErrNotAPurchaser):
		utils.ErrorResponse(c, http.StatusForbidden, "NOT_A_PURCHASER", "Reviews require proof of purchase", nil)
	case errors.Is(err, ledger.ErrNotOwner):
		utils.ErrorResponse(c, http.StatusForbidden, "NOT_OWNER", "Only the seller may deprecate a product", nil)
	case errors.Is(err, services.ErrNotYetConfirmed):
		utils.RetryableErrorResponse(c, http.StatusConflict, "NOT_YET_CONFIRMED", "Transaction is not yet final; retry the identical request")
	case errors.Is(err, services.ErrClaimMismatch):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "CLAIM_MISMATCH", "Receipt claim does not match the ledger record", nil)
	default:
		utils.InternalErrorResponse(c, "")
	}
}
