// internal/handlers/receipt.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/agentmarket-backend/internal/services"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

type ReceiptHandler struct {
	receiptService *services.ReceiptService
}

func NewReceiptHandler(receiptService *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
	}
}

// POST /receipts/confirm
//
// The authenticated address is the claimed buyer; a receipt can only be
// redeemed by the account it settles to.
func (h *ReceiptHandler) ConfirmReceipt(c *gin.Context) {
	buyer, exists := utils.GetAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var body struct {
		ProductID string `json:"product_id"`
		TxRef     string `json:"tx_ref"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	req := services.ReceiptRequest{
		ProductID:    body.ProductID,
		TxRef:        body.TxRef,
		ClaimedBuyer: buyer,
	}
	delivery, err := h.receiptService.Confirm(c.Request.Context(), &req)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, delivery)
}
