// internal/handlers/account.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/agentmarket-backend/internal/services"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

type AccountHandler struct {
	marketService *services.MarketService
}

func NewAccountHandler(marketService *services.MarketService) *AccountHandler {
	return &AccountHandler{
		marketService: marketService,
	}
}

// GET /accounts/balance
func (h *AccountHandler) GetBalance(c *gin.Context) {
	address, exists := utils.GetAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	balance := h.marketService.BalanceOf(address)
	utils.SuccessResponse(c, gin.H{
		"address":         address,
		"balance":         balance,
		"balance_display": utils.FormatMinorUnits(balance),
	})
}

// POST /accounts/credit — operator-only deposit bridge stand-in.
func (h *AccountHandler) CreditAccount(c *gin.Context) {
	var req services.CreditAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	balance, err := h.marketService.CreditAccount(&req)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"address": req.Address,
		"balance": balance,
	})
}
