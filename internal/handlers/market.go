// internal/handlers/market.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/agentmarket-backend/internal/services"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

type MarketHandler struct {
	marketService *services.MarketService
}

func NewMarketHandler(marketService *services.MarketService) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
	}
}

// POST /products
func (h *MarketHandler) ListProduct(c *gin.Context) {
	seller, exists := utils.GetAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.ListProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	receipt, err := h.marketService.ListProduct(seller, &req)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, receipt)
}

// POST /products/:id/purchase
func (h *MarketHandler) PurchaseProduct(c *gin.Context) {
	buyer, exists := utils.GetAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	receipt, err := h.marketService.PurchaseProduct(buyer, c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, receipt)
}

// POST /products/:id/reviews
func (h *MarketHandler) ReviewProduct(c *gin.Context) {
	reviewer, exists := utils.GetAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var body struct {
		Rating int `json:"rating"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	req := services.ReviewProductRequest{
		ProductID: c.Param("id"),
		Rating:    body.Rating,
	}
	receipt, err := h.marketService.ReviewProduct(reviewer, &req)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, receipt)
}

// DELETE /products/:id
func (h *MarketHandler) DeprecateProduct(c *gin.Context) {
	caller, exists := utils.GetAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	txRef, err := h.marketService.DeprecateProduct(caller, c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id": c.Param("id"),
		"tx_ref":     txRef,
	})
}

// GET /products/:id — canonical record straight from the ledger.
func (h *MarketHandler) GetProduct(c *gin.Context) {
	product, err := h.marketService.GetProduct(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /products/:id/rating
func (h *MarketHandler) GetRating(c *gin.Context) {
	rating, err := h.marketService.GetRating(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, rating)
}
