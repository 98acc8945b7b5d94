// internal/handlers/catalog.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/agentmarket-backend/internal/services"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GET /catalog/products
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filters := services.CatalogFilters{
		Seller: c.Query("seller"),
	}
	if tags := c.Query("tags"); tags != "" {
		filters.Tags = strings.Split(tags, ",")
	}
	if minPrice, err := strconv.ParseInt(c.Query("min_price"), 10, 64); err == nil {
		filters.MinPrice = minPrice
	}
	if maxPrice, err := strconv.ParseInt(c.Query("max_price"), 10, 64); err == nil {
		filters.MaxPrice = maxPrice
	}
	if deprecated := c.Query("deprecated"); deprecated != "" {
		value := deprecated == "true"
		filters.Deprecated = &value
	}

	result, err := h.catalogService.SearchProducts(filters, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /catalog/products/top
func (h *CatalogHandler) TopProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	products, err := h.catalogService.TopProducts(limit)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": products,
	})
}

// GET /catalog/products/:id
func (h *CatalogHandler) GetProductStats(c *gin.Context) {
	stats, err := h.catalogService.GetProductStats(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /catalog/purchases/:tx_ref
func (h *CatalogHandler) GetPurchase(c *gin.Context) {
	purchase, err := h.catalogService.GetPurchase(c.Param("tx_ref"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, purchase)
}

// GET /catalog/purchases — the authenticated agent's own purchase history.
func (h *CatalogHandler) MyPurchases(c *gin.Context) {
	buyer, exists := utils.GetAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.catalogService.PurchasesByBuyer(buyer, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, *result)
}
