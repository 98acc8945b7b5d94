// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/models"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

type CatalogFilters struct {
	Seller     string
	Tags       []string
	MinPrice   int64
	MaxPrice   int64
	Deprecated *bool
}

// ProductStats joins the mirror's product row with its rating aggregate.
type ProductStats struct {
	Product models.Product `json:"product"`
	Average int64          `json:"average"`
	Reviews int64          `json:"review_count"`
}

// CatalogService answers discovery queries from the mirror store. It serves
// read traffic only; every row it sees was projected from ledger events, so
// results may trail the chain by the follower's lag but never contradict it.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// SearchProducts runs a filtered, paginated catalog query. Tag matching uses
// the native array overlap operator and therefore requires postgres.
func (s *CatalogService) SearchProducts(filters CatalogFilters, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{})

	if filters.Seller != "" {
		query = query.Where("seller = ?", filters.Seller)
	}
	if len(filters.Tags) > 0 {
		query = query.Where("tags && ?", pq.StringArray(filters.Tags))
	}
	if filters.MinPrice > 0 {
		query = query.Where("price >= ?", filters.MinPrice)
	}
	if filters.MaxPrice > 0 {
		query = query.Where("price <= ?", filters.MaxPrice)
	}
	if filters.Deprecated != nil {
		query = query.Where("deprecated = ?", *filters.Deprecated)
	}
	if params.Search != "" {
		query = query.Where("name LIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	allowedSorts := []string{"listed_at", "price", "sales_count", "revenue"}
	query = utils.ApplySort(query, params, allowedSorts)
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	result := utils.CreatePaginationResult(products, total, params)
	return &result, nil
}

// TopProducts returns the best sellers, ties broken by revenue.
func (s *CatalogService) TopProducts(limit int) ([]models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var products []models.Product
	err := s.db.Where("deprecated = ?", false).
		Order("sales_count DESC").
		Order("revenue DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	return products, nil
}

// GetProductStats returns one product row with its rating aggregate, or
// the ledger's not-found sentinel when the mirror has no such row.
func (s *CatalogService) GetProductStats(productID string) (*ProductStats, error) {
	var product models.Product
	err := s.db.Where("product_id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}

	stats := &ProductStats{Product: product}

	var rating models.Rating
	err = s.db.Where("product_id = ?", productID).First(&rating).Error
	if err == nil {
		stats.Average = rating.Average
		stats.Reviews = rating.ReviewCount
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load rating for %s: %w", productID, err)
	}
	return stats, nil
}

// GetPurchase looks up a projected purchase by its transaction reference.
func (s *CatalogService) GetPurchase(txRef string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.Where("tx_ref = ?", txRef).First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrUnknownTx
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase %s: %w", txRef, err)
	}
	return &purchase, nil
}

// PurchasesByBuyer lists a buyer's projected purchases, newest first.
func (s *CatalogService) PurchasesByBuyer(buyer string, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Purchase{}).Where("buyer = ?", buyer)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}

	var purchases []models.Purchase
	err := utils.ApplyPagination(query.Order("occurred_at DESC"), params).Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	return &result, nil
}
