// internal/services/market_service.go
package services

import (
	"fmt"

	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

type ListProductRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Tags        []string `json:"tags" validate:"required,min=1,max=8,dive,discovery_tag"`
	Price       int64    `json:"price" validate:"required,gt=0"`
	MetadataRef string   `json:"metadata_ref" validate:"max=512"`
}

type ReviewProductRequest struct {
	ProductID string `json:"product_id" validate:"required,len=64,hexadecimal"`
	Rating    int    `json:"rating"`
}

type CreditAccountRequest struct {
	Address string `json:"address" validate:"required,account_addr"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
}

// ListingReceipt is returned to the seller after a successful listing.
type ListingReceipt struct {
	Product ProductView `json:"product"`
	TxRef   string      `json:"tx_ref"`
}

// PurchaseReceipt is returned to the buyer, including the fee split so the
// counterparties can verify settlement independently.
type PurchaseReceipt struct {
	ProductID     string `json:"product_id"`
	Buyer         string `json:"buyer"`
	Price         int64  `json:"price"`
	PriceDisplay  string `json:"price_display"`
	PlatformFee   int64  `json:"platform_fee"`
	SellerAmount  int64  `json:"seller_amount"`
	TxRef         string `json:"tx_ref"`
	LedgerSeq     uint64 `json:"ledger_seq"`
	OccurredAtRFC string `json:"occurred_at"`
}

type ReviewReceipt struct {
	ProductID   string `json:"product_id"`
	Rating      int    `json:"rating"`
	Average     int64  `json:"average"`
	ReviewCount int64  `json:"review_count"`
	TxRef       string `json:"tx_ref"`
}

// ProductView is the canonical product record as served over the API.
type ProductView struct {
	ProductID    string   `json:"product_id"`
	Seller       string   `json:"seller"`
	Name         string   `json:"name"`
	Tags         []string `json:"tags"`
	Price        int64    `json:"price"`
	PriceDisplay string   `json:"price_display"`
	MetadataRef  string   `json:"metadata_ref"`
	SalesCount   int64    `json:"sales_count"`
	Revenue      int64    `json:"revenue"`
	Deprecated   bool     `json:"deprecated"`
	ListedAt     string   `json:"listed_at"`
}

// MarketService fronts the ledger contract for the HTTP layer: request
// validation, address typing and view shaping. All state transitions happen
// inside the ledger itself.
type MarketService struct {
	chain *ledger.Ledger
}

func NewMarketService(chain *ledger.Ledger) *MarketService {
	return &MarketService{chain: chain}
}

func (s *MarketService) ListProduct(seller string, req *ListProductRequest) (*ListingReceipt, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}

	product, txRef, err := s.chain.List(ledger.Address(seller), req.Name, req.Tags, req.Price, req.MetadataRef)
	if err != nil {
		return nil, err
	}

	return &ListingReceipt{
		Product: productView(product),
		TxRef:   string(txRef),
	}, nil
}

func (s *MarketService) PurchaseProduct(buyer string, productID string) (*PurchaseReceipt, error) {
	id, err := ledger.ParseProductID(productID)
	if err != nil {
		return nil, err
	}

	purchase, err := s.chain.Purchase(ledger.Address(buyer), id)
	if err != nil {
		return nil, err
	}

	return &PurchaseReceipt{
		ProductID:     purchase.ProductID.Hex(),
		Buyer:         string(purchase.Buyer),
		Price:         purchase.Price,
		PriceDisplay:  utils.FormatMinorUnits(purchase.Price),
		PlatformFee:   purchase.PlatformFee,
		SellerAmount:  purchase.SellerAmount,
		TxRef:         string(purchase.TxRef),
		LedgerSeq:     purchase.Seq,
		OccurredAtRFC: purchase.Time.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

func (s *MarketService) ReviewProduct(reviewer string, req *ReviewProductRequest) (*ReviewReceipt, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}

	id, err := ledger.ParseProductID(req.ProductID)
	if err != nil {
		return nil, err
	}

	rating, txRef, err := s.chain.Review(ledger.Address(reviewer), id, req.Rating)
	if err != nil {
		return nil, err
	}

	return &ReviewReceipt{
		ProductID:   req.ProductID,
		Rating:      req.Rating,
		Average:     rating.Average,
		ReviewCount: rating.Count,
		TxRef:       string(txRef),
	}, nil
}

func (s *MarketService) DeprecateProduct(caller string, productID string) (string, error) {
	id, err := ledger.ParseProductID(productID)
	if err != nil {
		return "", err
	}

	txRef, err := s.chain.Deprecate(ledger.Address(caller), id)
	if err != nil {
		return "", err
	}
	return string(txRef), nil
}

func (s *MarketService) GetProduct(productID string) (*ProductView, error) {
	id, err := ledger.ParseProductID(productID)
	if err != nil {
		return nil, err
	}

	product, err := s.chain.GetProduct(id)
	if err != nil {
		return nil, err
	}
	view := productView(product)
	return &view, nil
}

func (s *MarketService) GetRating(productID string) (*ReviewReceipt, error) {
	id, err := ledger.ParseProductID(productID)
	if err != nil {
		return nil, err
	}

	rating, err := s.chain.GetRating(id)
	if err != nil {
		return nil, err
	}
	return &ReviewReceipt{
		ProductID:   productID,
		Average:     rating.Average,
		ReviewCount: rating.Count,
	}, nil
}

func (s *MarketService) BalanceOf(address string) int64 {
	return s.chain.BalanceOf(ledger.Address(address))
}

// CreditAccount mints stablecoin into an account. Restricted to operators
// at the routing layer; it stands in for the deposit bridge.
func (s *MarketService) CreditAccount(req *CreditAccountRequest) (int64, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}
	if err := s.chain.Credit(ledger.Address(req.Address), req.Amount); err != nil {
		return 0, err
	}
	return s.chain.BalanceOf(ledger.Address(req.Address)), nil
}

func productView(p ledger.Product) ProductView {
	return ProductView{
		ProductID:    p.ID.Hex(),
		Seller:       string(p.Seller),
		Name:         p.Name,
		Tags:         p.Tags,
		Price:        p.Price,
		PriceDisplay: utils.FormatMinorUnits(p.Price),
		MetadataRef:  p.MetadataRef,
		SalesCount:   p.SalesCount,
		Revenue:      p.Revenue,
		Deprecated:   p.Deprecated,
		ListedAt:     p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
