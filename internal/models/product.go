// internal/models/product.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// Product is the off-chain projection of a canonical product record.
// SalesCount and Revenue are maintained as deltas applied once per unique
// purchase tx ref; everything else is written insert-or-ignore at listing
// time and only Deprecated flips afterwards.
type Product struct {
	ProductID   string         `json:"product_id" gorm:"size:64;primaryKey"`
	Seller      string         `json:"seller" gorm:"size:64;not null;index"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Price       int64          `json:"price" gorm:"not null"`
	MetadataRef string         `json:"metadata_ref" gorm:"size:512"`
	SalesCount  int64          `json:"sales_count" gorm:"not null;default:0"`
	Revenue     int64          `json:"revenue" gorm:"not null;default:0"`
	Deprecated  bool           `json:"deprecated" gorm:"not null;default:false"`
	ListedAt    time.Time      `json:"listed_at"`
	LedgerSeq   uint64         `json:"ledger_seq" gorm:"not null;default:0"`
	Source      IngestSource   `json:"source" gorm:"size:16;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
