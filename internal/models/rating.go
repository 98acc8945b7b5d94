// internal/models/rating.go
package models

import "time"

// Rating mirrors the per-product review aggregate. Rows are overwritten with
// the full recomputed value carried by each Reviewed event; LedgerSeq guards
// against replays regressing the row to an older aggregate.
type Rating struct {
	ProductID   string       `json:"product_id" gorm:"size:64;primaryKey"`
	Average     int64        `json:"average" gorm:"not null"` // fixed point, 2 decimals
	ReviewCount int64        `json:"review_count" gorm:"not null"`
	LedgerSeq   uint64       `json:"ledger_seq" gorm:"not null"`
	Source      IngestSource `json:"source" gorm:"size:16;not null"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
