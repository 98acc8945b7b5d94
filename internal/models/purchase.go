// internal/models/purchase.go
package models

import "time"

// Purchase mirrors one settled ledger purchase. The primary key on TxRef is
// the storage-level uniqueness constraint the reconciler relies on: exactly
// one committed purchase effect per ledger transaction reference, whichever
// ingestion path lands first.
type Purchase struct {
	TxRef        string       `json:"tx_ref" gorm:"size:64;primaryKey"`
	ProductID    string       `json:"product_id" gorm:"size:64;not null;index"`
	Buyer        string       `json:"buyer" gorm:"size:64;not null;index"`
	Amount       int64        `json:"amount" gorm:"not null"`
	PlatformFee  int64        `json:"platform_fee" gorm:"not null"`
	SellerAmount int64        `json:"seller_amount" gorm:"not null"`
	LedgerSeq    uint64       `json:"ledger_seq" gorm:"not null"`
	OccurredAt   time.Time    `json:"occurred_at"`
	Source       IngestSource `json:"source" gorm:"size:16;not null"`
	CreatedAt    time.Time    `json:"created_at"`
}
