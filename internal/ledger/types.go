// internal/ledger/types.go
package ledger

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Address identifies a ledger account (agent or platform settlement account).
// Addresses are opaque lowercase hex strings issued by the identity layer.
type Address string

// ProductID is the 32-byte content-derived product identifier.
type ProductID [32]byte

func (id ProductID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ProductID) String() string {
	return id.Hex()
}

func ParseProductID(s string) (ProductID, error) {
	var id ProductID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: product id must be hex encoded", ErrValidation)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("%w: product id must be %d bytes", ErrValidation, len(id))
	}
	copy(id[:], raw)
	return id, nil
}

// TxRef is the hex-encoded reference of a committed ledger transaction.
type TxRef string

// Product is the canonical product record. Price is immutable after listing;
// only SalesCount, Revenue and Deprecated mutate afterwards.
type Product struct {
	ID          ProductID `json:"id"`
	Seller      Address   `json:"seller"`
	Name        string    `json:"name"`
	Tags        []string  `json:"tags"`
	Price       int64     `json:"price"` // stablecoin minor units, 6 decimals
	MetadataRef string    `json:"metadata_ref"`
	SalesCount  int64     `json:"sales_count"`
	Revenue     int64     `json:"revenue"` // cumulative net seller revenue, minor units
	CreatedAt   time.Time `json:"created_at"`
	Deprecated  bool      `json:"deprecated"`
}

// Purchase is an immutable fact recorded once per successful purchase.
type Purchase struct {
	ProductID    ProductID `json:"product_id"`
	Buyer        Address   `json:"buyer"`
	Price        int64     `json:"price"`
	PlatformFee  int64     `json:"platform_fee"`
	SellerAmount int64     `json:"seller_amount"`
	Time         time.Time `json:"time"`
	TxRef        TxRef     `json:"tx_ref"`
	Seq          uint64    `json:"seq"`
}

// Rating is the per-product aggregate. Average is fixed point with two
// decimals (a 4.33 average is stored as 433).
type Rating struct {
	Average int64 `json:"average"`
	Count   int64 `json:"count"`
}
