// internal/ledger/events.go
package ledger

import "time"

type EventKind string

const (
	EventListed     EventKind = "listed"
	EventPurchased  EventKind = "purchased"
	EventReviewed   EventKind = "reviewed"
	EventDeprecated EventKind = "deprecated"
)

// Event is the closed variant emitted by every state-changing transition.
// Exactly one payload pointer is non-nil, matching Kind. Payloads carry
// everything a projection needs so the mirror store never reads back into
// the ledger.
type Event struct {
	Seq   uint64    `json:"seq"`
	Kind  EventKind `json:"kind"`
	TxRef TxRef     `json:"tx_ref"`
	Time  time.Time `json:"time"`

	Listed     *ListedEvent     `json:"listed,omitempty"`
	Purchased  *PurchasedEvent  `json:"purchased,omitempty"`
	Reviewed   *ReviewedEvent   `json:"reviewed,omitempty"`
	Deprecated *DeprecatedEvent `json:"deprecated,omitempty"`
}

// ListedEvent carries the full initial record.
type ListedEvent struct {
	Product Product `json:"product"`
}

type PurchasedEvent struct {
	ProductID    ProductID `json:"product_id"`
	Seller       Address   `json:"seller"`
	Buyer        Address   `json:"buyer"`
	Price        int64     `json:"price"`
	PlatformFee  int64     `json:"platform_fee"`
	SellerAmount int64     `json:"seller_amount"`
}

// ReviewedEvent carries the full recomputed aggregate, not a delta, so
// mirror overwrites converge under replay.
type ReviewedEvent struct {
	ProductID ProductID `json:"product_id"`
	Reviewer  Address   `json:"reviewer"`
	Rating    int       `json:"rating"`
	Average   int64     `json:"average"`
	Count     int64     `json:"count"`
}

type DeprecatedEvent struct {
	ProductID ProductID `json:"product_id"`
	Seller    Address   `json:"seller"`
}
