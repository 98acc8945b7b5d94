// internal/services/receipt_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/agentmarket-backend/internal/config"
	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/models"
	"github.com/javajoker/agentmarket-backend/internal/utils"
)

var (
	// ErrNotYetConfirmed means the transaction is unknown or not yet final;
	// the caller may retry the identical request later.
	ErrNotYetConfirmed = errors.New("transaction not yet confirmed")
	// ErrClaimMismatch means the ledger fact contradicts the claim. Never
	// retryable; logged as a misuse signal.
	ErrClaimMismatch = errors.New("receipt claim does not match ledger record")
)

// ReceiptChain is the slice of the ledger the intake path needs: resolve a
// tx ref with its finality status, and read the product record.
type ReceiptChain interface {
	EventByTxRef(ref ledger.TxRef) (ledger.Event, bool, error)
	GetProduct(id ledger.ProductID) (ledger.Product, error)
}

type ReceiptRequest struct {
	ProductID    string `json:"product_id" validate:"required,len=64,hexadecimal"`
	TxRef        string `json:"tx_ref" validate:"required,len=64,hexadecimal"`
	ClaimedBuyer string `json:"claimed_buyer" validate:"required,account_addr"`
}

// Delivery is the confirmed payload released to the caller once the claim
// checks out, including the metadata reference fulfillment needs.
type Delivery struct {
	TxRef         string    `json:"tx_ref"`
	ProductID     string    `json:"product_id"`
	Buyer         string    `json:"buyer"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	PlatformFee   int64     `json:"platform_fee"`
	SellerAmount  int64     `json:"seller_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
	MetadataRef   string    `json:"metadata_ref"`
}

// ReceiptService is the client-driven ingestion path. It never trusts the
// claim: the purchase fact is re-derived from the ledger and compared field
// by field before the projection is applied. The projection itself is the
// same idempotent apply the follower uses, so both paths racing on one tx
// ref resolve to a single mirror effect.
type ReceiptService struct {
	db           *gorm.DB
	chain        ReceiptChain
	projections  *ProjectionService
	timeout      time.Duration
	pollInterval time.Duration
}

func NewReceiptService(db *gorm.DB, chain ReceiptChain, projections *ProjectionService, cfg config.IntakeConfig) *ReceiptService {
	timeout := time.Duration(cfg.ConfirmTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pollInterval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &ReceiptService{
		db:           db,
		chain:        chain,
		projections:  projections,
		timeout:      timeout,
		pollInterval: pollInterval,
	}
}

// Confirm waits for the referenced transaction to reach finality (bounded
// by the configured timeout), verifies the decoded event against the claim,
// applies the purchase projection and returns the delivery payload.
func (s *ReceiptService) Confirm(ctx context.Context, req *ReceiptRequest) (*Delivery, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}

	productID, err := ledger.ParseProductID(req.ProductID)
	if err != nil {
		return nil, err
	}

	product, err := s.chain.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	ev, err := s.awaitFinality(ctx, ledger.TxRef(req.TxRef))
	if err != nil {
		return nil, err
	}

	if ev.Kind != ledger.EventPurchased || ev.Purchased == nil ||
		ev.Purchased.ProductID != productID ||
		ev.Purchased.Buyer != ledger.Address(req.ClaimedBuyer) {
		logrus.WithFields(logrus.Fields{
			"tx_ref":        req.TxRef,
			"product_id":    req.ProductID,
			"claimed_buyer": req.ClaimedBuyer,
			"event_kind":    ev.Kind,
		}).Warn("Receipt claim mismatch; possible misuse")
		return nil, ErrClaimMismatch
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The follower may not have projected the listing yet; make sure the
		// product row exists before applying counter deltas against it.
		if err := s.projections.EnsureProduct(tx, product, models.IngestSourceReceipt); err != nil {
			return err
		}
		return s.projections.Apply(tx, ev, models.IngestSourceReceipt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to project confirmed receipt: %w", err)
	}

	p := ev.Purchased
	return &Delivery{
		TxRef:         string(ev.TxRef),
		ProductID:     p.ProductID.Hex(),
		Buyer:         string(p.Buyer),
		Amount:        p.Price,
		AmountDisplay: utils.FormatMinorUnits(p.Price),
		PlatformFee:   p.PlatformFee,
		SellerAmount:  p.SellerAmount,
		OccurredAt:    ev.Time,
		MetadataRef:   product.MetadataRef,
	}, nil
}

// awaitFinality polls the ledger until the tx ref resolves to a finalized
// event or the caller-visible timeout elapses. An unknown tx ref is treated
// the same as an unfinalized one: the caller may simply be ahead of
// visibility, so the answer is "not yet", never a guess.
func (s *ReceiptService) awaitFinality(ctx context.Context, ref ledger.TxRef) (ledger.Event, error) {
	deadline := time.Now().Add(s.timeout)
	for {
		ev, finalized, err := s.chain.EventByTxRef(ref)
		if err == nil && finalized {
			return ev, nil
		}
		if err != nil && !errors.Is(err, ledger.ErrUnknownTx) {
			return ledger.Event{}, err
		}

		if time.Now().After(deadline) {
			return ledger.Event{}, ErrNotYetConfirmed
		}
		select {
		case <-ctx.Done():
			return ledger.Event{}, ErrNotYetConfirmed
		case <-time.After(s.pollInterval):
		}
	}
}
