// internal/services/receipt_service_test.go
package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/agentmarket-backend/internal/config"
	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/models"
)

func newTestReceiptService(t *testing.T, db *gorm.DB, chain *ledger.Ledger) *ReceiptService {
	t.Helper()
	return NewReceiptService(db, chain, NewProjectionService(db), config.IntakeConfig{
		ConfirmTimeoutMs: 200,
		PollIntervalMs:   20,
	})
}

func TestConfirmReleasesDelivery(t *testing.T) {
	db := newTestDB(t)
	chain := newTestChain(t, 0)
	receipts := newTestReceiptService(t, db, chain)

	product := listOnChain(t, chain)
	purchase, err := chain.Purchase(ledger.Address(testBuyer), product.ID)
	require.NoError(t, err)

	delivery, err := receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    product.ID.Hex(),
		TxRef:        string(purchase.TxRef),
		ClaimedBuyer: testBuyer,
	})
	require.NoError(t, err)

	assert.Equal(t, string(purchase.TxRef), delivery.TxRef)
	assert.Equal(t, testBuyer, delivery.Buyer)
	assert.Equal(t, int64(1_000_000), delivery.Amount)
	assert.Equal(t, "1", delivery.AmountDisplay)
	assert.Equal(t, int64(80_000), delivery.PlatformFee)
	assert.Equal(t, "ipfs://meta", delivery.MetadataRef)

	// The mirror converged even though the follower never ran: the receipt
	// path ensured the product row before applying the purchase
	var row models.Product
	require.NoError(t, db.First(&row, "product_id = ?", product.ID.Hex()).Error)
	assert.Equal(t, int64(1), row.SalesCount)
	assert.Equal(t, models.IngestSourceReceipt, row.Source)
}

func TestConfirmAndFollowerConvergeInEitherOrder(t *testing.T) {
	db := newTestDB(t)
	chain := newTestChain(t, 0)
	receipts := newTestReceiptService(t, db, chain)
	follower := NewFollowerService(db, chain, NewProjectionService(db), config.FollowerConfig{})

	product := listOnChain(t, chain)
	purchase, err := chain.Purchase(ledger.Address(testBuyer), product.ID)
	require.NoError(t, err)

	req := &ReceiptRequest{
		ProductID:    product.ID.Hex(),
		TxRef:        string(purchase.TxRef),
		ClaimedBuyer: testBuyer,
	}

	// Receipt first, follower second
	_, err = receipts.Confirm(context.Background(), req)
	require.NoError(t, err)
	_, err = follower.Sync()
	require.NoError(t, err)

	// Redeeming the receipt again is also safe
	_, err = receipts.Confirm(context.Background(), req)
	require.NoError(t, err)

	var purchases int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&purchases).Error)
	assert.Equal(t, int64(1), purchases)

	var row models.Product
	require.NoError(t, db.First(&row, "product_id = ?", product.ID.Hex()).Error)
	assert.Equal(t, int64(1), row.SalesCount)
	assert.Equal(t, int64(920_000), row.Revenue)
}

func TestConfirmAfterFollowerProjection(t *testing.T) {
	db := newTestDB(t)
	chain := newTestChain(t, 0)
	receipts := newTestReceiptService(t, db, chain)
	follower := NewFollowerService(db, chain, NewProjectionService(db), config.FollowerConfig{})

	product := listOnChain(t, chain)
	purchase, err := chain.Purchase(ledger.Address(testBuyer), product.ID)
	require.NoError(t, err)

	_, err = follower.Sync()
	require.NoError(t, err)

	delivery, err := receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    product.ID.Hex(),
		TxRef:        string(purchase.TxRef),
		ClaimedBuyer: testBuyer,
	})
	require.NoError(t, err)
	assert.Equal(t, "ipfs://meta", delivery.MetadataRef)

	var row models.Product
	require.NoError(t, db.First(&row, "product_id = ?", product.ID.Hex()).Error)
	assert.Equal(t, int64(1), row.SalesCount)
}

func TestConfirmRejectsMismatchedClaims(t *testing.T) {
	db := newTestDB(t)
	chain := newTestChain(t, 0)
	receipts := newTestReceiptService(t, db, chain)

	product := listOnChain(t, chain)
	purchase, err := chain.Purchase(ledger.Address(testBuyer), product.ID)
	require.NoError(t, err)

	// Wrong buyer
	_, err = receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    product.ID.Hex(),
		TxRef:        string(purchase.TxRef),
		ClaimedBuyer: testOther,
	})
	assert.ErrorIs(t, err, ErrClaimMismatch)

	// A tx ref that resolves to a non-purchase event
	listedRef := listedTxRef(t, chain)
	_, err = receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    product.ID.Hex(),
		TxRef:        listedRef,
		ClaimedBuyer: testBuyer,
	})
	assert.ErrorIs(t, err, ErrClaimMismatch)

	// Mismatches never write to the mirror
	var purchases int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&purchases).Error)
	assert.Equal(t, int64(0), purchases)
}

func TestConfirmTimesOutAsRetryable(t *testing.T) {
	db := newTestDB(t)
	chain := newTestChain(t, 0)
	receipts := newTestReceiptService(t, db, chain)

	product := listOnChain(t, chain)

	// Unknown tx ref: the caller may simply be ahead of visibility
	_, err := receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    product.ID.Hex(),
		TxRef:        strings.Repeat("deadbeef", 8),
		ClaimedBuyer: testBuyer,
	})
	assert.ErrorIs(t, err, ErrNotYetConfirmed)
}

func TestConfirmWaitsForFinality(t *testing.T) {
	db := newTestDB(t)
	chain := newTestChain(t, time.Hour)
	receipts := newTestReceiptService(t, db, chain)

	product := listOnChain(t, chain)
	purchase, err := chain.Purchase(ledger.Address(testBuyer), product.ID)
	require.NoError(t, err)

	// The purchase exists but is not final within the caller's timeout
	_, err = receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    product.ID.Hex(),
		TxRef:        string(purchase.TxRef),
		ClaimedBuyer: testBuyer,
	})
	assert.ErrorIs(t, err, ErrNotYetConfirmed)
}

func TestConfirmValidatesInput(t *testing.T) {
	db := newTestDB(t)
	chain := newTestChain(t, 0)
	receipts := newTestReceiptService(t, db, chain)

	_, err := receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    "not-hex",
		TxRef:        strings.Repeat("ab", 32),
		ClaimedBuyer: testBuyer,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	// Well-formed but unknown product
	_, err = receipts.Confirm(context.Background(), &ReceiptRequest{
		ProductID:    strings.Repeat("ab", 32),
		TxRef:        strings.Repeat("cd", 32),
		ClaimedBuyer: testBuyer,
	})
	assert.ErrorIs(t, err, ledger.ErrProductNotFound)
}

func listedTxRef(t *testing.T, chain *ledger.Ledger) string {
	t.Helper()
	events := chain.FinalizedEventsAfter(0, 1)
	require.NotEmpty(t, events)
	require.Equal(t, ledger.EventListed, events[0].Kind)
	return string(events[0].TxRef)
}
