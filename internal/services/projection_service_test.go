// internal/services/projection_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/models"
)

var testProductID = ledger.ProductID{0x01, 0x02}

func testTxRef(seq uint64) ledger.TxRef {
	return ledger.TxRef(fmt.Sprintf("%064d", seq))
}

func listedEvent(seq uint64) ledger.Event {
	return ledger.Event{
		Seq:   seq,
		Kind:  ledger.EventListed,
		TxRef: testTxRef(seq),
		Time:  time.Unix(1_700_000_000, 0),
		Listed: &ledger.ListedEvent{Product: ledger.Product{
			ID:          testProductID,
			Seller:      ledger.Address(testSeller),
			Name:        "capability",
			Tags:        []string{"nlp"},
			Price:       1_000_000,
			MetadataRef: "ipfs://meta",
			CreatedAt:   time.Unix(1_700_000_000, 0),
		}},
	}
}

func purchasedEvent(seq uint64, buyer string) ledger.Event {
	return ledger.Event{
		Seq:   seq,
		Kind:  ledger.EventPurchased,
		TxRef: testTxRef(seq),
		Time:  time.Unix(1_700_000_100, 0),
		Purchased: &ledger.PurchasedEvent{
			ProductID:    testProductID,
			Seller:       ledger.Address(testSeller),
			Buyer:        ledger.Address(buyer),
			Price:        1_000_000,
			PlatformFee:  80_000,
			SellerAmount: 920_000,
		},
	}
}

func reviewedEvent(seq uint64, average, count int64) ledger.Event {
	return ledger.Event{
		Seq:   seq,
		Kind:  ledger.EventReviewed,
		TxRef: testTxRef(seq),
		Time:  time.Unix(1_700_000_200, 0),
		Reviewed: &ledger.ReviewedEvent{
			ProductID: testProductID,
			Reviewer:  ledger.Address(testBuyer),
			Rating:    4,
			Average:   average,
			Count:     count,
		},
	}
}

func deprecatedEvent(seq uint64) ledger.Event {
	return ledger.Event{
		Seq:        seq,
		Kind:       ledger.EventDeprecated,
		TxRef:      testTxRef(seq),
		Time:       time.Unix(1_700_000_300, 0),
		Deprecated: &ledger.DeprecatedEvent{ProductID: testProductID, Seller: ledger.Address(testSeller)},
	}
}

func TestApplyListedIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	projections := NewProjectionService(db)

	require.NoError(t, projections.Apply(db, listedEvent(1), models.IngestSourceFollower))
	require.NoError(t, projections.Apply(db, listedEvent(1), models.IngestSourceFollower))

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var product models.Product
	require.NoError(t, db.First(&product, "product_id = ?", testProductID.Hex()).Error)
	assert.Equal(t, int64(0), product.SalesCount)
	assert.Equal(t, int64(0), product.Revenue)
	assert.Equal(t, "capability", product.Name)
}

func TestApplyPurchasedCountsEachTxRefOnce(t *testing.T) {
	db := newTestDB(t)
	projections := NewProjectionService(db)

	require.NoError(t, projections.Apply(db, listedEvent(1), models.IngestSourceFollower))
	require.NoError(t, projections.Apply(db, purchasedEvent(2, testBuyer), models.IngestSourceFollower))

	// The same fact arriving again on the other ingestion path is a no-op
	require.NoError(t, projections.Apply(db, purchasedEvent(2, testBuyer), models.IngestSourceReceipt))

	var purchases int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&purchases).Error)
	assert.Equal(t, int64(1), purchases)

	var product models.Product
	require.NoError(t, db.First(&product, "product_id = ?", testProductID.Hex()).Error)
	assert.Equal(t, int64(1), product.SalesCount)
	assert.Equal(t, int64(920_000), product.Revenue)

	// A genuinely distinct purchase still lands
	require.NoError(t, projections.Apply(db, purchasedEvent(3, testOther), models.IngestSourceFollower))
	require.NoError(t, db.First(&product, "product_id = ?", testProductID.Hex()).Error)
	assert.Equal(t, int64(2), product.SalesCount)
	assert.Equal(t, int64(1_840_000), product.Revenue)
}

func TestApplyReviewedIgnoresStaleReplay(t *testing.T) {
	db := newTestDB(t)
	projections := NewProjectionService(db)

	require.NoError(t, projections.Apply(db, reviewedEvent(3, 450, 2), models.IngestSourceFollower))

	// Replaying an older aggregate must not regress the row
	require.NoError(t, projections.Apply(db, reviewedEvent(2, 500, 1), models.IngestSourceFollower))

	var rating models.Rating
	require.NoError(t, db.First(&rating, "product_id = ?", testProductID.Hex()).Error)
	assert.Equal(t, int64(450), rating.Average)
	assert.Equal(t, int64(2), rating.ReviewCount)
	assert.Equal(t, uint64(3), rating.LedgerSeq)

	// A newer aggregate overwrites
	require.NoError(t, projections.Apply(db, reviewedEvent(4, 433, 3), models.IngestSourceFollower))
	require.NoError(t, db.First(&rating, "product_id = ?", testProductID.Hex()).Error)
	assert.Equal(t, int64(433), rating.Average)
	assert.Equal(t, int64(3), rating.ReviewCount)
}

func TestApplyDeprecatedSetsFlagOnce(t *testing.T) {
	db := newTestDB(t)
	projections := NewProjectionService(db)

	require.NoError(t, projections.Apply(db, listedEvent(1), models.IngestSourceFollower))
	require.NoError(t, projections.Apply(db, deprecatedEvent(2), models.IngestSourceFollower))
	require.NoError(t, projections.Apply(db, deprecatedEvent(2), models.IngestSourceFollower))

	var product models.Product
	require.NoError(t, db.First(&product, "product_id = ?", testProductID.Hex()).Error)
	assert.True(t, product.Deprecated)
}

func TestEnsureProductPreservesCounters(t *testing.T) {
	db := newTestDB(t)
	projections := NewProjectionService(db)

	require.NoError(t, projections.Apply(db, listedEvent(1), models.IngestSourceFollower))
	require.NoError(t, projections.Apply(db, purchasedEvent(2, testBuyer), models.IngestSourceFollower))

	snapshot := listedEvent(1).Listed.Product
	require.NoError(t, projections.EnsureProduct(db, snapshot, models.IngestSourceReceipt))

	var product models.Product
	require.NoError(t, db.First(&product, "product_id = ?", testProductID.Hex()).Error)
	assert.Equal(t, int64(1), product.SalesCount)
	assert.Equal(t, int64(920_000), product.Revenue)
	assert.Equal(t, models.IngestSourceFollower, product.Source)
}

func TestApplyRejectsMalformedEvents(t *testing.T) {
	db := newTestDB(t)
	projections := NewProjectionService(db)

	err := projections.Apply(db, ledger.Event{Seq: 1, Kind: "bogus"}, models.IngestSourceFollower)
	assert.ErrorIs(t, err, ErrMalformedEvent)

	err = projections.Apply(db, ledger.Event{Seq: 2, Kind: ledger.EventListed}, models.IngestSourceFollower)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
