// internal/ledger/ledger_test.go
package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seller = Address("a11ce00000000001")
	buyer  = Address("b0b0000000000002")
	other  = Address("ca70100000000003")
)

func testParams() Params {
	return Params{
		FeeRateBps:      800,
		ListingFee:      100_000,
		MinPrice:        10_000,
		MaxPrice:        1_000_000_000_000,
		PlatformAccount: Address("platform"),
	}
}

func newFundedLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(testParams())
	require.NoError(t, l.Credit(seller, 1_000_000))
	require.NoError(t, l.Credit(buyer, 10_000_000))
	return l
}

func mustList(t *testing.T, l *Ledger) Product {
	t.Helper()
	product, _, err := l.List(seller, "capability", []string{"nlp", "summarize"}, 1_000_000, "ipfs://meta")
	require.NoError(t, err)
	return product
}

func TestCreditValidation(t *testing.T) {
	l := New(testParams())
	assert.ErrorIs(t, l.Credit("", 100), ErrValidation)
	assert.ErrorIs(t, l.Credit(seller, 0), ErrValidation)
	assert.ErrorIs(t, l.Credit(seller, -5), ErrValidation)
	assert.Equal(t, int64(0), l.BalanceOf(seller))
}

func TestListDebitsListingFee(t *testing.T) {
	l := newFundedLedger(t)

	product := mustList(t, l)

	assert.Equal(t, int64(900_000), l.BalanceOf(seller))
	assert.Equal(t, int64(100_000), l.BalanceOf("platform"))
	assert.Equal(t, seller, product.Seller)
	assert.False(t, product.Deprecated)
	assert.Equal(t, uint64(1), l.HeadSeq())

	stored, err := l.GetProduct(product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, stored.Name)
	assert.Equal(t, []string{"nlp", "summarize"}, stored.Tags)
}

func TestListRejectsWithoutListingFee(t *testing.T) {
	l := New(testParams())
	require.NoError(t, l.Credit(seller, 99_999))

	_, _, err := l.List(seller, "capability", []string{"nlp"}, 1_000_000, "")
	assert.ErrorIs(t, err, ErrInsufficientAuthorization)
	assert.Equal(t, int64(99_999), l.BalanceOf(seller))
	assert.Equal(t, uint64(0), l.HeadSeq())
}

func TestListValidation(t *testing.T) {
	l := newFundedLedger(t)

	cases := []struct {
		name        string
		productName string
		tags        []string
		price       int64
		metadataRef string
	}{
		{"empty name", "", []string{"nlp"}, 1_000_000, ""},
		{"name too long", strings.Repeat("x", MaxNameLength+1), []string{"nlp"}, 1_000_000, ""},
		{"no tags", "capability", nil, 1_000_000, ""},
		{"too many tags", "capability", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, 1_000_000, ""},
		{"duplicate tags", "capability", []string{"nlp", "nlp"}, 1_000_000, ""},
		{"empty tag", "capability", []string{""}, 1_000_000, ""},
		{"price below minimum", "capability", []string{"nlp"}, 9_999, ""},
		{"price above maximum", "capability", []string{"nlp"}, 1_000_000_000_001, ""},
		{"metadata too long", "capability", []string{"nlp"}, 1_000_000, strings.Repeat("m", MaxMetadataLength+1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := l.List(seller, tc.productName, tc.tags, tc.price, tc.metadataRef)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// No rejected attempt touched balances or the event log
	assert.Equal(t, int64(1_000_000), l.BalanceOf(seller))
	assert.Equal(t, uint64(0), l.HeadSeq())
}

func TestPurchaseSettlement(t *testing.T) {
	l := newFundedLedger(t)
	product := mustList(t, l)

	purchase, err := l.Purchase(buyer, product.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(80_000), purchase.PlatformFee)
	assert.Equal(t, int64(920_000), purchase.SellerAmount)
	assert.Equal(t, int64(9_000_000), l.BalanceOf(buyer))
	assert.Equal(t, int64(1_820_000), l.BalanceOf(seller)) // 900k + 920k
	assert.Equal(t, int64(180_000), l.BalanceOf("platform"))

	stored, err := l.GetProduct(product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.SalesCount)
	assert.Equal(t, int64(920_000), stored.Revenue)
	assert.True(t, l.HasPurchased(buyer, product.ID))
	assert.NotEmpty(t, purchase.TxRef)
	assert.Equal(t, uint64(2), purchase.Seq)
}

func TestPurchaseRejections(t *testing.T) {
	l := newFundedLedger(t)
	product := mustList(t, l)

	_, err := l.Purchase(buyer, ProductID{0xff})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = l.Purchase(seller, product.ID)
	assert.ErrorIs(t, err, ErrSelfPurchaseForbidden)

	_, err = l.Purchase(other, product.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// A rejected purchase left every balance and counter untouched
	stored, err := l.GetProduct(product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.SalesCount)
	assert.Equal(t, int64(0), l.BalanceOf(other))
	assert.Equal(t, uint64(1), l.HeadSeq())

	_, err = l.Deprecate(seller, product.ID)
	require.NoError(t, err)
	_, err = l.Purchase(buyer, product.ID)
	assert.ErrorIs(t, err, ErrProductDeprecated)
}

func TestReviewRequiresProofOfPurchase(t *testing.T) {
	l := newFundedLedger(t)
	product := mustList(t, l)

	_, _, err := l.Review(buyer, product.ID, 6)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, _, err = l.Review(buyer, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, _, err = l.Review(buyer, ProductID{0xff}, 4)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, _, err = l.Review(buyer, product.ID, 4)
	assert.ErrorIs(t, err, ErrNotAPurchaser)

	_, err = l.Purchase(buyer, product.ID)
	require.NoError(t, err)

	rating, txRef, err := l.Review(buyer, product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(400), rating.Average)
	assert.Equal(t, int64(1), rating.Count)
	assert.NotEmpty(t, txRef)

	_, _, err = l.Review(buyer, product.ID, 5)
	assert.ErrorIs(t, err, ErrDuplicateReview)

	stored, err := l.GetRating(product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), stored.Average)
	assert.Equal(t, int64(1), stored.Count)
}

func TestReviewAverageAcrossBuyers(t *testing.T) {
	l := newFundedLedger(t)
	require.NoError(t, l.Credit(other, 10_000_000))
	product := mustList(t, l)

	_, err := l.Purchase(buyer, product.ID)
	require.NoError(t, err)
	_, err = l.Purchase(other, product.ID)
	require.NoError(t, err)

	rating, _, err := l.Review(buyer, product.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(500), rating.Average)

	rating, _, err = l.Review(other, product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(450), rating.Average)
	assert.Equal(t, int64(2), rating.Count)
}

func TestDeprecateIsIdempotent(t *testing.T) {
	l := newFundedLedger(t)
	product := mustList(t, l)

	_, err := l.Deprecate(buyer, product.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = l.Deprecate(seller, ProductID{0xff})
	assert.ErrorIs(t, err, ErrProductNotFound)

	first, err := l.Deprecate(seller, product.ID)
	require.NoError(t, err)
	head := l.HeadSeq()

	// Repeating the call is a pure no-op returning the original reference
	second, err := l.Deprecate(seller, product.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, head, l.HeadSeq())

	// Deprecated products stay readable
	stored, err := l.GetProduct(product.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deprecated)
}

func TestTxRefsAreHexAndDistinctFromProductIDs(t *testing.T) {
	l := newFundedLedger(t)

	product, listRef, err := l.List(seller, "capability", []string{"nlp"}, 1_000_000, "")
	require.NoError(t, err)
	purchase, err := l.Purchase(buyer, product.ID)
	require.NoError(t, err)

	assert.Regexp(t, "^[0-9a-f]{64}$", string(listRef))
	assert.Regexp(t, "^[0-9a-f]{64}$", string(purchase.TxRef))
	assert.NotEqual(t, listRef, purchase.TxRef)
	assert.NotEqual(t, product.ID.Hex(), string(listRef))
	assert.NotEqual(t, product.ID.Hex(), string(purchase.TxRef))
}

func TestEventFinality(t *testing.T) {
	params := testParams()
	params.FinalityDelay = time.Hour
	l := New(params)
	require.NoError(t, l.Credit(seller, 1_000_000))

	now := time.Unix(1_700_000_000, 0)
	l.SetNowFunc(func() time.Time { return now })

	_, txRef, err := l.List(seller, "capability", []string{"nlp"}, 1_000_000, "")
	require.NoError(t, err)

	ev, finalized, err := l.EventByTxRef(txRef)
	require.NoError(t, err)
	assert.False(t, finalized)
	assert.Equal(t, EventListed, ev.Kind)
	assert.Empty(t, l.FinalizedEventsAfter(0, 10))

	now = now.Add(time.Hour)
	_, finalized, err = l.EventByTxRef(txRef)
	require.NoError(t, err)
	assert.True(t, finalized)
	assert.Len(t, l.FinalizedEventsAfter(0, 10), 1)

	_, _, err = l.EventByTxRef("deadbeef")
	assert.ErrorIs(t, err, ErrUnknownTx)
}

func TestFinalizedEventsAreGapless(t *testing.T) {
	params := testParams()
	params.FinalityDelay = time.Hour
	l := New(params)
	require.NoError(t, l.Credit(seller, 1_000_000))
	require.NoError(t, l.Credit(buyer, 10_000_000))

	now := time.Unix(1_700_000_000, 0)
	l.SetNowFunc(func() time.Time { return now })

	product, _, err := l.List(seller, "capability", []string{"nlp"}, 1_000_000, "")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	_, err = l.Purchase(buyer, product.ID)
	require.NoError(t, err)

	// Only the listing is old enough; the purchase behind it must not be
	// skipped over even though the limit allows more
	now = now.Add(15 * time.Minute)
	events := l.FinalizedEventsAfter(0, 10)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, EventListed, events[0].Kind)

	now = now.Add(time.Hour)
	events = l.FinalizedEventsAfter(0, 10)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[1].Seq)

	events = l.FinalizedEventsAfter(1, 10)
	require.Len(t, events, 1)
	assert.Equal(t, EventPurchased, events[0].Kind)
}
