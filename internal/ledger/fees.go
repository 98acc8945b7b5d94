// internal/ledger/fees.go
package ledger

// Settlement arithmetic. All amounts are integer minor units; splits use
// floor division so platformFee + sellerAmount == price holds exactly and
// no drift accumulates across purchases.

const bpsDenominator = 10000

// SplitPrice computes the platform/seller split for a purchase.
func SplitPrice(price, feeRateBps int64) (platformFee, sellerAmount int64) {
	platformFee = price * feeRateBps / bpsDenominator
	sellerAmount = price - platformFee
	return platformFee, sellerAmount
}

// nextAverage folds one new rating (1-5) into the running weighted mean.
// The average is fixed point with two decimals and truncates, never rounds
// up, so the aggregate stays bounded by its constituent ratings. The
// truncation of earlier updates compounds on purpose; recomputing from the
// full history would change settled on-ledger values.
func nextAverage(oldAverage, oldCount int64, rating int) int64 {
	return (oldAverage*oldCount + int64(rating)*100) / (oldCount + 1)
}
