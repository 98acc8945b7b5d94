// internal/services/billing.go
package services

import "context"

// BillingWebhook is the boundary a subscription-billing integration would
// implement. The marketplace core never calls it; it exists so an external
// billing processor can be notified of settled purchases without the core
// taking a dependency on any payment provider.
type BillingWebhook interface {
	PurchaseSettled(ctx context.Context, txRef string, amount int64) error
}
