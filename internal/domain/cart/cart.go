// Package cart defines the side-channel carrying per-item variant data that
// the payment provider's line items cannot express.
package cart

import "context"

// Store provides the cart side-channel: size/variant data recorded at
// checkout start, keyed by checkout session, plus cart cleanup after
// completion.
type Store interface {
	// Variants returns productID -> size for the session. A missing record
	// yields an empty map, not an error.
	Variants(ctx context.Context, sessionID string) (map[string]string, error)

	// Clear deletes the user's cart and the session's variant record after a
	// successful order.
	Clear(ctx context.Context, userID, sessionID string) error
}
