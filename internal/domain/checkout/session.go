package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// Event types the receiver understands. Anything else is acknowledged and
// ignored.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.session.completed"
	EventCheckoutExpired   EventType = "checkout.session.expired"
)

// Event is a verified webhook event carrying the checkout session snapshot
// from the event payload.
type Event struct {
	ID      string
	Type    EventType
	Session Session
}

// Session is the slim view of a checkout session present in webhook payloads.
// The full line-item detail requires a separate expanded retrieval.
type Session struct {
	ID              string
	PaymentIntentID string
	UserID          string
	CustomerEmail   string
	// AmountTotal is the collected amount in major units, when the payload
	// carried one. Used by the expiration path for the abandoned-cart email.
	AmountTotal *decimal.Decimal
	Currency    string
}

// ExpandedSession is the full session detail fetched from the payment
// provider, with line items and customer details resolved.
type ExpandedSession struct {
	ID              string
	PaymentIntentID string
	AmountTotal     decimal.Decimal
	Currency        string
	LineItems       []LineItem
	Customer        *CustomerDetails
}

// CustomerDetails is what the provider knows about the paying customer.
type CustomerDetails struct {
	Email   string
	Name    string
	Phone   string
	Address *CustomerAddress
}

// CustomerAddress mirrors the provider's address fields. Any of them may be
// empty; completeness is checked at assembly time.
type CustomerAddress struct {
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
}

// LineItem is one purchasable unit within an expanded session.
type LineItem struct {
	ID          string
	Description string
	Quantity    int64
	Price       PriceInfo
	Product     ProductInfo
}

// PriceInfo is the provider-side price attached to a line item. UnitAmount is
// in major currency units. TaxRate is the raw multiplier string from price
// metadata; the pricing engine validates it.
type PriceInfo struct {
	UnitAmount decimal.Decimal
	Currency   string
	TaxRate    string
}

// ProductInfo is the provider-side product attached to a price.
type ProductInfo struct {
	ProviderID string
	Name       string
	Images     []string
	Meta       ProductMetadata
}

// ProductMetadata is the typed form of the provider's free-form product
// metadata. ProductID empty means the item cannot be resolved to a catalog
// product and is skipped during item building.
type ProductMetadata struct {
	ProductID    string
	Brand        string
	DiscountRate decimal.Decimal
}

const (
	defaultBrand   = "Unknown"
	defaultTaxRate = "1.0"

	// DefaultSize is the sentinel variant used when the cart side-channel has
	// no size for an item.
	DefaultSize = "one size"
)

// ParseProductMetadata converts raw metadata strings into typed values,
// defaulting rather than failing: missing brand becomes "Unknown", an
// unparseable or negative discount rate becomes zero.
func ParseProductMetadata(raw map[string]string) ProductMetadata {
	meta := ProductMetadata{
		ProductID: raw["productId"],
		Brand:     raw["brand"],
	}
	if meta.Brand == "" {
		meta.Brand = defaultBrand
	}

	if rate, err := decimal.NewFromString(raw["discountRate"]); err == nil && !rate.IsNegative() {
		meta.DiscountRate = rate
	}

	return meta
}

// ParseTaxRate extracts the tax multiplier string from price metadata. The
// value is passed through raw; validation happens in the pricing engine.
func ParseTaxRate(raw map[string]string) string {
	if v := raw["taxRate"]; v != "" {
		return v
	}
	return defaultTaxRate
}

// PaymentProvider retrieves expanded checkout sessions from the payment
// provider.
type PaymentProvider interface {
	ExpandedSession(ctx context.Context, sessionID string) (*ExpandedSession, error)
}

// EventVerifier authenticates a raw webhook delivery and parses it into an
// Event. Implementations own signature verification.
type EventVerifier interface {
	VerifyAndParse(payload []byte, signature string) (*Event, error)
}
