// Package order defines the order aggregate, its identity scheme, and the
// persistence contracts the checkout pipeline depends on.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order persistence.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrSessionExists is returned by Create when another order already holds
	// the same checkout session ID. Callers treat it as losing a redelivery
	// race: the order exists, so the operation is an idempotent success.
	ErrSessionExists = errors.New("order already exists for session")
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// Money is an amount in a single ISO 4217 currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Discount is a percentage discount in [0, 100].
type Discount struct {
	Rate decimal.Decimal `json:"rate"`
}

// Item is a single purchased line within an order.
//
// TaxRate is the raw multiplier string ("1.20" means 20% tax), preserved
// exactly as the payment provider supplied it. It is a multiplier, not a
// percentage.
type Item struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Brand     string          `json:"brand"`
	Price     Money           `json:"price"`
	Discount  *Discount       `json:"discount"`
	Size      string          `json:"size,omitempty"`
	Quantity  int64           `json:"quantity"`
	Image     string          `json:"image"`
	TaxRate   string          `json:"taxRate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// Totals aggregates item-level amounts. Total may differ from the arithmetic
// sum when reconciliation replaces it with the provider's collected amount.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// Address is a complete postal address. Partial addresses are never stored:
// assembly drops the whole address when a required field is missing.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// CustomerInfo is the customer snapshot cached on the order. Optional fields
// use omitempty so absent values disappear from the stored document instead
// of being persisted as nulls.
type CustomerInfo struct {
	Email   string   `json:"email"`
	Name    string   `json:"name,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Order is the aggregate root produced by the checkout completion pipeline.
// Exactly one order may exist per SessionID.
type Order struct {
	ID                 string       `json:"id"`
	UserID             string       `json:"userId"`
	OrderNumber        string       `json:"orderNumber"`
	SessionID          string       `json:"sessionId"`
	PaymentID          string       `json:"paymentId"`
	Status             Status       `json:"status"`
	Items              []Item       `json:"items"`
	Totals             Totals       `json:"totals"`
	CustomerInfo       CustomerInfo `json:"customerInfo"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
	PaymentCompletedAt *time.Time   `json:"paymentCompletedAt,omitempty"`
}

// Repository defines persistence operations for orders. GetBySessionID is the
// idempotency primitive: it must be backed by a uniqueness-enforcing lookup.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// Counter yields the next value of the durable order counter. Implementations
// must increment exactly once per call, atomically, so no two orders share a
// counter value even under concurrent completions.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}
