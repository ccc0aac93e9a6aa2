// Package inventory defines the stock adjustment contract used after order
// creation.
package inventory

import (
	"context"
	"fmt"
)

// Decrement is a requested stock reduction for one product.
type Decrement struct {
	ProductID string
	Quantity  int64
}

// NotFoundError indicates a referenced product does not exist.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a product has less stock than requested.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// Adjuster validates and applies a set of stock decrements as a single
// all-or-nothing operation: if any product is missing or short on stock, no
// stock changes and the error names the offending product.
type Adjuster interface {
	DecrementStock(ctx context.Context, items []Decrement) error
}
