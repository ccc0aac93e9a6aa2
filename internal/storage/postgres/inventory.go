package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/inventory"
)

var _ inventory.Adjuster = (*InventoryAdjuster)(nil)

// InventoryAdjuster applies stock decrements against the products table.
// All rows are locked and validated before any decrement is written, so a
// batch either applies in full or not at all.
type InventoryAdjuster struct {
	pool *pgxpool.Pool
}

// NewInventoryAdjuster returns an InventoryAdjuster backed by the given pool.
func NewInventoryAdjuster(pool *pgxpool.Pool) *InventoryAdjuster {
	return &InventoryAdjuster{pool: pool}
}

// DecrementStock subtracts the requested quantities inside one transaction.
// It returns inventory.NotFoundError for unknown products and
// inventory.InsufficientStockError when stock would go negative.
func (a *InventoryAdjuster) DecrementStock(ctx context.Context, decs []inventory.Decrement) error {
	if len(decs) == 0 {
		return nil
	}

	// Same product can appear on several line items; decrement it once.
	wanted := make(map[string]int64, len(decs))
	ids := make([]string, 0, len(decs))
	for _, d := range decs {
		if _, ok := wanted[d.ProductID]; !ok {
			ids = append(ids, d.ProductID)
		}
		wanted[d.ProductID] += d.Quantity
	}

	return withTx(ctx, a.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, stock FROM products WHERE id = ANY($1) FOR UPDATE`, ids)
		if err != nil {
			return fmt.Errorf("locking product rows: %w", err)
		}

		stock := make(map[string]int64, len(decs))
		for rows.Next() {
			var (
				id    string
				avail int64
			)
			if err := rows.Scan(&id, &avail); err != nil {
				rows.Close()
				return fmt.Errorf("scanning product stock: %w", err)
			}
			stock[id] = avail
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating product rows: %w", err)
		}

		// Validate the whole batch before touching anything.
		for _, id := range ids {
			avail, ok := stock[id]
			if !ok {
				return &inventory.NotFoundError{ProductID: id}
			}
			if avail < wanted[id] {
				return &inventory.InsufficientStockError{
					ProductID: id,
					Available: avail,
					Requested: wanted[id],
				}
			}
		}

		for _, id := range ids {
			if _, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1`,
				id, wanted[id],
			); err != nil {
				return fmt.Errorf("decrementing stock for %q: %w", id, err)
			}
		}
		return nil
	})
}
