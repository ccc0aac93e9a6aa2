package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/order"
)

var _ order.Counter = (*OrderCounter)(nil)

// OrderCounter hands out sequential order numbers from a row in
// order_counters. The row is locked for the duration of the increment so
// concurrent webhooks never observe the same value.
type OrderCounter struct {
	pool *pgxpool.Pool
}

// NewOrderCounter returns an OrderCounter backed by the given pool.
func NewOrderCounter(pool *pgxpool.Pool) *OrderCounter {
	return &OrderCounter{pool: pool}
}

// Next atomically increments and returns the orders counter.
func (c *OrderCounter) Next(ctx context.Context) (int64, error) {
	var next int64
	err := withTx(ctx, c.pool, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx,
			`SELECT value FROM order_counters WHERE name = 'orders' FOR UPDATE`,
		).Scan(&current)
		if err != nil {
			return fmt.Errorf("reading counter: %w", err)
		}

		next = current + 1
		if _, err := tx.Exec(ctx,
			`UPDATE order_counters SET value = $1 WHERE name = 'orders'`, next,
		); err != nil {
			return fmt.Errorf("advancing counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
