package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/order"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items and
// customer info are stored as JSONB documents; monetary totals live in
// NUMERIC columns.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, user_id, order_number, session_id, payment_id, status,
	items, subtotal, tax, total, currency, customer,
	created_at, updated_at, payment_completed_at`

// Create persists a new order. A unique violation on the session index maps
// to order.ErrSessionExists so callers can treat the lost redelivery race as
// an idempotent success.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	customerJSON, err := json.Marshal(o.CustomerInfo)
	if err != nil {
		return fmt.Errorf("marshaling customer info: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.UserID, o.OrderNumber, o.SessionID, o.PaymentID, string(o.Status),
		itemsJSON, o.Totals.Subtotal, o.Totals.Tax, o.Totals.Total, o.Totals.Currency, customerJSON,
		o.CreatedAt, o.UpdatedAt, o.PaymentCompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrSessionExists
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// GetByID returns a single order, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// GetBySessionID is the idempotency lookup: at most one order can match
// thanks to the unique session index.
func (r *OrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE session_id = $1`, sessionID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order by session %q: %w", sessionID, err)
	}
	return o, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}
	return result, nil
}

// UpdateStatus transitions an order's lifecycle state.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o            order.Order
		status       string
		itemsJSON    []byte
		customerJSON []byte
		subtotal     decimal.Decimal
		tax          decimal.Decimal
		total        decimal.Decimal
		currency     string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.SessionID, &o.PaymentID, &status,
		&itemsJSON, &subtotal, &tax, &total, &currency, &customerJSON,
		&o.CreatedAt, &o.UpdatedAt, &o.PaymentCompletedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = order.Status(status)
	o.Totals = order.Totals{Subtotal: subtotal, Tax: tax, Total: total, Currency: currency}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(customerJSON, &o.CustomerInfo); err != nil {
		return nil, fmt.Errorf("unmarshaling customer info: %w", err)
	}
	return &o, nil
}
