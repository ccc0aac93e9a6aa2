//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/inventory"
	"github.com/batibatii/textilecom-webhook-receiver/internal/storage/postgres"
)

func seedProduct(t *testing.T, id string, stock int64) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, title, brand, price, stock)
		VALUES ($1, $2, 'TextileCo', 50.00, $3)
		ON CONFLICT (id) DO UPDATE SET stock = EXCLUDED.stock`,
		id, "Product "+id, stock)
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func productStock(t *testing.T, id string) int64 {
	t.Helper()
	var stock int64
	if err := pool.QueryRow(context.Background(),
		`SELECT stock FROM products WHERE id = $1`, id).Scan(&stock); err != nil {
		t.Fatalf("read stock %s: %v", id, err)
	}
	return stock
}

func TestInventoryAdjuster_Decrement(t *testing.T) {
	ctx := context.Background()
	adjuster := postgres.NewInventoryAdjuster(pool)

	seedProduct(t, "inv-dec-1", 10)
	seedProduct(t, "inv-dec-2", 5)

	err := adjuster.DecrementStock(ctx, []inventory.Decrement{
		{ProductID: "inv-dec-1", Quantity: 3},
		{ProductID: "inv-dec-2", Quantity: 5},
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}

	if got := productStock(t, "inv-dec-1"); got != 7 {
		t.Fatalf("expected stock 7, got %d", got)
	}
	if got := productStock(t, "inv-dec-2"); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}

func TestInventoryAdjuster_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	adjuster := postgres.NewInventoryAdjuster(pool)

	seedProduct(t, "inv-aon-1", 10)
	seedProduct(t, "inv-aon-2", 1)

	err := adjuster.DecrementStock(ctx, []inventory.Decrement{
		{ProductID: "inv-aon-1", Quantity: 3},
		{ProductID: "inv-aon-2", Quantity: 2},
	})

	var insufficient *inventory.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.ProductID != "inv-aon-2" || insufficient.Available != 1 || insufficient.Requested != 2 {
		t.Fatalf("unexpected error details: %+v", insufficient)
	}

	// The valid decrement must not have been applied.
	if got := productStock(t, "inv-aon-1"); got != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", got)
	}
}

func TestInventoryAdjuster_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	adjuster := postgres.NewInventoryAdjuster(pool)

	seedProduct(t, "inv-missing-1", 10)

	err := adjuster.DecrementStock(ctx, []inventory.Decrement{
		{ProductID: "inv-missing-1", Quantity: 1},
		{ProductID: "inv-no-such", Quantity: 1},
	})

	var notFound *inventory.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if got := productStock(t, "inv-missing-1"); got != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", got)
	}
}

func TestInventoryAdjuster_DuplicateProductAggregated(t *testing.T) {
	ctx := context.Background()
	adjuster := postgres.NewInventoryAdjuster(pool)

	seedProduct(t, "inv-agg-1", 5)

	err := adjuster.DecrementStock(ctx, []inventory.Decrement{
		{ProductID: "inv-agg-1", Quantity: 2},
		{ProductID: "inv-agg-1", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got := productStock(t, "inv-agg-1"); got != 1 {
		t.Fatalf("expected stock 1, got %d", got)
	}

	// Combined quantity above stock must fail even though each line alone fits.
	err = adjuster.DecrementStock(ctx, []inventory.Decrement{
		{ProductID: "inv-agg-1", Quantity: 1},
		{ProductID: "inv-agg-1", Quantity: 1},
	})
	var insufficient *inventory.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
}
