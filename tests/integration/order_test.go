//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/order"
	"github.com/batibatii/textilecom-webhook-receiver/internal/storage/postgres"
)

func testOrder(sessionID string) *order.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	completed := now
	return &order.Order{
		ID:          order.NewID(),
		UserID:      "user-integration",
		OrderNumber: "ORD-000042-ABCDEFGH",
		SessionID:   sessionID,
		PaymentID:   "pi_integration_1",
		Status:      order.StatusCompleted,
		Items: []order.Item{{
			ProductID: "prod-1",
			Title:     "Linen Shirt",
			Brand:     "TextileCo",
			Price:     order.Money{Amount: decimal.RequireFromString("50.00"), Currency: "USD"},
			Size:      "M",
			Quantity:  2,
			TaxRate:   "1.08",
			Subtotal:  decimal.RequireFromString("100.00"),
			Tax:       decimal.RequireFromString("8.00"),
			Total:     decimal.RequireFromString("108.00"),
		}},
		Totals: order.Totals{
			Subtotal: decimal.RequireFromString("100.00"),
			Tax:      decimal.RequireFromString("8.00"),
			Total:    decimal.RequireFromString("108.00"),
			Currency: "USD",
		},
		CustomerInfo: order.CustomerInfo{
			Email: "jane@example.com",
			Name:  "Jane Doe",
		},
		CreatedAt:          now,
		UpdatedAt:          now,
		PaymentCompletedAt: &completed,
	}
}

func TestOrderRepository_CreateAndFetch(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)

	o := testOrder("cs_int_create_1")
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetBySessionID(ctx, "cs_int_create_1")
	if err != nil {
		t.Fatalf("get by session: %v", err)
	}
	if got.ID != o.ID {
		t.Fatalf("expected order %q, got %q", o.ID, got.ID)
	}
	if !got.Totals.Total.Equal(o.Totals.Total) {
		t.Fatalf("expected total %s, got %s", o.Totals.Total, got.Totals.Total)
	}
	if len(got.Items) != 1 || got.Items[0].ProductID != "prod-1" {
		t.Fatalf("items not round-tripped: %+v", got.Items)
	}
	if got.CustomerInfo.Email != "jane@example.com" {
		t.Fatalf("customer not round-tripped: %+v", got.CustomerInfo)
	}
}

func TestOrderRepository_DuplicateSession(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)

	first := testOrder("cs_int_dup_1")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := testOrder("cs_int_dup_1")
	err := repo.Create(ctx, second)
	if !errors.Is(err, order.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestOrderRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)

	if _, err := repo.GetBySessionID(ctx, "cs_int_missing"); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "order_missing"); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)

	older := testOrder("cs_int_list_1")
	older.UserID = "user-list"
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("create older: %v", err)
	}

	newer := testOrder("cs_int_list_2")
	newer.UserID = "user-list"
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("create newer: %v", err)
	}

	got, err := repo.ListByUser(ctx, "user-list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}
	if got[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %q", got[0].ID)
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)

	o := testOrder("cs_int_status_1")
	o.Status = order.StatusProcessing
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateStatus(ctx, o.ID, order.StatusRefunded); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := repo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != order.StatusRefunded {
		t.Fatalf("expected refunded, got %q", got.Status)
	}

	if err := repo.UpdateStatus(ctx, "order_missing", order.StatusFailed); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
