//go:build integration

package integration

import (
	"context"
	"testing"
)

func TestCartStore_VariantsRoundTrip(t *testing.T) {
	ctx := context.Background()

	redis := carts.Client()
	if err := redis.HSet(ctx, "checkout:variants:cs_cart_1",
		"prod-1", "M", "prod-2", "XL").Err(); err != nil {
		t.Fatalf("seed variants: %v", err)
	}

	got, err := carts.Variants(ctx, "cs_cart_1")
	if err != nil {
		t.Fatalf("variants: %v", err)
	}
	if got["prod-1"] != "M" || got["prod-2"] != "XL" {
		t.Fatalf("unexpected variants: %v", got)
	}
}

func TestCartStore_VariantsMissingSession(t *testing.T) {
	got, err := carts.Variants(context.Background(), "cs_cart_missing")
	if err != nil {
		t.Fatalf("variants: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestCartStore_Clear(t *testing.T) {
	ctx := context.Background()
	redis := carts.Client()

	if err := redis.HSet(ctx, "checkout:variants:cs_cart_2", "prod-1", "S").Err(); err != nil {
		t.Fatalf("seed variants: %v", err)
	}
	if err := redis.Set(ctx, "cart:user-cart-2", `{"items":[]}`, 0).Err(); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	if err := carts.Clear(ctx, "user-cart-2", "cs_cart_2"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	for _, key := range []string{"checkout:variants:cs_cart_2", "cart:user-cart-2"} {
		n, err := redis.Exists(ctx, key).Result()
		if err != nil {
			t.Fatalf("exists %s: %v", key, err)
		}
		if n != 0 {
			t.Fatalf("key %s still present", key)
		}
	}

	// Clearing again is a no-op.
	if err := carts.Clear(ctx, "user-cart-2", "cs_cart_2"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
