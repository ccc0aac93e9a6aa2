// Package rediscart implements the cart side channel on Redis. The storefront
// writes per-session variant selections and the user's cart there; this
// service only reads variants and clears carts after checkout.
package rediscart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/cart"
)

var _ cart.Store = (*Store)(nil)

// Store is a cart.Store backed by Redis.
type Store struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

// Client returns the underlying Redis client.
func (s *Store) Client() *redis.Client {
	return s.rdb
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping reports connection health, used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func variantsKey(sessionID string) string {
	return "checkout:variants:" + sessionID
}

func cartKey(userID string) string {
	return "cart:" + userID
}

// Variants returns the product-to-size selections recorded for the checkout
// session. An absent hash yields an empty map, not an error.
func (s *Store) Variants(ctx context.Context, sessionID string) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, variantsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session variants: %w", err)
	}
	return result, nil
}

// Clear removes the user's cart and the session's variant hash. Deleting
// already-missing keys is not an error, which keeps redeliveries harmless.
func (s *Store) Clear(ctx context.Context, userID, sessionID string) error {
	keys := []string{variantsKey(sessionID)}
	if userID != "" {
		keys = append(keys, cartKey(userID))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing cart keys: %w", err)
	}
	return nil
}
