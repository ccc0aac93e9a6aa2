package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSessionExpired_SendsAbandonedCartEmail(t *testing.T) {
	env := newTestEnv(nil)
	amount := decimal.RequireFromString("120.00")

	env.proc.HandleSessionExpired(context.Background(), Session{
		ID:            "cs_exp_1",
		UserID:        "user-1",
		CustomerEmail: "jane@example.com",
		AmountTotal:   &amount,
		Currency:      "USD",
	})

	require.Len(t, env.notifier.sent, 1)
	msg := env.notifier.sent[0]
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, "Complete Your Purchase", msg.Subject)
	assert.Contains(t, msg.HTML, "$120.00")

	// No durable writes on this path.
	assert.Empty(t, env.orders.created)
	assert.Empty(t, env.stock.calls)
	assert.Empty(t, env.carts.cleared)
}

func TestHandleSessionExpired_NoEmailNoSend(t *testing.T) {
	env := newTestEnv(nil)

	env.proc.HandleSessionExpired(context.Background(), Session{
		ID:     "cs_exp_2",
		UserID: "user-1",
	})

	assert.Empty(t, env.notifier.sent)
}

func TestHandleSessionExpired_SendFailureDoesNotPanicOrEscalate(t *testing.T) {
	env := newTestEnv(nil)
	env.notifier.fail = true

	env.proc.HandleSessionExpired(context.Background(), Session{
		ID:            "cs_exp_3",
		CustomerEmail: "jane@example.com",
	})

	require.Len(t, env.notifier.sent, 1)
}
