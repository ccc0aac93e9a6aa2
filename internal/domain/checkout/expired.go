package checkout

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/batibatii/textilecom-webhook-receiver/internal/notify"
)

// HandleSessionExpired processes an expired checkout session. No order is
// created and no durable state changes: the abandonment is logged, and when a
// customer email is present an abandoned-cart nudge goes out best-effort.
// Nothing on this path escalates, so the webhook is always acknowledged.
func (p *Processor) HandleSessionExpired(ctx context.Context, s Session) {
	lg := zctx.From(ctx).With(zap.String("session_id", s.ID))

	fields := []zap.Field{
		zap.String("user_id", s.UserID),
		zap.String("currency", s.Currency),
	}
	if s.AmountTotal != nil {
		fields = append(fields, zap.String("amount_total", s.AmountTotal.String()))
	}
	lg.Info("Checkout session expired without payment", fields...)

	if s.CustomerEmail == "" {
		return
	}

	msg := notify.AbandonedCart(s.CustomerEmail, p.cartURL, s.AmountTotal, s.Currency)
	if sent := p.notifier.Send(ctx, msg); !sent.Success {
		lg.Warn("Abandoned-cart email failed", zap.Error(sent.Err))
	}
}
