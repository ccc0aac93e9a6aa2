// Package handler exposes the payment provider webhook over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/checkout"
)

// maxPayloadBytes caps the webhook request body. Provider payloads with
// expanded line items stay well below this.
const maxPayloadBytes = 1 << 20

// seenCapacity sizes the advisory redelivery filter. At the expected event
// volume the filter stays under its target false-positive rate for weeks.
const (
	seenCapacity = 1_000_000
	seenFPR      = 0.001
)

// Processor handles verified checkout events. Satisfied by
// *checkout.Processor.
type Processor interface {
	HandleSessionCompleted(ctx context.Context, s checkout.Session) (*checkout.Result, error)
	HandleSessionExpired(ctx context.Context, s checkout.Session)
}

// Webhook is the HTTP handler for provider event deliveries.
type Webhook struct {
	verifier  checkout.EventVerifier
	processor Processor
	events    metric.Int64Counter

	// seen is an advisory redelivery detector. The authoritative duplicate
	// check is the session lookup inside the processor; this only feeds
	// logging and metrics.
	seenMu sync.Mutex
	seen   *bloom.BloomFilter
}

// NewWebhook constructs the webhook handler.
func NewWebhook(verifier checkout.EventVerifier, processor Processor, meter metric.Meter) (*Webhook, error) {
	events, err := meter.Int64Counter("webhook.events",
		metric.WithDescription("Webhook event deliveries by type and outcome"))
	if err != nil {
		return nil, err
	}
	return &Webhook{
		verifier:  verifier,
		processor: processor,
		events:    events,
		seen:      bloom.NewWithEstimates(seenCapacity, seenFPR),
	}, nil
}

// maybeRedelivery records the event ID in the filter and reports whether it
// was probably delivered before.
func (h *Webhook) maybeRedelivery(eventID string) bool {
	h.seenMu.Lock()
	defer h.seenMu.Unlock()
	return h.seen.TestOrAddString(eventID)
}

func (h *Webhook) count(ctx context.Context, eventType, outcome string) {
	h.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", eventType),
		attribute.String("outcome", outcome),
	))
}

// ServeHTTP accepts one webhook delivery. The response status is the
// acknowledgement protocol: 2xx tells the provider the event is handled,
// anything else schedules a redelivery. Failures after the order is durable
// are still acknowledged; only pre-persistence failures return 500.
func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.count(ctx, "unknown", "bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyAndParse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		lg.Warn("Webhook signature verification failed", zap.Error(err))
		h.count(ctx, "unknown", "invalid_signature")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	lg = lg.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("session_id", event.Session.ID),
	)
	if h.maybeRedelivery(event.ID) {
		lg.Info("Event ID seen before, likely redelivery")
	}

	switch event.Type {
	case checkout.EventCheckoutCompleted:
		result, err := h.processor.HandleSessionCompleted(zctx.Base(ctx, lg), event.Session)
		if err != nil {
			lg.Error("Checkout processing failed before persistence", zap.Error(err))
			h.count(ctx, string(event.Type), "error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		outcome := "processed"
		switch {
		case result.Duplicate:
			outcome = "duplicate"
		case !result.Processed():
			outcome = "partial"
		}
		lg.Info("Checkout event handled",
			zap.String("outcome", outcome),
			zap.Bool("stock_adjusted", result.StockAdjusted),
			zap.Bool("cart_cleared", result.CartCleared),
			zap.Bool("notification_sent", result.NotificationSent),
		)
		h.count(ctx, string(event.Type), outcome)

	case checkout.EventCheckoutExpired:
		h.processor.HandleSessionExpired(zctx.Base(ctx, lg), event.Session)
		h.count(ctx, string(event.Type), "processed")

	default:
		lg.Debug("Ignoring unhandled event type")
		h.count(ctx, string(event.Type), "ignored")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}
