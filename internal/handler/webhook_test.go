package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/checkout"
	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/order"
)

type mockVerifier struct {
	event *checkout.Event
	err   error

	payload   []byte
	signature string
}

func (m *mockVerifier) VerifyAndParse(payload []byte, signature string) (*checkout.Event, error) {
	m.payload = payload
	m.signature = signature
	if m.err != nil {
		return nil, m.err
	}
	return m.event, nil
}

type mockProcessor struct {
	result *checkout.Result
	err    error

	completed []checkout.Session
	expired   []checkout.Session
}

func (m *mockProcessor) HandleSessionCompleted(_ context.Context, s checkout.Session) (*checkout.Result, error) {
	m.completed = append(m.completed, s)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockProcessor) HandleSessionExpired(_ context.Context, s checkout.Session) {
	m.expired = append(m.expired, s)
}

func newTestWebhook(t *testing.T, v checkout.EventVerifier, p Processor) *Webhook {
	t.Helper()
	wh, err := NewWebhook(v, p, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return wh
}

func completedEvent() *checkout.Event {
	return &checkout.Event{
		ID:   "evt_1",
		Type: checkout.EventCheckoutCompleted,
		Session: checkout.Session{
			ID:              "cs_test_1",
			PaymentIntentID: "pi_test_1",
			UserID:          "user-1",
			CustomerEmail:   "jane@example.com",
		},
	}
}

func deliver(wh *Webhook, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=123,v1=abc")
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	wh := newTestWebhook(t, &mockVerifier{}, &mockProcessor{})

	rec := deliver(wh, http.MethodGet, "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestWebhook_InvalidSignature(t *testing.T) {
	verifier := &mockVerifier{err: errors.New("signature mismatch")}
	processor := &mockProcessor{}
	wh := newTestWebhook(t, verifier, processor)

	rec := deliver(wh, http.MethodPost, `{"id":"evt_1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, processor.completed)
	assert.Equal(t, "t=123,v1=abc", verifier.signature)
}

func TestWebhook_CompletedAcknowledged(t *testing.T) {
	processor := &mockProcessor{result: &checkout.Result{
		Order:            &order.Order{ID: "order_1"},
		StockAdjusted:    true,
		CartCleared:      true,
		NotificationSent: true,
	}}
	wh := newTestWebhook(t, &mockVerifier{event: completedEvent()}, processor)

	rec := deliver(wh, http.MethodPost, `{"id":"evt_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	require.Len(t, processor.completed, 1)
	assert.Equal(t, "cs_test_1", processor.completed[0].ID)
}

func TestWebhook_PrePersistFailureTriggersRedelivery(t *testing.T) {
	processor := &mockProcessor{err: errors.New("provider unavailable")}
	wh := newTestWebhook(t, &mockVerifier{event: completedEvent()}, processor)

	rec := deliver(wh, http.MethodPost, `{"id":"evt_1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook_DuplicateStillAcknowledged(t *testing.T) {
	processor := &mockProcessor{result: &checkout.Result{
		Order:     &order.Order{ID: "order_1"},
		Duplicate: true,
	}}
	wh := newTestWebhook(t, &mockVerifier{event: completedEvent()}, processor)

	first := deliver(wh, http.MethodPost, `{"id":"evt_1"}`)
	second := deliver(wh, http.MethodPost, `{"id":"evt_1"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, processor.completed, 2)
}

func TestWebhook_PartialResultAcknowledged(t *testing.T) {
	// A failure after the order is durable must not cause a redelivery.
	processor := &mockProcessor{result: &checkout.Result{
		Order:            &order.Order{ID: "order_1"},
		StockAdjusted:    false,
		CartCleared:      true,
		NotificationSent: true,
	}}
	wh := newTestWebhook(t, &mockVerifier{event: completedEvent()}, processor)

	rec := deliver(wh, http.MethodPost, `{"id":"evt_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_ExpiredRouted(t *testing.T) {
	event := &checkout.Event{
		ID:   "evt_2",
		Type: checkout.EventCheckoutExpired,
		Session: checkout.Session{
			ID:            "cs_test_2",
			CustomerEmail: "jane@example.com",
		},
	}
	processor := &mockProcessor{}
	wh := newTestWebhook(t, &mockVerifier{event: event}, processor)

	rec := deliver(wh, http.MethodPost, `{"id":"evt_2"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, processor.expired, 1)
	assert.Equal(t, "cs_test_2", processor.expired[0].ID)
	assert.Empty(t, processor.completed)
}

func TestWebhook_UnknownTypeIgnored(t *testing.T) {
	event := &checkout.Event{
		ID:      "evt_3",
		Type:    checkout.EventType("payment_intent.created"),
		Session: checkout.Session{ID: "cs_test_3"},
	}
	processor := &mockProcessor{}
	wh := newTestWebhook(t, &mockVerifier{event: event}, processor)

	rec := deliver(wh, http.MethodPost, `{"id":"evt_3"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, processor.completed)
	assert.Empty(t, processor.expired)
}
