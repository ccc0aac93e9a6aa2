// Package checkout turns completed payment-provider checkout sessions into
// durable orders, and handles expired sessions.
//
// The completion pipeline runs strictly in sequence: idempotency check,
// session expansion, item building, totals, reconciliation, identity
// allocation, persistence, then best-effort stock decrement, cart clearing,
// and confirmation email. Failures before persistence abort the operation and
// must keep the webhook unacknowledged; failures after persistence are
// isolated per step and never roll the order back.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/cart"
	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/inventory"
	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/order"
	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/pricing"
	"github.com/batibatii/textilecom-webhook-receiver/internal/notify"
)

// reconcileTolerance is the maximum accepted gap between the computed total
// and the provider's collected amount: one cent.
var reconcileTolerance = decimal.New(1, -2)

// Result reports the outcome of a completion run. When Duplicate is true the
// order was created by an earlier delivery and nothing else ran. The step
// flags record the best-effort post-persistence work; Processed is true only
// when every step succeeded.
type Result struct {
	Order            *order.Order
	Duplicate        bool
	StockAdjusted    bool
	CartCleared      bool
	NotificationSent bool
}

// Processed reports whether the pipeline completed without degradation.
func (r *Result) Processed() bool {
	return r.Duplicate || (r.StockAdjusted && r.CartCleared && r.NotificationSent)
}

// Processor is the checkout completion orchestrator. All collaborators are
// injected as interfaces.
type Processor struct {
	provider PaymentProvider
	orders   order.Repository
	counter  order.Counter
	stock    inventory.Adjuster
	carts    cart.Store
	notifier notify.Dispatcher
	cartURL  string
}

// NewProcessor creates a Processor with the required collaborators. cartURL
// is where abandoned-cart emails point customers back to.
func NewProcessor(
	provider PaymentProvider,
	orders order.Repository,
	counter order.Counter,
	stock inventory.Adjuster,
	carts cart.Store,
	notifier notify.Dispatcher,
	cartURL string,
) *Processor {
	return &Processor{
		provider: provider,
		orders:   orders,
		counter:  counter,
		stock:    stock,
		carts:    carts,
		notifier: notifier,
		cartURL:  cartURL,
	}
}

// HandleSessionCompleted runs the completion pipeline for one session.
//
// A non-nil error means no order was persisted for this delivery and the
// event must not be acknowledged. A nil error with a degraded Result means
// the order is durable but one of the follow-up steps failed; the caller
// acknowledges and the degradation is visible only through logs and metrics.
func (p *Processor) HandleSessionCompleted(ctx context.Context, s Session) (*Result, error) {
	lg := zctx.From(ctx).With(zap.String("session_id", s.ID))

	// Idempotency check. Redeliveries of an already-processed session are
	// no-op successes; this is the single most important property here.
	existing, err := p.orders.GetBySessionID(ctx, s.ID)
	switch {
	case err == nil:
		lg.Info("Order already exists for session, skipping",
			zap.String("order_id", existing.ID))
		return &Result{Order: existing, Duplicate: true}, nil
	case !errors.Is(err, order.ErrNotFound):
		return nil, externalErr("order store", err)
	}

	es, err := p.provider.ExpandedSession(ctx, s.ID)
	if err != nil {
		return nil, p.failed(ctx, s, nil, externalErr("payment provider", err))
	}
	if len(es.LineItems) == 0 {
		return nil, p.failed(ctx, s, es, ErrNoLineItems)
	}

	// Size/variant data comes from the cart side-channel; losing it degrades
	// items to the default size, it never fails the pipeline.
	variants, err := p.carts.Variants(ctx, s.ID)
	if err != nil {
		lg.Warn("Cart variant lookup failed, defaulting sizes", zap.Error(err))
		variants = nil
	}

	items := buildItems(ctx, es, variants)
	if len(items) == 0 {
		return nil, p.failed(ctx, s, es, ErrNoUsableItems)
	}

	itemTotals := make([]pricing.ItemTotals, len(items))
	for i, it := range items {
		itemTotals[i] = pricing.ItemTotals{Subtotal: it.Subtotal, Tax: it.Tax, Total: it.Total}
	}
	// Single-currency-per-order: the first item's currency wins.
	computed := pricing.ComputeOrder(itemTotals, items[0].Price.Currency)

	totals := order.Totals{
		Subtotal: computed.Subtotal,
		Tax:      computed.Tax,
		Total:    computed.Total,
		Currency: computed.Currency,
	}

	// Reconcile against the amount the provider actually collected. Beyond a
	// one-cent tolerance the collected amount is the source of truth.
	if diff := es.AmountTotal.Sub(computed.Total); diff.Abs().GreaterThan(reconcileTolerance) {
		lg.Warn("Computed total differs from collected amount, using collected amount",
			zap.String("computed", computed.Total.String()),
			zap.String("collected", es.AmountTotal.String()),
			zap.String("difference", diff.String()),
		)
		totals.Total = es.AmountTotal
	}

	customer := assembleCustomerInfo(s, es)

	counter, err := p.counter.Next(ctx)
	if err != nil {
		return nil, p.failed(ctx, s, es, externalErr("order counter", err))
	}
	number, err := order.Number(counter)
	if err != nil {
		return nil, p.failed(ctx, s, es, err)
	}

	now := time.Now().UTC()
	o := &order.Order{
		ID:                 order.NewID(),
		UserID:             s.UserID,
		OrderNumber:        number,
		SessionID:          s.ID,
		PaymentID:          s.PaymentIntentID,
		Status:             order.StatusProcessing,
		Items:              items,
		Totals:             totals,
		CustomerInfo:       customer,
		CreatedAt:          now,
		UpdatedAt:          now,
		PaymentCompletedAt: &now,
	}

	if err := p.orders.Create(ctx, o); err != nil {
		if errors.Is(err, order.ErrSessionExists) {
			// Lost a redelivery race after our idempotency check: the winning
			// delivery's order is durable, so this one is a no-op success.
			lg.Info("Concurrent delivery already created the order")
			return &Result{Duplicate: true}, nil
		}
		return nil, p.failed(ctx, s, es, externalErr("order store", err))
	}

	lg = lg.With(zap.String("order_id", o.ID), zap.String("order_number", o.OrderNumber))
	lg.Info("Order created",
		zap.String("user_id", o.UserID),
		zap.String("total", o.Totals.Total.String()),
		zap.String("currency", o.Totals.Currency),
		zap.Int("item_count", len(o.Items)),
	)

	// From here on the order is durable. Each remaining step fails on its
	// own, is logged with full context, and never unwinds the pipeline.
	res := &Result{Order: o}

	decrements := make([]inventory.Decrement, len(items))
	for i, it := range items {
		decrements[i] = inventory.Decrement{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if err := p.stock.DecrementStock(ctx, decrements); err != nil {
		// Known inconsistency window: the order exists but stock was not
		// adjusted. Surface loudly for operators, keep going.
		lg.Error("Stock decrement failed after order creation", zap.Error(err))
	} else {
		res.StockAdjusted = true
	}

	if err := p.carts.Clear(ctx, s.UserID, s.ID); err != nil {
		lg.Error("Cart clear failed after order creation", zap.Error(err))
	} else {
		res.CartCleared = true
	}

	if customer.Email == "" {
		lg.Warn("No customer email on order, skipping confirmation")
	} else if sent := p.notifier.Send(ctx, notify.OrderConfirmation(o)); !sent.Success {
		lg.Warn("Order confirmation email failed", zap.Error(sent.Err))
	} else {
		res.NotificationSent = true
	}

	return res, nil
}

// failed logs a fatal pre-persistence error and fires a best-effort
// processing-failed notice when a customer email is known. The notice's own
// failure is swallowed. Returns err unchanged.
func (p *Processor) failed(ctx context.Context, s Session, es *ExpandedSession, err error) error {
	lg := zctx.From(ctx)
	lg.Error("Checkout completion failed before order creation",
		zap.String("session_id", s.ID),
		zap.Error(err),
	)

	if email := bestEmail(s, es); email != "" {
		if sent := p.notifier.Send(ctx, notify.ProcessingFailed(email, s.ID)); !sent.Success {
			lg.Warn("Processing-failed notice could not be sent", zap.Error(sent.Err))
		}
	}
	return err
}

// buildItems converts provider line items into order items. Items without a
// resolvable catalog product are skipped with a warning; the caller fails the
// pipeline when nothing survives.
func buildItems(ctx context.Context, es *ExpandedSession, variants map[string]string) []order.Item {
	lg := zctx.From(ctx)

	items := make([]order.Item, 0, len(es.LineItems))
	for _, li := range es.LineItems {
		meta := li.Product.Meta
		if meta.ProductID == "" {
			lg.Warn("Skipping line item without catalog product id",
				zap.String("line_item_id", li.ID),
				zap.String("provider_product_id", li.Product.ProviderID),
			)
			continue
		}

		quantity := li.Quantity
		if quantity < 1 {
			quantity = 1
		}

		size := variants[meta.ProductID]
		if size == "" {
			size = li.Description
		}
		if size == "" {
			size = DefaultSize
		}

		var discount *order.Discount
		discountRate := decimal.Zero
		if meta.DiscountRate.IsPositive() {
			discountRate = meta.DiscountRate
			discount = &order.Discount{Rate: meta.DiscountRate}
		}

		totals := pricing.ComputeItem(li.Price.UnitAmount, quantity, discountRate, li.Price.TaxRate)

		image := ""
		if len(li.Product.Images) > 0 {
			image = li.Product.Images[0]
		}

		items = append(items, order.Item{
			ProductID: meta.ProductID,
			Title:     li.Product.Name,
			Brand:     meta.Brand,
			Price:     order.Money{Amount: li.Price.UnitAmount, Currency: li.Price.Currency},
			Discount:  discount,
			Size:      size,
			Quantity:  quantity,
			Image:     image,
			TaxRate:   li.Price.TaxRate,
			Subtotal:  totals.Subtotal,
			Tax:       totals.Tax,
			Total:     totals.Total,
		})
	}
	return items
}

// assembleCustomerInfo builds the customer snapshot. Optional fields are set
// only when non-empty, and the address is included only when all required
// subfields are present; a partial address is dropped entirely.
func assembleCustomerInfo(s Session, es *ExpandedSession) order.CustomerInfo {
	info := order.CustomerInfo{Email: bestEmail(s, es)}

	if es.Customer == nil {
		return info
	}

	info.Name = es.Customer.Name
	info.Phone = es.Customer.Phone

	if a := es.Customer.Address; a != nil &&
		a.Line1 != "" && a.City != "" && a.PostalCode != "" && a.Country != "" {
		info.Address = &order.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}

	return info
}

// bestEmail prefers the webhook payload's customer email, then the expanded
// session's customer details.
func bestEmail(s Session, es *ExpandedSession) string {
	if s.CustomerEmail != "" {
		return s.CustomerEmail
	}
	if es != nil && es.Customer != nil {
		return es.Customer.Email
	}
	return ""
}
