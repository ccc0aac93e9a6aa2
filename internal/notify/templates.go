package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/order"
)

// Message builders for the three transactional emails. The markup is kept
// deliberately plain; layout polish lives with the storefront team.

// OrderConfirmation builds the post-purchase confirmation for an order.
func OrderConfirmation(o *order.Order) Message {
	var rows strings.Builder
	for _, it := range o.Items {
		size := ""
		if it.Size != "" {
			size = " (" + html.EscapeString(it.Size) + ")"
		}
		fmt.Fprintf(&rows,
			`<tr><td>%s%s</td><td>x%d</td><td align="right">%s</td></tr>`,
			html.EscapeString(it.Title), size, it.Quantity,
			FormatCurrency(it.Total, o.Totals.Currency))
	}

	var address string
	if o.CustomerInfo.Address != nil {
		address = fmt.Sprintf(`<p>Shipping to:<br/>%s</p>`, FormatAddress(*o.CustomerInfo.Address))
	}

	body := fmt.Sprintf(`<html><body>
<h1>Thank you for your order!</h1>
<p>Order <strong>%s</strong> is confirmed and being prepared.</p>
<table width="100%%">%s</table>
<p>Subtotal: %s<br/>Tax: %s<br/><strong>Total: %s</strong></p>
%s
<p>We will email you tracking information once your order ships.</p>
<p>TextileCom</p>
</body></html>`,
		html.EscapeString(o.OrderNumber),
		rows.String(),
		FormatCurrency(o.Totals.Subtotal, o.Totals.Currency),
		FormatCurrency(o.Totals.Tax, o.Totals.Currency),
		FormatCurrency(o.Totals.Total, o.Totals.Currency),
		address,
	)

	return Message{
		To:      o.CustomerInfo.Email,
		Subject: fmt.Sprintf("Order Confirmation - Order #%s", o.OrderNumber),
		HTML:    body,
	}
}

// AbandonedCart builds the nudge sent when a checkout session expires without
// payment. amountTotal may be nil when the session carried no total.
func AbandonedCart(email, cartURL string, amountTotal *decimal.Decimal, currency string) Message {
	amountLine := ""
	if amountTotal != nil {
		amountLine = fmt.Sprintf("<p>Your cart total was %s.</p>", FormatCurrency(*amountTotal, currency))
	}

	body := fmt.Sprintf(`<html><body>
<h1>You left items in your cart</h1>
<p>Your checkout session expired before payment completed.</p>
%s
<p><a href="%s">Return to your cart</a> to finish your purchase.</p>
<p>TextileCom</p>
</body></html>`, amountLine, html.EscapeString(cartURL))

	return Message{
		To:      email,
		Subject: "Complete Your Purchase",
		HTML:    body,
	}
}

// ProcessingFailed builds the notice sent when a paid checkout could not be
// turned into an order. The session reference lets support trace the payment.
func ProcessingFailed(email, sessionID string) Message {
	body := fmt.Sprintf(`<html><body>
<h1>We hit a snag with your order</h1>
<p>Your payment went through, but something went wrong while we were
preparing your order. Our team has been notified and will sort it out.</p>
<p>Reference: %s</p>
<p>If you have questions, reply to this email and include the reference above.</p>
<p>TextileCom</p>
</body></html>`, html.EscapeString(sessionID))

	return Message{
		To:      email,
		Subject: "Order Processing Issue",
		HTML:    body,
	}
}
