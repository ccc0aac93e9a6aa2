// Package stripeclient adapts Stripe to the checkout package's provider
// interfaces: webhook event verification and expanded session retrieval.
package stripeclient

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/checkout"
)

// lineItemExpand pulls product details through price objects in one call, so
// no per-item follow-up requests are needed.
const lineItemExpand = "line_items.data.price.product"

var (
	_ checkout.PaymentProvider = (*Client)(nil)
	_ checkout.EventVerifier   = (*Client)(nil)
)

// Client wraps the Stripe SDK behind the checkout provider interfaces.
type Client struct {
	api           *client.API
	webhookSecret string
}

// New creates a Client with the given API key and webhook signing secret.
func New(apiKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(apiKey, nil)

	return &Client{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// VerifyAndParse authenticates a raw webhook delivery against its signature
// header and converts it into a checkout Event. Signature verification is
// delegated entirely to the Stripe SDK.
func (c *Client) VerifyAndParse(payload []byte, signature string) (*checkout.Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, errors.Wrap(err, "verify webhook signature")
	}

	session, err := decodeSessionPayload(ev.Data.Raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode event payload")
	}

	return &checkout.Event{
		ID:      ev.ID,
		Type:    checkout.EventType(ev.Type),
		Session: session,
	}, nil
}

// ExpandedSession retrieves the full checkout session with line items and
// product metadata resolved, converted to the typed domain model. Monetary
// amounts arrive from Stripe in cents and are converted to major units.
func (c *Client) ExpandedSession(ctx context.Context, sessionID string) (*checkout.ExpandedSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand(lineItemExpand)

	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieve checkout session %q", sessionID)
	}

	es := &checkout.ExpandedSession{
		ID:          s.ID,
		AmountTotal: centsToAmount(s.AmountTotal),
		Currency:    currencyCode(string(s.Currency)),
	}
	if s.PaymentIntent != nil {
		es.PaymentIntentID = s.PaymentIntent.ID
	}
	if cd := s.CustomerDetails; cd != nil {
		es.Customer = &checkout.CustomerDetails{
			Email:   cd.Email,
			Name:    cd.Name,
			Phone:   cd.Phone,
			Address: convertAddress(cd.Address),
		}
	}
	if s.LineItems != nil {
		es.LineItems = make([]checkout.LineItem, 0, len(s.LineItems.Data))
		for _, li := range s.LineItems.Data {
			converted, ok := convertLineItem(li)
			if !ok {
				continue
			}
			es.LineItems = append(es.LineItems, converted)
		}
	}

	return es, nil
}

// convertLineItem maps one Stripe line item. Items without a price or an
// expanded product cannot be priced and are dropped here; the pipeline logs
// skips at the next stage for items missing catalog identity.
func convertLineItem(li *stripe.LineItem) (checkout.LineItem, bool) {
	if li == nil || li.Price == nil || li.Price.Product == nil {
		return checkout.LineItem{}, false
	}

	price := li.Price
	product := price.Product

	return checkout.LineItem{
		ID:          li.ID,
		Description: li.Description,
		Quantity:    li.Quantity,
		Price: checkout.PriceInfo{
			UnitAmount: centsToAmount(price.UnitAmount),
			Currency:   currencyCode(string(price.Currency)),
			TaxRate:    checkout.ParseTaxRate(price.Metadata),
		},
		Product: checkout.ProductInfo{
			ProviderID: product.ID,
			Name:       product.Name,
			Images:     product.Images,
			Meta:       checkout.ParseProductMetadata(product.Metadata),
		},
	}, true
}

func convertAddress(a *stripe.Address) *checkout.CustomerAddress {
	if a == nil {
		return nil
	}
	return &checkout.CustomerAddress{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func centsToAmount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
