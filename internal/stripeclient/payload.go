package stripeclient

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/checkout"
)

// decodeSessionPayload extracts the session snapshot from a webhook event's
// data.object JSON. Only the fields the pipeline needs are read; everything
// else is skipped.
func decodeSessionPayload(raw []byte) (checkout.Session, error) {
	var s checkout.Session

	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			s.ID = v
		case "payment_intent":
			v, err := decodeStringOrObjectID(d)
			if err != nil {
				return errors.Wrap(err, "payment_intent")
			}
			s.PaymentIntentID = v
		case "customer_email":
			v, err := decodeNullableString(d)
			if err != nil {
				return errors.Wrap(err, "customer_email")
			}
			s.CustomerEmail = v
		case "currency":
			v, err := decodeNullableString(d)
			if err != nil {
				return errors.Wrap(err, "currency")
			}
			s.Currency = currencyCode(v)
		case "amount_total":
			if d.Next() == jx.Null {
				return d.Null()
			}
			cents, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "amount_total")
			}
			amount := decimal.New(cents, -2)
			s.AmountTotal = &amount
		case "metadata":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "userId" {
					return d.Skip()
				}
				v, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "metadata.userId")
				}
				s.UserID = v
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return checkout.Session{}, err
	}
	if s.ID == "" {
		return checkout.Session{}, errors.New("session payload missing id")
	}

	return s, nil
}

// decodeStringOrObjectID handles fields Stripe serializes either as a bare ID
// string or as an expanded object carrying an "id" field.
func decodeStringOrObjectID(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	case jx.Object:
		var id string
		err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "id" {
				return d.Skip()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			id = v
			return nil
		})
		return id, err
	default:
		return "", d.Skip()
	}
}

func decodeNullableString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func currencyCode(v string) string {
	return strings.ToUpper(v)
}
