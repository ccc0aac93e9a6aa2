package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Fatal pre-persistence errors. When the pipeline returns one of these the
// originating webhook event must not be acknowledged, so the provider
// redelivers it.
var (
	// ErrNoLineItems means the expanded session carried no line items at all.
	ErrNoLineItems = errors.New("checkout session has no line items")
	// ErrNoUsableItems means every line item was skipped during item building,
	// so no order could be assembled.
	ErrNoUsableItems = errors.New("no valid order items could be built from line items")
)

// ExternalServiceError wraps a failure of an external collaborator (payment
// provider, datastore) encountered before the order was persisted.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func externalErr(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}
