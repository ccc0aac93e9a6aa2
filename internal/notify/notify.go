// Package notify sends transactional customer emails. Delivery failure is a
// reported outcome, never an error that propagates: Send returns a Result and
// callers decide whether the failure matters.
package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Result reports the outcome of a send attempt. Success false with a nil Err
// means the dispatcher was not configured to deliver.
type Result struct {
	Success   bool
	MessageID string
	Err       error
}

// Dispatcher delivers messages. Implementations never panic and never return
// errors out of band; everything is carried in the Result.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) Result
}

// Nop is a Dispatcher used when no mail transport is configured. Every send
// is logged and reported as unsuccessful.
type Nop struct{}

func (Nop) Send(ctx context.Context, msg Message) Result {
	zctx.From(ctx).Warn("Mail transport not configured, dropping message")
	return Result{Success: false}
}
