package notify

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"
)

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP delivers messages over an authenticated SMTP connection.
type SMTP struct {
	client *mail.Client
	from   string
}

var _ Dispatcher = (*SMTP)(nil)

// NewSMTP creates an SMTP dispatcher from config.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create smtp client")
	}

	return &SMTP{client: client, from: cfg.From}, nil
}

// Send delivers one message. All failures are captured in the Result; the
// pipeline decides what a failed notification means.
func (s *SMTP) Send(ctx context.Context, msg Message) Result {
	lg := zctx.From(ctx)

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return Result{Success: false, Err: errors.Wrap(err, "set from")}
	}
	if err := m.To(msg.To); err != nil {
		return Result{Success: false, Err: errors.Wrap(err, "set recipient")}
	}
	messageID := uuid.New().String()
	m.SetMessageIDWithValue(messageID)
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		lg.Error("Failed to send email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return Result{Success: false, Err: err}
	}

	lg.Info("Email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("message_id", messageID),
	)
	return Result{Success: true, MessageID: messageID}
}
