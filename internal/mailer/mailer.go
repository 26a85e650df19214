// Package mailer delivers transactional email, either straight to the SMTP
// relay or through the RabbitMQ outbox queue.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/todo-app/internal/config"
	"github.com/iliyamo/todo-app/internal/queue"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender talks to the relay with go-mail.
type SMTPSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := s.build(m)
	if err != nil {
		return err
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(s.cfg.TLS)),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// tlsPolicy maps SMTP_TLS onto go-mail.  STARTTLS is required unless the
// relay is explicitly configured otherwise (e.g. a local catcher).
func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "opportunistic":
		return mail.TLSOpportunistic
	case "none", "off":
		return mail.NoTLS
	default:
		return mail.TLSMandatory
	}
}

func (s *SMTPSender) build(m Message) (*mail.Msg, error) {
	if m.To == "" {
		return nil, errors.New("mail: empty recipient")
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

// QueueSender hands the message to the outbox queue; a consumer running
// Deliver performs the SMTP exchange later.
type QueueSender struct {
	pub *queue.Publisher
}

func NewQueueSender(pub *queue.Publisher) *QueueSender { return &QueueSender{pub: pub} }

func (q *QueueSender) Send(ctx context.Context, m Message) error {
	return q.pub.Publish(ctx, queue.MailMessage{To: m.To, Subject: m.Subject, Text: m.Text, HTML: m.HTML})
}

// Deliver adapts a Sender into a queue consumer handler.
func Deliver(s Sender, log *slog.Logger) queue.Handler {
	return func(ctx context.Context, m queue.MailMessage) error {
		err := s.Send(ctx, Message{To: m.To, Subject: m.Subject, Text: m.Text, HTML: m.HTML})
		if err == nil {
			log.Info("mail delivered", "to", m.To, "subject", m.Subject, "queued_at", m.QueuedAt)
		}
		return err
	}
}

// New picks the sender for cfg.Delivery.
func New(cfg config.MailConfig) (Sender, error) {
	switch cfg.Delivery {
	case "", "direct":
		return NewSMTPSender(cfg), nil
	case "queue":
		return NewQueueSender(queue.NewPublisher(cfg.AMQPURL, cfg.Queue)), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_DELIVERY %q", cfg.Delivery)
	}
}
