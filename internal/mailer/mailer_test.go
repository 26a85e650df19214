package mailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/todo-app/internal/config"
	"github.com/iliyamo/todo-app/internal/queue"
)

func TestPasswordResetMessage(t *testing.T) {
	m, err := PasswordReset("a@x.io", "Alice", "http://app.test/", "tok 1")
	if err != nil {
		t.Fatalf("PasswordReset() unexpected error: %v", err)
	}
	link := "http://app.test/reset-password?token=tok+1"
	if !strings.Contains(m.Text, link) {
		t.Errorf("text body missing link %q:\n%s", link, m.Text)
	}
	if !strings.Contains(m.HTML, "reset-password?token=tok&#43;1") && !strings.Contains(m.HTML, "reset-password?token=tok+1") {
		t.Errorf("html body missing link:\n%s", m.HTML)
	}
	if m.Subject != "Password Reset Request" || m.To != "a@x.io" {
		t.Errorf("PasswordReset() = %+v", m)
	}
}

func TestBuildRejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{From: "noreply@x.io"})
	if _, err := s.build(Message{Subject: "x"}); err == nil {
		t.Error("build() without recipient: expected error")
	}
	if _, err := s.build(Message{To: "a@x.io", Subject: "x", Text: "y"}); err != nil {
		t.Errorf("build() unexpected error: %v", err)
	}
}

func TestNewSelectsDelivery(t *testing.T) {
	if s, err := New(config.MailConfig{Delivery: "direct"}); err != nil {
		t.Fatalf("New(direct) error: %v", err)
	} else if _, ok := s.(*SMTPSender); !ok {
		t.Errorf("New(direct) = %T", s)
	}
	if s, err := New(config.MailConfig{Delivery: "queue", AMQPURL: "amqp://localhost", Queue: "q"}); err != nil {
		t.Fatalf("New(queue) error: %v", err)
	} else if _, ok := s.(*QueueSender); !ok {
		t.Errorf("New(queue) = %T", s)
	}
	if _, err := New(config.MailConfig{Delivery: "pigeon"}); err == nil {
		t.Error("New(pigeon): expected error")
	}
}

type recordSender struct {
	got []Message
	err error
}

func (r *recordSender) Send(_ context.Context, m Message) error {
	r.got = append(r.got, m)
	return r.err
}

func TestDeliver(t *testing.T) {
	rec := &recordSender{}
	h := Deliver(rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := h(context.Background(), queue.MailMessage{To: "a@x.io", Subject: "s", Text: "t"}); err != nil {
		t.Fatalf("Deliver() unexpected error: %v", err)
	}
	if len(rec.got) != 1 || rec.got[0].To != "a@x.io" {
		t.Errorf("sender got %+v", rec.got)
	}

	rec.err = errors.New("down")
	if err := h(context.Background(), queue.MailMessage{To: "a@x.io"}); err == nil {
		t.Error("Deliver() should surface the sender error")
	}
}

func TestTLSPolicyDefaultsToMandatory(t *testing.T) {
	cases := map[string]mail.TLSPolicy{
		"":              mail.TLSMandatory,
		"mandatory":     mail.TLSMandatory,
		"Opportunistic": mail.TLSOpportunistic,
		"none":          mail.NoTLS,
	}
	for in, want := range cases {
		if got := tlsPolicy(in); got != want {
			t.Errorf("tlsPolicy(%q) = %v, want %v", in, got, want)
		}
	}
}
