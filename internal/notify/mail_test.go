package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

func TestNewMailInviterDisabledWithoutHost(t *testing.T) {
	if m := NewMailInviter(model.MailConfig{}); m != nil {
		t.Fatalf("expected nil inviter, got %+v", m)
	}
}

func TestMailInviterComposesAndSends(t *testing.T) {
	m := NewMailInviter(model.MailConfig{SMTPHost: "smtp.example.com", SMTPPort: "587", Username: "bot@example.com"})
	m.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }

	var sentTo string
	var raw []byte
	m.send = func(_ model.MailConfig, from, to string, msg []byte) error {
		if from != "bot@example.com" {
			t.Errorf("from = %q", from)
		}
		sentTo, raw = to, msg
		return nil
	}

	if err := m.Invite(context.Background(), "dave@x.com", "Launch"); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if sentTo != "dave@x.com" {
		t.Errorf("to = %q", sentTo)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parsing message: %v", err)
	}
	subject, _ := mr.Header.Subject()
	if subject != "You've been invited to Launch" {
		t.Errorf("Subject = %q", subject)
	}
	to, _ := mr.Header.AddressList("To")
	if len(to) != 1 || to[0].Address != "dave@x.com" {
		t.Errorf("To = %v", to)
	}
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	body, _ := io.ReadAll(part.Body)
	if !strings.Contains(string(body), `"Launch"`) {
		t.Errorf("body = %q", body)
	}
}

func TestMailInviterArchiveFailure(t *testing.T) {
	m := NewMailInviter(model.MailConfig{SMTPHost: "smtp.example.com", IMAPHost: "imap.example.com"})
	m.send = func(model.MailConfig, string, string, []byte) error { return nil }
	m.archive = func(context.Context, model.MailConfig, []byte) error { return errors.New("mailbox full") }

	err := m.Invite(context.Background(), "dave@x.com", "Launch")
	if !apperr.Is(err, apperr.Notification) || !strings.Contains(err.Error(), "not archived") {
		t.Fatalf("expected archive failure, got %v", err)
	}
}
