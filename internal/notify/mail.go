package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

// MailInviter emails invitees who have no account, and keeps a copy of
// each invitation in the IMAP Sent folder when IMAP is configured.
type MailInviter struct {
	cfg model.MailConfig
	now func() time.Time

	send    func(cfg model.MailConfig, from, to string, msg []byte) error
	archive func(ctx context.Context, cfg model.MailConfig, msg []byte) error
}

// NewMailInviter returns nil when cfg has no SMTP host, which disables
// invitations.
func NewMailInviter(cfg model.MailConfig) *MailInviter {
	if cfg.SMTPHost == "" {
		return nil
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.SentFolder == "" {
		cfg.SentFolder = "Sent"
	}
	m := &MailInviter{cfg: cfg, now: time.Now, send: sendSMTP}
	if cfg.IMAPHost != "" {
		m.archive = appendToSent
	}
	return m
}

// Invite sends one invitation.
func (m *MailInviter) Invite(ctx context.Context, to model.Email, projectName string) error {
	const op = "sending invitation"

	msg, err := m.compose(to, projectName)
	if err != nil {
		return apperr.Wrap(apperr.Notification, op, err)
	}

	if err := m.send(m.cfg, m.cfg.From, string(to), msg); err != nil {
		return apperr.Wrap(apperr.Notification, op, err)
	}

	if m.archive != nil {
		if err := m.archive(ctx, m.cfg, msg); err != nil {
			return apperr.Wrap(apperr.Notification, op,
				fmt.Errorf("invitation sent but not archived: %w", err))
		}
	}
	return nil
}

// compose builds the RFC 5322 invitation message.
func (m *MailInviter) compose(to model.Email, projectName string) ([]byte, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{{Name: "teamtrack", Address: m.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: string(to)}})
	h.SetSubject(fmt.Sprintf("You've been invited to %s", projectName))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	body := fmt.Sprintf(
		"You have been added to the project %q.\r\n\r\n"+
			"Sign up with this email address (%s) to see it.\r\n",
		projectName, to,
	)
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message: %w", err)
	}
	return buf.Bytes(), nil
}

// sendSMTP delivers msg over implicit TLS or STARTTLS depending on cfg.
func sendSMTP(cfg model.MailConfig, from, to string, msg []byte) error {
	addr := net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort)
	tlsConfig := &tls.Config{ServerName: cfg.SMTPHost}

	var conn net.Conn
	var err error
	if cfg.TLS {
		conn, err = tls.DialWithDialer(&net.Dialer{Timeout: 30 * time.Second}, "tcp", addr, tlsConfig)
	} else {
		conn, err = net.DialTimeout("tcp", addr, 30*time.Second)
	}
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if !cfg.TLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}

// appendToSent stores msg in the configured Sent folder, flagged as seen.
func appendToSent(_ context.Context, cfg model.MailConfig, msg []byte) error {
	addr := net.JoinHostPort(cfg.IMAPHost, cfg.IMAPPort)

	var client *imapclient.Client
	var err error
	if cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	defer func() { _ = client.Logout().Wait() }()

	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		return fmt.Errorf("IMAP login for %s: %w", cfg.Username, err)
	}

	appendCmd := client.Append(cfg.SentFolder, int64(len(msg)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagSeen},
		Time:  time.Now(),
	})
	if _, err := appendCmd.Write(msg); err != nil {
		return fmt.Errorf("writing to %s: %w", cfg.SentFolder, err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", cfg.SentFolder, err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", cfg.SentFolder, err)
	}
	return nil
}
