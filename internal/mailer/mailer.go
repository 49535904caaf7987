// Package mailer delivers transactional email such as password reset links.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/studybud/backend/internal/config"
	"github.com/studybud/backend/internal/logging"
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender when a host is configured and a LogSender otherwise.
func New(cfg config.MailConfig) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return LogSender{}
	}
	return &SMTPSender{cfg: cfg, dialTimeout: 10 * time.Second}
}

// LogSender writes messages to the request logger instead of delivering them. It is
// used in development when no SMTP relay is configured.
type LogSender struct{}

// Send logs msg.
func (LogSender) Send(ctx context.Context, msg Message) error {
	logging.FromContext(ctx).Info("email not delivered, smtp disabled",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// SMTPSender delivers mail through an SMTP relay, upgrading to TLS when offered.
type SMTPSender struct {
	cfg         config.MailConfig
	dialTimeout time.Duration
}

// Send delivers msg. The dial honours ctx; the SMTP exchange itself is bounded by
// the connection deadline.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(time.Minute))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("start tls: %w", err)
		}
	}

	if s.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(s.cfg.From, msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	return client.Quit()
}

func buildMessage(from string, msg Message) []byte {
	headers := map[string]string{
		"From":         from,
		"To":           msg.To,
		"Subject":      msg.Subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// PasswordReset composes the reset email for a user.
func PasswordReset(to, name, link string) Message {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return Message{
		To:      to,
		Subject: "Reset your StudyBud password",
		Body:    fmt.Sprintf("Hi %s,\n\nWe received a request to reset your password. Use the link below within the next hour:\n\n%s\n\nIf you did not ask for this, you can ignore this email.\n", name, link),
	}
}
