package service

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/govdesk/internal/config"
)

// Mailer delivers a single message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer selects an implementation from configuration: SMTP when a host
// is configured, otherwise a log-only mailer for development.
func NewMailer(cfg config.NotificationConfig, logger *zap.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return &logMailer{logger: logger, from: cfg.EmailFrom}
	}
	timeout := time.Duration(cfg.SendTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &smtpMailer{
		addr:     net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		host:     cfg.SMTPHost,
		from:     cfg.EmailFrom,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		timeout:  timeout,
	}
}

type logMailer struct {
	logger *zap.Logger
	from   string
}

func (m *logMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email (log-only mailer)",
		zap.String("from", m.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

type smtpMailer struct {
	addr     string
	host     string
	from     string
	user     string
	password string
	timeout  time.Duration
}

// Send dials with a bounded timeout; a stuck SMTP server fails the delivery
// rather than hanging the caller.
func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	deadline := m.timeout
	if ctxDeadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(ctxDeadline); remaining < deadline {
			deadline = remaining
		}
	}

	conn, err := net.DialTimeout("tcp", m.addr, deadline)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	_ = conn.SetDeadline(time.Now().Add(deadline))

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.user != "" {
		if err := client.Auth(smtp.PlainAuth("", m.user, m.password, m.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body)
	if _, err := wc.Write([]byte(msg)); err != nil {
		wc.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}
