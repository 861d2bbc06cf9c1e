package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // also used as the sender address
	Password string
	BankName string
	Timeout  time.Duration
}

// SMTP sends a welcome email over an implicit TLS connection.
type SMTP struct {
	cfg SMTPConfig
}

// NewSMTP returns SMTP notifier.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &SMTP{cfg: cfg}
}

// Configured reports whether credentials are present.
func (s *SMTP) Configured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != ""
}

// AccountCreated emails the account number to its owner.
func (s *SMTP) AccountCreated(ctx context.Context, email, name string, id int32) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	msg := WelcomeMessage(s.cfg.BankName, s.cfg.Username, email, name, id)

	if err := s.send(ctx, email, msg); err != nil {
		return fmt.Errorf("sending welcome email: %w", err)
	}

	zerolog.Ctx(ctx).Info().Int32("account_id", id).Msg("welcome email sent")

	return nil
}

func (s *SMTP) send(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.cfg.Timeout},
		Config:    &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		return err
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
		return err
	}

	if err := c.Mail(s.cfg.Username); err != nil {
		return err
	}

	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}

	if _, err := w.Write(msg); err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	return c.Quit()
}

// WelcomeMessage builds the RFC 5322 message sent to a new account owner.
func WelcomeMessage(bankName, from, to, name string, id int32) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: Welcome to %s\r\n", bankName)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	fmt.Fprintf(&sb, "Hello %s,\r\n\r\n", name)
	fmt.Fprintf(&sb, "Your %s account has been created successfully.\r\n\r\n", bankName)
	fmt.Fprintf(&sb, "Your Account Number: %d\r\n\r\n", id)
	sb.WriteString("Please keep this number safe. Never share your PIN.\r\n\r\n")
	fmt.Fprintf(&sb, "- %s\r\n", bankName)

	return []byte(sb.String())
}
