package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"audiototext-backend/internal/config"
)

var smtpConnectTimeout = 5 * time.Second

// SMTPTransport delivers mail over SMTP with STARTTLS and PLAIN auth.
// A fresh connection is made per message; delivery volume here is one
// message per job, so pooling buys nothing.
type SMTPTransport struct {
	addr     string
	username string
	password string
	from     string
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	cn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer cn.Close()

	if err := cn.Mail(t.from); err != nil {
		return fmt.Errorf("smtp MAIL: %w", err)
	}
	if err := cn.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT: %w", err)
	}
	wr, err := cn.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}

	msg := buildMessage(t.from, to, subject, body)
	if _, err := wr.Write([]byte(msg)); err != nil {
		wr.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return cn.Quit()
}

func (t *SMTPTransport) connect(ctx context.Context) (*smtp.Client, error) {
	host, _, _ := net.SplitHostPort(t.addr)

	d := net.Dialer{Timeout: smtpConnectTimeout}
	c, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("connect to SMTP server: %w", err)
	}
	cn, err := smtp.NewClient(c, host)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create SMTP client: %w", err)
	}
	if err := cn.StartTLS(&tls.Config{ServerName: host}); err != nil {
		cn.Close()
		return nil, fmt.Errorf("StartTLS with SMTP server: %w", err)
	}
	if err := cn.Auth(smtp.PlainAuth("", t.username, t.password, host)); err != nil {
		cn.Close()
		return nil, fmt.Errorf("smtp auth: %w", err)
	}
	return cn, nil
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
