// Package smtp delivers notifications directly to a mail server.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Configured reports whether there is enough to attempt a send.
func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

type Transport struct {
	cfg Config
	now func() time.Time
}

var _ notify.Transport = (*Transport)(nil)

func New(cfg Config) *Transport {
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &Transport{cfg: cfg, now: time.Now}
}

// Send delivers msg, honoring the context deadline for the whole SMTP
// conversation. It returns notify.ErrTransportUnconfigured when no server
// or recipient is set.
func (t *Transport) Send(ctx context.Context, msg notify.Message) error {
	if !t.cfg.Configured() || strings.TrimSpace(msg.To) == "" {
		return notify.ErrTransportUnconfigured
	}

	addr := net.JoinHostPort(t.cfg.Host, t.cfg.Port)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(t.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(t.cfg.From, msg, t.now())); err != nil {
		w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish body: %w", err)
	}
	if err := client.Quit(); err != nil {
		slog.WarnContext(ctx, "SMTP quit failed after delivery",
			log.FieldComponent, log.ComponentSMTP,
			log.FieldError, err)
	}

	slog.InfoContext(ctx, "Email delivered",
		log.FieldComponent, log.ComponentSMTP,
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}

// buildMessage renders an RFC 5322 plain text message.
func buildMessage(from string, msg notify.Message, now time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, stripCRLF(v))
	}
	header("From", from)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

func stripCRLF(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
