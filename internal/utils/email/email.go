// File: internal/utils/email/email.go
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/config"
)

// Mailer sends notification email. The magic-link strategy is the only
// caller in this service.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Client sends mail over SMTP with implicit TLS.
type Client struct {
	config *config.EmailConfig
	logger *zap.Logger
}

// NewClient creates a new SMTP mail client.
func NewClient(config *config.EmailConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
	}
}

// SendMail delivers a multipart/alternative message to a single recipient.
func (c *Client) SendMail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	const boundary = "mfa-service-alt"

	var message bytes.Buffer
	fmt.Fprintf(&message, "From: %s\r\n", c.config.From)
	fmt.Fprintf(&message, "To: %s\r\n", to)
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	fmt.Fprintf(&message, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&message, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	message.WriteString("\r\n")
	fmt.Fprintf(&message, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	fmt.Fprintf(&message, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&message, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	tlsConfig := &tls.Config{ServerName: c.config.Host}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, c.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(c.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write(message.Bytes()); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message body: %w", err)
	}

	c.logger.Debug("Challenge email sent", zap.String("to", to), zap.String("subject", subject))
	return client.Quit()
}

var _ Mailer = (*Client)(nil)
