package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/google/uuid"
)

const smtpDialTimeout = 10 * time.Second

type SMTPProvider struct {
	host string
	addr string
	auth smtp.Auth
	now  func() time.Time
}

func NewSMTPProvider(cfg config.Email) *SMTPProvider {
	p := &SMTPProvider{
		host: cfg.SMTPHost,
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		now:  time.Now,
	}
	if cfg.SMTPUsername != "" {
		p.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return p
}

func (p *SMTPProvider) Name() string { return ProviderSMTP }

func (p *SMTPProvider) Send(ctx context.Context, msg *domain.EmailMessage, to domain.EmailRecipient) (map[string]any, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), p.host)
	body, err := buildMIME(msg, to, messageID, p.now())
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, p.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: p.host}); err != nil {
			return nil, fmt.Errorf("failed to start tls: %w", err)
		}
	}
	if p.auth != nil {
		if err := c.Auth(p.auth); err != nil {
			return nil, fmt.Errorf("smtp authentication failed: %w", err)
		}
	}
	if err := c.Mail(msg.SenderEmail); err != nil {
		return nil, fmt.Errorf("smtp MAIL FROM rejected: %w", err)
	}
	if err := c.Rcpt(to.Email); err != nil {
		return nil, fmt.Errorf("smtp RCPT TO rejected: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return nil, fmt.Errorf("smtp DATA rejected: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	_ = c.Quit()

	return map[string]any{
		"provider":   ProviderSMTP,
		"message_id": messageID,
		"status":     string(domain.EmailSent),
		"timestamp":  p.now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// buildMIME writes a multipart/alternative message with a text part when
// one was rendered and an html part.
func buildMIME(msg *domain.EmailMessage, to domain.EmailRecipient, messageID string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	from := mail.Address{Name: msg.SenderName, Address: msg.SenderEmail}
	rcpt := mail.Address{Name: to.Name, Address: to.Email}
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", rcpt.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", msg.TextContent},
		{"text/html; charset=utf-8", msg.HTMLContent},
	}
	for _, part := range parts {
		if part.body == "" {
			continue
		}
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build message part: %w", err)
		}
		if _, err := pw.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("failed to build message part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	return buf.Bytes(), nil
}
