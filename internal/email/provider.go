package email

import (
	"context"
	"fmt"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks . Provider

// Provider delivers one rendered message to one recipient and returns the
// provider's response, which is stored on the email log.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg *domain.EmailMessage, to domain.EmailRecipient) (map[string]any, error)
}

const (
	ProviderMock = "mock"
	ProviderSMTP = "smtp"
)

// NewProvider picks the configured provider. Anything it cannot build falls
// back to the mock provider.
func NewProvider(cfg config.Email) Provider {
	switch cfg.Provider {
	case ProviderMock, "":
		return NewMockProvider()
	case ProviderSMTP:
		if cfg.SMTPHost == "" {
			log.Warn("SMTP_HOST is not set, falling back to mock email provider")
			return NewMockProvider()
		}
		return NewSMTPProvider(cfg)
	default:
		log.WithField("provider", cfg.Provider).Warn("Unsupported email provider, falling back to mock")
		return NewMockProvider()
	}
}

// MockProvider logs the message and always succeeds.
type MockProvider struct {
	now func() time.Time
}

func NewMockProvider() *MockProvider {
	return &MockProvider{now: time.Now}
}

func (p *MockProvider) Name() string { return ProviderMock }

func (p *MockProvider) Send(ctx context.Context, msg *domain.EmailMessage, to domain.EmailRecipient) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"to":       to.Email,
		"subject":  msg.Subject,
		"template": msg.Template,
		"provider": ProviderMock,
	}).Info("Mock email sent")

	return map[string]any{
		"provider":   ProviderMock,
		"message_id": fmt.Sprintf("mock_%s", uuid.NewString()),
		"status":     string(domain.EmailSent),
		"timestamp":  p.now().UTC().Format(time.RFC3339Nano),
	}, nil
}
