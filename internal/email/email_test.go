package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDefaultCatalog_CoversEveryTemplate(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	for _, name := range []domain.EmailTemplate{
		domain.TemplateWelcome,
		domain.TemplateApplicationReminder,
		domain.TemplateDocumentRequest,
		domain.TemplateStatusUpdate,
		domain.TemplateFollowup,
		domain.TemplateInterviewInvitation,
		domain.TemplateAdmissionDecision,
	} {
		tmpl, ok := c.Get(name)
		assert.True(t, ok, name)
		assert.NotEmpty(t, tmpl.Subject, name)
		assert.NotEmpty(t, tmpl.HTML, name)
	}
	assert.Len(t, c.Names(), 7)
}

func TestParseCatalog_RejectsUnknownTemplate(t *testing.T) {
	_, err := ParseCatalog([]byte("newsletter:\n  subject: hi\n  html: <p>hi</p>\n"))
	assert.Error(t, err)
}

func TestParseCatalog_RequiresBody(t *testing.T) {
	_, err := ParseCatalog([]byte("welcome:\n  subject: hi\n"))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	data := map[string]any{
		"student":       map[string]any{"name": "Ada Lovelace", "application_status": "Applying"},
		"document_type": "Transcript",
		"batch_info":    map[string]any{"batch_number": 2},
	}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"dotted key", "Welcome, {{ student.name }}!", "Welcome, Ada Lovelace!"},
		{"no spaces", "{{document_type}}", "Transcript"},
		{"number", "batch {{ batch_info.batch_number }}", "batch 2"},
		{"missing key renders empty", "[{{ student.grade }}]", "[]"},
		{"missing parent renders empty", "[{{ sender.name }}]", "[]"},
		{"unterminated tag", "Hello {{ student.name", "Hello {{ student.name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, data))
		})
	}
}

func TestRenderHTML_EscapesValues(t *testing.T) {
	out := RenderHTML("<p>{{ name }}</p>", map[string]any{"name": "<script>x</script>"})
	assert.Equal(t, "<p>&lt;script&gt;x&lt;/script&gt;</p>", out)
}

func TestNewProvider_FallsBackToMock(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Email
		want string
	}{
		{"default", config.Email{}, ProviderMock},
		{"mock", config.Email{Provider: "mock"}, ProviderMock},
		{"smtp without host", config.Email{Provider: "smtp"}, ProviderMock},
		{"smtp", config.Email{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25}, ProviderSMTP},
		{"unsupported", config.Email{Provider: "sendgrid"}, ProviderMock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewProvider(tt.cfg).Name())
		})
	}
}

func TestMockProvider_Send(t *testing.T) {
	p := NewMockProvider()
	resp, err := p.Send(context.Background(), &domain.EmailMessage{Subject: "hi"}, domain.EmailRecipient{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, resp["provider"])
	assert.True(t, strings.HasPrefix(resp["message_id"].(string), "mock_"))
}

func TestMockProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockProvider().Send(ctx, &domain.EmailMessage{}, domain.EmailRecipient{Email: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildMIME(t *testing.T) {
	msg := &domain.EmailMessage{
		Subject:     "Status update",
		HTMLContent: "<p>hi</p>",
		TextContent: "hi",
		SenderEmail: "noreply@example.com",
		SenderName:  "Admissions",
	}
	body, err := buildMIME(msg, domain.EmailRecipient{Email: "ada@example.com", Name: "Ada"}, "<id@example.com>", fixedTime)
	require.NoError(t, err)

	s := string(body)
	assert.Contains(t, s, "To: \"Ada\" <ada@example.com>")
	assert.Contains(t, s, "Subject: Status update")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain; charset=utf-8")
	assert.Contains(t, s, "<p>hi</p>")
}
