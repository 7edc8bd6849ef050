package notifications

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/config"
	"github.com/MimoJanra/AuditPulse/internal/models"
)

func testSnapshot() *models.AuditSnapshot {
	return &models.AuditSnapshot{
		ID:                 9,
		TargetURL:          "https://example.org",
		CreatedAt:          time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
		PerformanceScore:   77,
		SecurityScore:      88,
		AccessibilityScore: 66,
	}
}

func TestReportMessage(t *testing.T) {
	msg := ReportMessage("ops@example.org", testSnapshot(), 37, "AuditPulse_Report_9_example.org.pdf", "application/pdf", []byte("%PDF-1.3"))

	assert.Equal(t, "ops@example.org", msg.To)
	assert.Equal(t, "AuditPulse Daily Report: https://example.org", msg.Subject)
	assert.Contains(t, msg.Body, "37 metrics")
	assert.Contains(t, msg.Body, "Performance Score:   77%")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
}

func TestComposeBuildsMIMEMessage(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Server: "smtp.example.org", Port: 587, DefaultSender: "reports@example.org"}, zap.NewNop())
	msg := ReportMessage("ops@example.org", testSnapshot(), 37, "AuditPulse_Report_9_example.org.pdf", "application/pdf", []byte("%PDF-1.3 test"))

	m, err := s.compose(msg)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "Subject: AuditPulse Daily Report: https://example.org")
	assert.Contains(t, raw, "<ops@example.org>")
	assert.Contains(t, raw, "Content-Type: application/pdf")
	assert.Contains(t, raw, `filename="AuditPulse_Report_9_example.org.pdf"`)
}

func TestComposeRejectsBadRecipient(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Server: "smtp.example.org", Port: 587, DefaultSender: "reports@example.org"}, zap.NewNop())
	_, err := s.compose(Message{To: "not an address", Subject: "x", Body: "y"})
	require.Error(t, err)
}

func TestNewFallsBackToLogSender(t *testing.T) {
	s := New(config.MailConfig{}, zap.NewNop())
	_, ok := s.(*LogSender)
	require.True(t, ok)
	require.NoError(t, s.Send(t.Context(), Message{To: "a@x.com"}))
}
