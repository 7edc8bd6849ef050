package notifications

import (
	"fmt"
	"strings"

	"github.com/MimoJanra/AuditPulse/internal/models"
)

func ReportSubject(target string) string {
	return fmt.Sprintf("AuditPulse Daily Report: %s", target)
}

func ReportBody(snap *models.AuditSnapshot, metricCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your scheduled daily audit for %s has been completed.\n\n", snap.TargetURL)
	fmt.Fprintf(&b, "The attached PDF report details %d metrics.\n\n", metricCount)
	fmt.Fprintf(&b, "Performance Score:   %d%%\n", snap.PerformanceScore)
	fmt.Fprintf(&b, "Security Score:      %d%%\n", snap.SecurityScore)
	fmt.Fprintf(&b, "Accessibility Score: %d%%\n\n", snap.AccessibilityScore)
	fmt.Fprintf(&b, "Report #%d, audited %s.\n", snap.ID, snap.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	return b.String()
}

// ReportMessage assembles the scheduled delivery mail with the rendered report attached.
func ReportMessage(to string, snap *models.AuditSnapshot, metricCount int, filename, contentType string, doc []byte) Message {
	return Message{
		To:      to,
		Subject: ReportSubject(snap.TargetURL),
		Body:    ReportBody(snap, metricCount),
		Attachments: []Attachment{
			{Filename: filename, ContentType: contentType, Data: doc},
		},
	}
}
