package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/MimoJanra/AuditPulse/internal/models"
)

var ErrRender = errors.New("report generation failed")

const ContentType = "application/pdf"

type ScoreRow struct {
	Label  string
	Score  int
	Health Health
}

// Document is the backend-neutral layout of one report.
type Document struct {
	Title       string
	RecordID    uint
	TargetURL   string
	GeneratedAt time.Time
	Scores      []ScoreRow
	Sections    Categorized
}

type Backend interface {
	Render(doc Document) ([]byte, error)
}

type Builder struct {
	backend Backend
	title   string
}

type BuilderOption func(*Builder)

func WithBackend(b Backend) BuilderOption {
	return func(bl *Builder) { bl.backend = b }
}

func WithTitle(title string) BuilderOption {
	return func(bl *Builder) { bl.title = title }
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{backend: PDFBackend{}, title: "AuditPulse Website Audit Report"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Layout(snap *models.AuditSnapshot, categorized Categorized) Document {
	return Document{
		Title:       b.title,
		RecordID:    snap.ID,
		TargetURL:   snap.TargetURL,
		GeneratedAt: snap.CreatedAt.UTC(),
		Scores: []ScoreRow{
			{Label: "Performance", Score: snap.PerformanceScore, Health: ScoreHealth(snap.PerformanceScore)},
			{Label: "Security", Score: snap.SecurityScore, Health: ScoreHealth(snap.SecurityScore)},
			{Label: "Accessibility", Score: snap.AccessibilityScore, Health: ScoreHealth(snap.AccessibilityScore)},
		},
		Sections: categorized,
	}
}

// Build renders the report. The output depends only on its arguments.
func (b *Builder) Build(snap *models.AuditSnapshot, categorized Categorized) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: backend panic: %v", ErrRender, r)
		}
	}()

	out, err = b.backend.Render(b.Layout(snap, categorized))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrRender)
	}
	return out, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename derives the download and attachment name from the record id and target.
func Filename(snap *models.AuditSnapshot) string {
	target := snap.TargetURL
	if _, rest, ok := strings.Cut(target, "://"); ok {
		target = rest
	}
	target = strings.Trim(unsafeFilenameChars.ReplaceAllString(target, "_"), "_.")
	if target == "" {
		return fmt.Sprintf("AuditPulse_Report_%d.pdf", snap.ID)
	}
	return fmt.Sprintf("AuditPulse_Report_%d_%s.pdf", snap.ID, target)
}
