package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "Helvetica"
	pageMargin = 15.0
	rowHeight  = 7.0
)

var healthFill = map[Health][3]int{
	HealthGood:     {220, 245, 225},
	HealthWarning:  {255, 243, 205},
	HealthCritical: {248, 215, 218},
	HealthUnknown:  {235, 235, 235},
}

// PDFBackend renders documents with fpdf. Dates are pinned to the document
// timestamp and catalogs are sorted so equal documents give equal bytes.
type PDFBackend struct{}

func (PDFBackend) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(doc.Title), false)
	pdf.SetAuthor("AuditPulse", false)
	pdf.SetCreator("AuditPulse", false)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "", 11)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("Report #%d for %s", doc.RecordID, doc.TargetURL)), "", "L", false)
	pdf.CellFormat(0, 6, "Audited: "+doc.GeneratedAt.Format("2006-01-02 15:04:05 UTC"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{100, 40, 45}

	heading(pdf, "Summary scores")
	tableHeader(pdf, widths, "Score", "Value", "Status")
	for _, s := range doc.Scores {
		tableRow(pdf, widths, s.Health, s.Label, fmt.Sprintf("%d / 100", s.Score), string(s.Health))
	}
	pdf.Ln(4)

	for _, section := range doc.Sections {
		heading(pdf, tr(section.Name))
		tableHeader(pdf, widths, "Metric", "Value", "Status")
		for _, row := range section.Metrics {
			tableRow(pdf, widths, row.Health, tr(row.Name), tr(row.Value.String()), string(row.Health))
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(0, 9, text, "", 1, "L", false, 0, "")
}

func tableHeader(pdf *fpdf.Fpdf, widths []float64, cols ...string) {
	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetFillColor(52, 73, 94)
	pdf.SetTextColor(255, 255, 255)
	for i, col := range cols {
		pdf.CellFormat(widths[i], rowHeight, col, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func tableRow(pdf *fpdf.Fpdf, widths []float64, h Health, cols ...string) {
	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(20, 20, 20)
	for i, col := range cols {
		fill := i == len(cols)-1
		if fill {
			c := healthFill[h]
			pdf.SetFillColor(c[0], c[1], c[2])
		}
		pdf.CellFormat(widths[i], rowHeight, col, "1", 0, "L", fill, 0, "")
	}
	pdf.Ln(-1)
}
