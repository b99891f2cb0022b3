package citycontrol

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/signal-service/internal/domain"
)

// SummaryRenderer produces the PDF summary attached to a CityControl case.
type SummaryRenderer interface {
	Render(ctx context.Context, signal *domain.Signal) ([]byte, error)
}

// pdfSummaryRenderer writes a minimal single-page PDF by hand. The
// document only needs to be readable in CityControl's attachment viewer,
// so plain Helvetica text lines suffice.
type pdfSummaryRenderer struct{}

// NewSummaryRenderer returns the built-in PDF renderer.
func NewSummaryRenderer() SummaryRenderer {
	return pdfSummaryRenderer{}
}

func (pdfSummaryRenderer) Render(_ context.Context, signal *domain.Signal) ([]byte, error) {
	lines := []string{
		domain.SignalDisplayID(signal.ID),
		"Title: " + signal.Title,
		"Reported: " + signal.CreatedAt.Format("2006-01-02 15:04"),
		"Priority: " + string(signal.Priority),
		"Location: " + signal.Location.ShortAddress() + ", " + signal.Location.City,
	}
	if signal.Status != nil {
		lines = append(lines, "Status: "+string(signal.Status.State))
	}
	lines = append(lines, "")
	lines = append(lines, strings.Split(signal.Text, "\n")...)

	var content strings.Builder
	content.WriteString("BT\n/F1 11 Tf\n50 780 Td\n14 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj\nT*\n", escapePDFString(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf strings.Builder
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOffset)

	return []byte(buf.String()), nil
}

// escapePDFString escapes the delimiters of a PDF literal string.
func escapePDFString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return replacer.Replace(s)
}
