// Package export renders the answer collection to a paginated PDF.
package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/studypal/server/internal/domain"
)

// Filename is the download name for the exported document.
const Filename = "answers-collage.pdf"

// CardsPerPage is the pagination constant: a 2x2 grid of answer cards
// per A4 page.
const CardsPerPage = 4

// A4 layout in millimetres.
const (
	pageWidth  = 210.0
	pageHeight = 297.0
	margin     = 15.0
	gap        = 10.0
	cardPad    = 4.0
)

// Pages returns how many pages n answers occupy.
func Pages(n int) int {
	return (n + CardsPerPage - 1) / CardsPerPage
}

// PDF renders answer cards into an A4 portrait document, four cards per
// page in reading order.
type PDF struct{}

// NewPDF creates a PDF exporter.
func NewPDF() *PDF {
	return &PDF{}
}

// Render produces the document bytes for the given answers, preserving
// their order. A card that fails to render is replaced by an error
// placeholder; the export itself continues.
func (p *PDF) Render(answers []domain.Answer) ([]byte, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answers to render")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	cardWidth := (pageWidth - 2*margin - gap) / 2
	cardHeight := (pageHeight - 2*margin - gap) / 2

	for i, ans := range answers {
		if i%CardsPerPage == 0 {
			pdf.AddPage()
		}
		slot := i % CardsPerPage
		row := slot / 2
		col := slot % 2
		x := margin + float64(col)*(cardWidth+gap)
		y := margin + float64(row)*(cardHeight+gap)

		if err := drawCard(pdf, tr, ans, x, y, cardWidth, cardHeight); err != nil {
			slog.Warn("Answer card failed to render", "question_id", ans.QuestionID, "error", err)
			// fpdf errors are sticky; clear before drawing the
			// placeholder or the whole document fails at Output.
			pdf.ClearError()
			renderErrorCard(pdf, tr, ans.QuestionID, x, y, cardWidth, cardHeight)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCard is swapped out in tests to simulate card failures.
var drawCard = renderCard

// renderCard draws one answer card. Content is clipped to the card
// bounds so an oversized answer cannot spill into its neighbours.
func renderCard(pdf *fpdf.Fpdf, tr func(string) string, ans domain.Answer, x, y, w, h float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render card: %v", r)
		}
	}()

	pdf.SetDrawColor(120, 120, 120)
	pdf.Rect(x, y, w, h, "D")

	pdf.ClipRect(x+cardPad, y+cardPad, w-2*cardPad, h-2*cardPad, false)
	defer pdf.ClipEnd()

	inner := w - 2*cardPad
	pdf.SetXY(x+cardPad, y+cardPad)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(inner, 6, tr(ans.QuestionID), "", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(inner, 5, "Question:", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(inner, 4.5, tr(sanitize(ans.QuestionText)), "", "L", false)

	pdf.SetX(x + cardPad)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(inner, 5, "Answer:", "", 2, "L", false, 0, "")
	pdf.SetX(x + cardPad)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(inner, 4.5, tr(sanitize(ans.AnswerText)), "", "L", false)

	if pdfErr := pdf.Error(); pdfErr != nil {
		return pdfErr
	}
	return nil
}

func renderErrorCard(pdf *fpdf.Fpdf, tr func(string) string, questionID string, x, y, w, h float64) {
	pdf.SetDrawColor(180, 60, 60)
	pdf.Rect(x, y, w, h, "D")
	pdf.SetXY(x+cardPad, y+cardPad)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(w-2*cardPad, 6, tr(questionID), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(w-2*cardPad, 5, "This card could not be rendered.", "", 2, "L", false, 0, "")
}

// sanitize flattens Markdown noise the core fonts cannot carry and
// normalizes line endings.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
