package certificate

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	bandBlue   = rgb{102, 126, 234}
	bandPurple = rgb{118, 75, 162}
	white      = rgb{255, 255, 255}
)

// Renderer draws certificates onto an A4 landscape page. Geometry is derived from the
// page size reported by the PDF engine.
type Renderer struct {
	font string
}

// NewRenderer creates a renderer using the core Helvetica font.
func NewRenderer() *Renderer {
	return &Renderer{font: "Helvetica"}
}

// Render writes a single-page PDF for d to w. Engine errors are returned unchanged.
func (r *Renderer) Render(w io.Writer, d Data) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(Title+" "+Subtitle, true)
	pdf.SetCreator("ULTRON FTP", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pw, ph := pdf.GetPageSize()
	cx := pw / 2

	// background bands
	fill(pdf, bandBlue)
	pdf.Rect(0, 0, pw, ph, "F")
	fill(pdf, bandPurple)
	pdf.Rect(pw*0.6, 0, pw*0.4, ph, "F")

	// double border
	draw(pdf, white)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, pw-20, ph-20, "D")
	pdf.SetLineWidth(0.5)
	pdf.Rect(15, 15, pw-30, ph-30, "D")

	pdf.SetTextColor(white.r, white.g, white.b)
	center := func(style string, size float64, y float64, s string) {
		pdf.SetFont(r.font, style, size)
		s = tr(s)
		pdf.Text(cx-pdf.GetStringWidth(s)/2, y, s)
	}

	center("B", 36, 40, Title)
	center("", 18, 50, Subtitle)

	pdf.SetLineWidth(1)
	pdf.Line(cx-30, 60, cx+30, 60)

	center("", 14, 80, CertifyLine)
	center("B", 28, 100, strings.ToUpper(d.ParticipantName))
	center("", 12, 115, CompletedLine)
	center("B", 18, 130, d.QuotedProgram())
	center("", 11, 145, d.SpeakerLine())
	center("", 11, 155, d.LogisticsLine())
	center("", 12, 170, d.DateLine())

	leftX, rightX := pw*0.25, pw*0.75
	const sigY = 190.0
	pdf.SetLineWidth(0.5)
	pdf.Line(leftX-25, sigY, leftX+25, sigY)
	pdf.Line(rightX-25, sigY, rightX+25, sigY)

	pdf.SetFont(r.font, "", 10)
	for _, sig := range []struct {
		x     float64
		label string
	}{{leftX, CoordinatorLabel}, {rightX, DirectorLabel}} {
		pdf.Text(sig.x-pdf.GetStringWidth(sig.label)/2, sigY+8, sig.label)
	}

	// emblem
	pdf.SetLineWidth(2)
	pdf.Circle(cx, sigY-5, 15, "D")
	center("B", 16, sigY-2, EmblemTop)
	center("", 8, sigY+4, EmblemBottom)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render certificate: %w", err)
	}
	return nil
}

// RenderBytes renders d into memory.
func (r *Renderer) RenderBytes(d Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func draw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }
