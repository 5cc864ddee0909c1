// Package manifest renders the daily dispatch sheet as a PDF.
package manifest

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/urbannassau/rides/pkg/whatsapp"
)

// Entry is one booked trip on the sheet.
type Entry struct {
	ID          int64
	Hour        string
	ServiceType string
	Pickup      string
	Dropoff     string
	Passengers  int
	Phone       string
	TotalFare   float64
	Status      string
}

// Sheet is the content of one day's manifest.
type Sheet struct {
	Title       string
	Date        string
	GeneratedAt string
	Entries     []Entry
}

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"#", 12, "R"},
	{"Time", 20, "L"},
	{"Service", 28, "L"},
	{"Pickup", 60, "L"},
	{"Dropoff", 60, "L"},
	{"Pax", 10, "C"},
	{"Phone", 30, "L"},
	{"Fare", 22, "R"},
	{"Status", 22, "L"},
}

// Render returns the PDF bytes and a download filename.
func Render(s Sheet) ([]byte, string, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s %s", s.Title, s.Date), true)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(s.Title))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s    Trips: %d    Generated: %s", s.Date, len(s.Entries), s.GeneratedAt))
	pdf.Ln(10)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	if len(s.Entries) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 8, "No bookings for this day.")
	}

	var total float64
	for _, e := range s.Entries {
		cells := rowCells(pdf, tr, e)
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
		total += e.TotalFare
	}

	if len(s.Entries) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, "Estimated total: "+whatsapp.FormatCurrency(total))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("manifest: render pdf: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("manifest-%s.pdf", s.Date), nil
}

// rowCells formats one entry. Every free-text cell goes through tr, since
// the core fonts only cover cp1252.
func rowCells(pdf *gofpdf.Fpdf, tr func(string) string, e Entry) []string {
	phone := e.Phone
	if phone == "" {
		phone = "-"
	}
	return []string{
		fmt.Sprintf("%d", e.ID),
		tr(e.Hour),
		truncate(pdf, tr(e.ServiceType), columns[2].width),
		truncate(pdf, tr(e.Pickup), columns[3].width),
		truncate(pdf, tr(e.Dropoff), columns[4].width),
		fmt.Sprintf("%d", e.Passengers),
		tr(phone),
		whatsapp.FormatCurrency(e.TotalFare),
		truncate(pdf, tr(e.Status), columns[8].width),
	}
}

// truncate shortens s with "..." until it fits width (minus padding).
// s is already translated, one byte per glyph.
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	b := s
	for len(b) > 0 && pdf.GetStringWidth(b+"...") > limit {
		b = b[:len(b)-1]
	}
	return b + "..."
}
