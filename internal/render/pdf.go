package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"procure/internal"
	"procure/internal/report"
	"procure/internal/util"
)

const (
	pageHeading = "Procurement Monitoring Dashboard"
	cellChars   = 16
	rowHeight   = 6.0
)

type PDFOptions struct {
	Landscape bool
	// Serial prepends a "Sl No." column to every table.
	Serial bool
}

var shortHeaders = map[string]string{
	string(internal.ColShipmentRef):  "MAWB/Consignment/BL No.",
	string(internal.ColShipmentDate): "MAWB/Consignment/BL Date",
}

// WritePDF lays the document out on A4 pages with a fixed header and a page
// number footer. Table headers repeat after every page break.
func WritePDF(doc report.Document, w io.Writer, opts PDFOptions) error {
	orientation := "P"
	if opts.Landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(12, 20, 12)
	pdf.SetAutoPageBreak(true, 16)
	tr := translator(pdf)

	pdf.SetHeaderFunc(func() {
		pageW, pageH := pdf.GetPageSize()
		pdf.SetDrawColor(211, 211, 211)
		pdf.Rect(8, 8, pageW-16, pageH-16, "D")
		pdf.SetXY(12, 10)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(0, 0, 139)
		pdf.CellFormat(0, 7, tr(pageHeading), "", 1, "L", false, 0, "")
		pdf.SetY(20)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 15)
	pdf.SetTextColor(0, 0, 139)
	pdf.MultiCell(0, 8, tr(doc.Title), "", "C", false)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, line := range doc.Summary {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.SetTextColor(178, 34, 34)
	for _, line := range doc.Warnings {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	for _, s := range doc.Sections {
		if s.Len() == 0 {
			continue
		}
		writeSection(pdf, tr, s, opts)
	}

	return pdf.Output(w)
}

// SavePDF renders doc, reads the result back with VerifyPDF and only then
// writes it to path.
func SavePDF(doc report.Document, path string, opts PDFOptions) error {
	var buf bytes.Buffer
	if err := WritePDF(doc, &buf, opts); err != nil {
		return err
	}
	if _, err := VerifyPDF(buf.Bytes()); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeSection(pdf *fpdf.Fpdf, tr func(string) string, s report.Section, opts PDFOptions) {
	headers := make([]string, 0, len(s.Columns)+1)
	if opts.Serial {
		headers = append(headers, "Sl No.")
	}
	for _, c := range s.Columns {
		if short, ok := shortHeaders[c]; ok {
			c = short
		}
		headers = append(headers, c)
	}

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(headers))

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(0, 100, 0)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s (Total: %d)", s.Name, s.Len())), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, note := range s.Notes {
		pdf.CellFormat(0, 5, tr(note), "", 1, "L", false, 0, "")
	}

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 7)
		pdf.SetFillColor(211, 233, 255)
		pdf.SetTextColor(0, 0, 139)
		pdf.SetDrawColor(0, 0, 0)
		for _, h := range headers {
			pdf.CellFormat(colW, rowHeight, tr(util.Truncate(h, cellChars)), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(0, 0, 0)
	}
	drawHeader()

	for i, row := range s.Rows {
		if pdf.GetY()+rowHeight > pageH-bottom {
			pdf.AddPage()
			drawHeader()
		}
		flagged := s.Highlighted(i)
		if flagged {
			pdf.SetFillColor(255, 165, 0)
		}
		cells := make([]string, 0, len(headers))
		if opts.Serial {
			cells = append(cells, fmt.Sprintf("%d", i+1))
		}
		for _, v := range row {
			cells = append(cells, report.Text(v))
		}
		for _, c := range cells {
			pdf.CellFormat(colW, rowHeight, tr(util.Truncate(c, cellChars)), "1", 0, "L", flagged, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// translator maps text to the core fonts' cp1252 encoding. The rupee sign
// has no cp1252 code point, so it is spelled out.
func translator(pdf *fpdf.Fpdf) func(string) string {
	cp := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) string {
		s = strings.ReplaceAll(s, "₹", "INR ")
		return cp(s)
	}
}
