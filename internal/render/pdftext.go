package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadablePDF is returned when a rendered report cannot be read back.
var ErrUnreadablePDF = errors.New("unreadable pdf")

// VerifyPDF reads a rendered report back and checks that the first page
// carries the page heading. It returns the page count.
func VerifyPDF(content []byte) (int, error) {
	pages, err := PDFText(content)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("%w: no pages", ErrUnreadablePDF)
	}
	if word := strings.Fields(pageHeading)[0]; !strings.Contains(pages[0], word) {
		return 0, fmt.Errorf("%w: page 1 has no %q heading", ErrUnreadablePDF, word)
	}
	return len(pages), nil
}

// PDFText extracts the plain text of every page, page by page.
func PDFText(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}
