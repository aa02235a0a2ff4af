package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"procure/internal"
	"procure/internal/util"
)

const (
	SourceXLSX  = "xlsx"
	SourceCSV   = "csv"
	SourceHTML  = "html"
	SourceEmail = "email"
)

var (
	ErrNoTrackerTable   = errors.New("no tracker table found")
	ErrNoAttachment     = errors.New("email has no tracker attachment")
	ErrUnsupportedInput = errors.New("unsupported input")
)

// Reader turns uploaded bytes into a RawTable. The column profile is only
// used to recognise which table inside an HTML page or email is the tracker.
type Reader struct {
	Profile      internal.ColumnProfile
	DefaultSheet string
}

func (r Reader) Read(name string, content []byte, sheet string) (internal.RawTable, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".xlsx", ".xlsm":
		return r.readWorkbook(content, sheet)
	case ".xls":
		// Many ERP "xls" downloads are HTML tables with an xls extension.
		if looksLikeHTML(content) {
			return r.readHTML(content)
		}
		if looksLikeZip(content) {
			return r.readWorkbook(content, sheet)
		}
		return internal.RawTable{}, fmt.Errorf("%w: legacy binary .xls, save as .xlsx or .csv", ErrUnsupportedInput)
	case ".csv", ".txt":
		return readCSV(content)
	case ".htm", ".html":
		return r.readHTML(content)
	case ".eml":
		table, _, err := r.readEmail(content, sheet)
		return table, err
	}

	switch {
	case looksLikeZip(content):
		return r.readWorkbook(content, sheet)
	case looksLikeHTML(content):
		return r.readHTML(content)
	case len(content) > 0:
		return readCSV(content)
	}
	return internal.RawTable{}, fmt.Errorf("%w: %s", ErrUnsupportedInput, name)
}

// SheetNames lists the sheets of an xlsx workbook.
func SheetNames(content []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (r Reader) readWorkbook(content []byte, sheet string) (internal.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return internal.RawTable{}, err
	}
	defer f.Close()

	name, err := pickSheet(f.GetSheetList(), sheet, r.DefaultSheet)
	if err != nil {
		return internal.RawTable{}, err
	}

	// Raw values keep dates as serial numbers instead of whatever display
	// format the sheet author chose.
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return internal.RawTable{}, err
	}
	table := toRawTable(rows)
	table.Source = SourceXLSX
	table.Sheet = name
	if len(table.Header) == 0 {
		return internal.RawTable{}, fmt.Errorf("%w: sheet %q is empty", ErrNoTrackerTable, name)
	}
	return table, nil
}

func pickSheet(sheets []string, wanted, fallback string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrNoTrackerTable)
	}
	if strings.TrimSpace(wanted) != "" {
		for _, s := range sheets {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(wanted)) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found, available: %s", wanted, strings.Join(sheets, ", "))
	}
	for _, s := range sheets {
		if strings.TrimSpace(s) == fallback {
			return s, nil
		}
	}
	return sheets[0], nil
}

func readCSV(content []byte) (internal.RawTable, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return internal.RawTable{}, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, record)
	}

	table := toRawTable(records)
	table.Source = SourceCSV
	if len(table.Header) == 0 {
		return internal.RawTable{}, fmt.Errorf("%w: csv is empty", ErrNoTrackerTable)
	}
	return table, nil
}

func (r Reader) readHTML(content []byte) (internal.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return internal.RawTable{}, err
	}

	var candidates []internal.RawTable
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			rows = append(rows, cells)
		})
		if len(rows) < 2 {
			return
		}
		candidates = append(candidates, toRawTable(rows))
	})

	for _, t := range candidates {
		if HasTrackerHeader(t.Header, r.Profile) {
			t.Source = SourceHTML
			return t, nil
		}
	}
	if len(candidates) > 0 {
		t := candidates[0]
		t.Source = SourceHTML
		return t, nil
	}
	return internal.RawTable{}, fmt.Errorf("%w: no html table", ErrNoTrackerTable)
}

// EmailAttachment is the tracker file found inside a message.
type EmailAttachment struct {
	Subject         string
	FileName        string
	Content         []byte
	AttachmentNames []string
}

// FindEmailAttachment returns the first attachment that reads as a tracker table.
func (r Reader) FindEmailAttachment(raw []byte) (EmailAttachment, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return EmailAttachment{}, err
	}

	out := EmailAttachment{Subject: env.GetHeader("Subject")}
	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for _, att := range parts {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, name)
	}

	for _, att := range parts {
		if !IsTrackerAttachment(att.FileName) {
			continue
		}
		table, err := r.Read(att.FileName, att.Content, "")
		if err != nil || !HasTrackerHeader(table.Header, r.Profile) {
			continue
		}
		out.FileName = att.FileName
		out.Content = att.Content
		return out, nil
	}
	return out, ErrNoAttachment
}

func (r Reader) readEmail(raw []byte, sheet string) (internal.RawTable, EmailAttachment, error) {
	att, err := r.FindEmailAttachment(raw)
	if err != nil {
		return internal.RawTable{}, att, err
	}
	table, err := r.Read(att.FileName, att.Content, sheet)
	if err != nil {
		return internal.RawTable{}, att, err
	}
	table.Source = SourceEmail + ":" + att.FileName
	return table, att, nil
}

// toRawTable uses the first non-blank row as the header and drops blank rows.
func toRawTable(rows [][]string) internal.RawTable {
	out := internal.RawTable{}
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if out.Header == nil {
			out.Header = make([]string, len(row))
			for i, h := range row {
				out.Header[i] = strings.TrimSpace(h)
			}
			continue
		}
		cells := make([]string, len(out.Header))
		copy(cells, row)
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func looksLikeZip(content []byte) bool {
	return bytes.HasPrefix(content, []byte("PK\x03\x04"))
}

func looksLikeHTML(content []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<")) && (bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<table")) || bytes.Contains(head, []byte("<!doctype")))
}
