package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"procure/internal"
)

func mkXLSX(sheets map[string][][]any, order ...string) []byte {
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	for i, name := range order {
		if i == 0 {
			_ = f.SetSheetName(first, name)
		} else {
			_, _ = f.NewSheet(name)
		}
		for r, row := range sheets[name] {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				_ = f.SetCellValue(name, cell, v)
			}
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

var trackerHeader = []any{"Order No.", "Part No.", "Supplier", "Order Qty", "GRN Qty"}

func testReader() Reader {
	return Reader{Profile: internal.ColumnProfile{}, DefaultSheet: "PURCHASE_ORDER"}
}

func TestReadWorkbookPicksDefaultSheet(t *testing.T) {
	blob := mkXLSX(map[string][][]any{
		"Notes": {{"nothing here"}},
		"PURCHASE_ORDER": {
			trackerHeader,
			{"100", "p1", "ACME", 5, 5},
			{},
			{"100", "p2", "ACME", 5, 2},
		},
	}, "Notes", "PURCHASE_ORDER")

	table, err := testReader().Read("tracker.xlsx", blob, "")
	if err != nil {
		t.Fatal(err)
	}
	if table.Sheet != "PURCHASE_ORDER" {
		t.Fatalf("sheet=%q", table.Sheet)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d, blank rows should be dropped", len(table.Rows))
	}
	if table.Rows[1][4] != "2" {
		t.Fatalf("cell=%q", table.Rows[1][4])
	}
}

func TestReadWorkbookExplicitSheet(t *testing.T) {
	blob := mkXLSX(map[string][][]any{
		"First":  {trackerHeader, {"1", "A", "X", 1, 0}},
		"Second": {trackerHeader, {"2", "B", "Y", 1, 1}, {"3", "C", "Y", 1, 1}},
	}, "First", "Second")

	table, err := testReader().Read("tracker.xlsx", blob, "second")
	if err != nil {
		t.Fatal(err)
	}
	if table.Sheet != "Second" || len(table.Rows) != 2 {
		t.Fatalf("sheet=%q rows=%d", table.Sheet, len(table.Rows))
	}

	if _, err := testReader().Read("tracker.xlsx", blob, "Missing"); err == nil {
		t.Fatalf("expected error for unknown sheet")
	}

	names, err := SheetNames(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[1] != "Second" {
		t.Fatalf("names=%v", names)
	}
}

func TestReadWorkbookFallsBackToFirstSheet(t *testing.T) {
	blob := mkXLSX(map[string][][]any{
		"Export": {trackerHeader, {"1", "A", "X", 1, 0}},
	}, "Export")

	table, err := testReader().Read("tracker.xlsx", blob, "")
	if err != nil {
		t.Fatal(err)
	}
	if table.Sheet != "Export" {
		t.Fatalf("sheet=%q", table.Sheet)
	}
}

func TestReadCSV(t *testing.T) {
	csv := "\xef\xbb\xbf Order No. ,Part No.,Order Qty,GRN Qty\n100,p1,\"1,000\",5\n,,,\n101,p2,3\n"
	table, err := testReader().Read("tracker.csv", []byte(csv), "")
	if err != nil {
		t.Fatal(err)
	}
	if table.Header[0] != "Order No." {
		t.Fatalf("header not trimmed: %q", table.Header[0])
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if table.Rows[0][2] != "1,000" {
		t.Fatalf("cell=%q", table.Rows[0][2])
	}
	if len(table.Rows[1]) != 4 || table.Rows[1][3] != "" {
		t.Fatalf("short row not padded: %v", table.Rows[1])
	}
}

func TestReadHTMLPicksTrackerTable(t *testing.T) {
	html := `<html><body>
<table><tr><td>Report</td></tr><tr><td>generated</td></tr></table>
<table>
<tr><th>Order No.</th><th>Part No.</th><th>Order Qty</th><th>GRN Qty</th></tr>
<tr><td>100</td><td>p1</td><td>4</td><td>&nbsp;</td></tr>
</table></body></html>`

	for _, name := range []string{"export.html", "export.xls"} {
		t.Run(name, func(t *testing.T) {
			table, err := testReader().Read(name, []byte(html), "")
			if err != nil {
				t.Fatal(err)
			}
			if table.Source != SourceHTML {
				t.Fatalf("source=%q", table.Source)
			}
			if len(table.Rows) != 1 || table.Rows[0][0] != "100" || table.Rows[0][3] != "" {
				t.Fatalf("rows=%v", table.Rows)
			}
		})
	}
}

func TestReadLegacyXLSRejected(t *testing.T) {
	_, err := testReader().Read("old.xls", []byte{0xD0, 0xCF, 0x11, 0xE0}, "")
	if !errors.Is(err, ErrUnsupportedInput) {
		t.Fatalf("err=%v", err)
	}
}

func mkEML(t *testing.T, subject string, attachments map[string][]byte) []byte {
	t.Helper()
	b := enmime.Builder().
		From("Stores", "stores@example.com").
		To("Planning", "planning@example.com").
		Subject(subject).
		Text([]byte("Please find the tracker attached."))
	for name, content := range attachments {
		b = b.AddAttachment(content, "application/octet-stream", name)
	}
	part, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	buf := bytes.NewBuffer(nil)
	if err := part.Encode(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadEmailAttachment(t *testing.T) {
	blob := mkXLSX(map[string][][]any{
		"PURCHASE_ORDER": {trackerHeader, {"100", "p1", "ACME", 5, 5}},
	}, "PURCHASE_ORDER")
	raw := mkEML(t, "Order tracker 01-05-2024", map[string][]byte{"tracker.xlsx": blob})

	table, err := testReader().Read("mail.eml", raw, "")
	if err != nil {
		t.Fatal(err)
	}
	if table.Source != "email:tracker.xlsx" || len(table.Rows) != 1 {
		t.Fatalf("source=%q rows=%d", table.Source, len(table.Rows))
	}

	noAtt := mkEML(t, "hello", map[string][]byte{"notes.txt": []byte("hi")})
	if _, err := testReader().Read("mail.eml", noAtt, ""); !errors.Is(err, ErrNoAttachment) {
		t.Fatalf("err=%v", err)
	}
}

func TestDetectTrackerEmail(t *testing.T) {
	cases := []struct {
		name        string
		subject     string
		attachments []string
		want        bool
	}{
		{"subject and sheet", "PO status update", []string{"tracker.xlsx"}, true},
		{"sheet only", "fwd", []string{"export.csv"}, true},
		{"keyword only", "purchase order tracker", nil, false},
		{"nothing", "lunch", []string{"menu.pdf"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectTrackerEmail(tc.subject, "", tc.attachments)
			if got.IsTracker != tc.want {
				t.Fatalf("got %+v", got)
			}
		})
	}
}
