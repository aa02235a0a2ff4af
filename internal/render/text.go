package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"procure/internal/report"
)

// WriteText prints the document for a terminal. Flagged rows are marked with
// a leading "*".
func WriteText(doc report.Document, w io.Writer) error {
	if doc.Title != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", doc.Title); err != nil {
			return err
		}
	}
	for _, line := range doc.Summary {
		fmt.Fprintln(w, line)
	}
	for _, line := range doc.Warnings {
		fmt.Fprintf(w, "warning: %s\n", line)
	}

	for _, s := range doc.Sections {
		fmt.Fprintf(w, "\n%s (%d)\n", s.Name, s.Len())
		for _, note := range s.Notes {
			fmt.Fprintln(w, note)
		}
		if s.Len() == 0 {
			continue
		}

		flagged := len(s.Highlight) > 0
		table := tablewriter.NewWriter(w)
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(false)
		header := s.Columns
		if flagged {
			header = append([]string{""}, s.Columns...)
		}
		table.SetHeader(header)
		for i, row := range s.Rows {
			cells := make([]string, 0, len(header))
			if flagged {
				mark := ""
				if s.Highlighted(i) {
					mark = "*"
				}
				cells = append(cells, mark)
			}
			for _, v := range row {
				cells = append(cells, report.Text(v))
			}
			table.Append(cells)
		}
		table.Render()
	}
	return nil
}
