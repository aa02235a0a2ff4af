package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"procure/internal/report"
	"procure/internal/util"
)

const maxSheetName = 31

// WriteXLSX writes one sheet per non-empty section, header in row 1.
// Flagged rows get an orange fill.
func WriteXLSX(doc report.Document, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D3E9FF"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	flagStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFA500"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	first := f.GetSheetName(0)
	used := map[string]bool{}
	written := 0
	for _, s := range doc.Sections {
		if s.Len() == 0 {
			continue
		}
		name := sheetName(s.Name, used)
		if written == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		written++

		for c, h := range s.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			_ = f.SetCellValue(name, cell, h)
		}
		if len(s.Columns) > 0 {
			end, _ := excelize.CoordinatesToCellName(len(s.Columns), 1)
			_ = f.SetCellStyle(name, "A1", end, headerStyle)
		}

		for r, row := range s.Rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				_ = f.SetCellValue(name, cell, cellValue(v))
			}
			if s.Highlighted(r) && len(row) > 0 {
				start, _ := excelize.CoordinatesToCellName(1, r+2)
				end, _ := excelize.CoordinatesToCellName(len(row), r+2)
				_ = f.SetCellStyle(name, start, end, flagStyle)
			}
		}
	}

	if written == 0 {
		if err := f.SetSheetName(first, "Summary"); err != nil {
			return err
		}
		lines := append([]string{doc.Title}, doc.Summary...)
		lines = append(lines, doc.Warnings...)
		for i, line := range lines {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			_ = f.SetCellValue("Summary", cell, line)
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func SaveXLSX(doc report.Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteXLSX(doc, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func cellValue(v any) any {
	switch x := v.(type) {
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(util.DisplayDate)
	case time.Time:
		return x.Format(util.DisplayDate)
	case *int:
		if x == nil {
			return "--"
		}
		return *x
	case nil:
		return ""
	}
	return v
}

// sheetName makes name valid for Excel and unique within the workbook.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	clean = strings.Trim(clean, "'")
	if clean == "" {
		clean = "Sheet"
	}
	clean = util.Truncate(clean, maxSheetName)

	candidate := clean
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = util.Truncate(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
