// Package report is the renderer-neutral shape of every answer and export:
// a titled document made of summary lines and tabular sections.
package report

import (
	"fmt"
	"strconv"
	"time"

	"procure/internal/util"
)

type Section struct {
	Name    string
	Notes   []string
	Columns []string
	Rows    [][]any
	// Highlight holds indexes into Rows of flagged (AOG) rows.
	Highlight []int
}

func (s Section) Len() int { return len(s.Rows) }

func (s Section) Highlighted(row int) bool {
	for _, i := range s.Highlight {
		if i == row {
			return true
		}
	}
	return false
}

// Column returns the index of the named column or -1.
func (s Section) Column(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

type Document struct {
	Title    string
	Summary  []string
	Warnings []string
	Sections []Section
}

func (d Document) Empty() bool {
	for _, s := range d.Sections {
		if s.Len() > 0 {
			return false
		}
	}
	return true
}

// Section looks a section up by name.
func (d Document) Section(name string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Text renders one cell for text and PDF output.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case *int:
		if x == nil {
			return "--"
		}
		return strconv.Itoa(*x)
	case time.Time:
		return x.Format(util.DisplayDate)
	case *time.Time:
		return util.FormatDate(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
