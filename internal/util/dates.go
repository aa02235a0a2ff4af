package util

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const DisplayDate = "02-01-2006"

// Day-first layouts come before anything month-first; the exports this tool
// reads are produced with Indian regional settings.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02-Jan-2006",
	"02-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02-January-2006",
}

// ParseDate never fails loudly: anything it cannot read is reported as missing.
func ParseDate(input string) (time.Time, bool) {
	s := NormalizeSpaces(input)
	if s == "" {
		return time.Time{}, false
	}
	if serial, ok := ParseNumber(s); ok {
		if serial < 1 || serial > 2958465 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	// Title-cased month names only; exports often shout.
	if upper := strings.ToUpper(s); upper == s {
		titled := strings.ToLower(s)
		for _, layout := range dateLayouts {
			if !strings.Contains(layout, "Jan") {
				continue
			}
			if t, err := time.ParseInLocation(layout, titleMonth(titled), time.Local); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func ParseDatePtr(input string) *time.Time {
	t, ok := ParseDate(input)
	if !ok {
		return nil
	}
	return &t
}

func titleMonth(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' && (i == 0 || !isLetter(out[i-1])) {
			out[i] = r - 'a' + 'A'
		}
	}
	return string(out)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// DaysBetween counts whole days from since to now, flooring like a calendar
// difference would for partial days.
func DaysBetween(since, now time.Time) int {
	d := now.Sub(since)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DisplayDate)
}

// MonthKey is the YYYY-MM bucket of t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func LastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local)
}
