package util

import (
	"regexp"
	"sort"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeKey is the form order and part numbers are compared in.
func NormalizeKey(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

func NormalizeSpaces(input string) string {
	s := strings.ReplaceAll(input, "\u00A0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most max runes. Used for narrow PDF cells.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Ellipsize is Truncate with a trailing ellipsis when something was cut.
func Ellipsize(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// IsBlankRef reports whether a shipment reference cell carries no reference.
// Exports written through spreadsheet tools sometimes spell an empty cell "nan".
func IsBlankRef(ref string) bool {
	s := strings.TrimSpace(ref)
	return s == "" || strings.EqualFold(s, "nan")
}

// JoinSet joins the distinct non-blank values, sorted.
func JoinSet(values []string, sep string) string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return strings.Join(out, sep)
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
