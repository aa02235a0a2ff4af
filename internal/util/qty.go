package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reCommaThousands = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reIndianGrouping = regexp.MustCompile(`^-?\d{1,3}(?:,\d{2})*,\d{3}(?:\.\d+)?$`)
	reDecimalComma   = regexp.MustCompile(`^-?\d+,\d+$`)
)

// ParseNumber reads a numeric cell. Thousands separators (western and Indian
// grouping) and a lone decimal comma are accepted; anything else is not a number.
// NaN and infinities ("nan", "inf") are blank markers, not values.
func ParseNumber(input string) (float64, bool) {
	s := strings.ReplaceAll(input, "\u00A0", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	switch {
	case reCommaThousands.MatchString(s), reIndianGrouping.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case reDecimalComma.MatchString(s):
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseQty coerces a quantity cell; blanks and garbage become zero.
func ParseQty(input string) float64 {
	v, ok := ParseNumber(input)
	if !ok {
		return 0
	}
	return v
}

// ParsePrice coerces a price cell; blanks and garbage become nil.
func ParsePrice(input string) *float64 {
	v, ok := ParseNumber(input)
	if !ok {
		return nil
	}
	return FloatPtr(v)
}
