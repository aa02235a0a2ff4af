package util

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatINR renders a rupee amount rounded to whole rupees with Indian digit
// grouping, e.g. ₹1,23,457.00.
func FormatINR(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "₹" + GroupIndian(rounded.StringFixed(0)) + ".00"
}

// GroupIndian inserts separators after the last three digits and then every two.
func GroupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	groups := []string{}
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// FormatAmount renders v with thousands separators and two decimals.
func FormatAmount(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// FormatUnitPrice renders a unit price with a currency marker, or "-" when unknown.
func FormatUnitPrice(price *float64, currency string) string {
	if price == nil {
		return "-"
	}
	raw := strings.ToUpper(strings.TrimSpace(currency))
	switch {
	case strings.Contains(raw, "INR") || strings.Contains(raw, "INDIAN"):
		return fmt.Sprintf("₹ %.2f", *price)
	case strings.Contains(raw, "USD") || strings.Contains(raw, "US DOLLAR"):
		return fmt.Sprintf("$ %.2f", *price)
	default:
		return fmt.Sprintf("%s %.2f", raw, *price)
	}
}
