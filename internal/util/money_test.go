package util

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatINR(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "0", want: "₹0.00"},
		{in: "999.4", want: "₹999.00"},
		{in: "123456.5", want: "₹1,23,457.00"},
		{in: "12345678", want: "₹1,23,45,678.00"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := FormatINR(decimal.RequireFromString(tc.in))
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestFormatUnitPrice(t *testing.T) {
	p := 12.5
	if got := FormatUnitPrice(&p, " inr "); got != "₹ 12.50" {
		t.Fatalf("inr=%q", got)
	}
	if got := FormatUnitPrice(&p, "US Dollar"); got != "$ 12.50" {
		t.Fatalf("usd=%q", got)
	}
	if got := FormatUnitPrice(&p, "eur"); got != "EUR 12.50" {
		t.Fatalf("eur=%q", got)
	}
	if got := FormatUnitPrice(nil, "INR"); got != "-" {
		t.Fatalf("nil=%q", got)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(1234.5); got != "1,234.50" {
		t.Fatalf("got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "iso", input: "2024-05-03", want: "03-05-2024", ok: true},
		{name: "day first", input: "03-05-2024", want: "03-05-2024", ok: true},
		{name: "day first slash", input: "03/05/2024", want: "03-05-2024", ok: true},
		{name: "month name", input: "03-May-2024", want: "03-05-2024", ok: true},
		{name: "shouted month", input: "03-MAY-2024", want: "03-05-2024", ok: true},
		{name: "excel serial", input: "45415", want: "03-05-2024", ok: true},
		{name: "garbage", input: "soon", ok: false},
		{name: "blank", input: "", ok: false},
		{name: "nan marker", input: "nan", ok: false},
		{name: "infinity", input: "inf", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got.Format(DisplayDate) != tc.want {
				t.Fatalf("got %s want %s", got.Format(DisplayDate), tc.want)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 5, 11, 15, 0, 0, 0, time.UTC)
	if got := DaysBetween(since, now); got != 10 {
		t.Fatalf("got %d", got)
	}
	if got := DaysBetween(now, since); got != -11 {
		t.Fatalf("negative got %d", got)
	}
}
