package util

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{name: "plain int", input: "10", want: 10, ok: true},
		{name: "raw float", input: "12.5", want: 12.5, ok: true},
		{name: "western thousands", input: "1,234.50", want: 1234.5, ok: true},
		{name: "indian grouping", input: "1,23,456", want: 123456, ok: true},
		{name: "decimal comma", input: "1,5", want: 1.5, ok: true},
		{name: "nbsp padded", input: "\u00A0 7 ", want: 7, ok: true},
		{name: "dot is decimal", input: "1.234", want: 1.234, ok: true},
		{name: "blank", input: "  ", ok: false},
		{name: "text", input: "n/a", ok: false},
		{name: "nan marker", input: "nan", ok: false},
		{name: "NaN marker", input: "NaN", ok: false},
		{name: "inf", input: "inf", ok: false},
		{name: "negative infinity", input: "-Infinity", ok: false},
		{name: "overflow", input: "1e400", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseNumber(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestParseQtyAndPrice(t *testing.T) {
	if got := ParseQty(""); got != 0 {
		t.Fatalf("blank qty=%v", got)
	}
	if got := ParseQty("abc"); got != 0 {
		t.Fatalf("garbage qty=%v", got)
	}
	if p := ParsePrice("abc"); p != nil {
		t.Fatalf("garbage price=%v", *p)
	}
	if got := ParseQty("nan"); got != 0 {
		t.Fatalf("nan qty=%v", got)
	}
	if p := ParsePrice("NaN"); p != nil {
		t.Fatalf("nan price=%v", *p)
	}
	if p := ParsePrice("99.90"); p == nil || *p != 99.9 {
		t.Fatalf("price=%v", p)
	}
}
