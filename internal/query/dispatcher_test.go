package query

import (
	"errors"
	"testing"
	"time"

	"procure/internal"
	"procure/internal/tracker"
)

func sample() internal.Table {
	may := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	price := 10.0
	present := map[internal.Column]bool{}
	for _, c := range internal.AllColumns {
		present[c] = true
	}
	return internal.Table{
		AsOf:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Present: present,
		Items: []internal.LineItem{
			{OrderNo: "2000143826", PartNo: "204X1217", OrderQty: 2, GRNQty: 0, Supplier: "Sat Air", OrderDate: &may, UnitPrice: &price, Currency: "INR"},
			{OrderNo: "2000143827", PartNo: "ABC", OrderQty: 1, GRNQty: 1, Supplier: "ATR", AircraftReg: "VT-ABC", ShipmentRef: "AWB1"},
			{OrderNo: "XYZ", PartNo: "Q1", OrderQty: 1, GRNQty: 0, AircraftReg: "VT-XYZ", ShipmentRef: "BL-9"},
		},
	}
}

func TestResolvePriority(t *testing.T) {
	d := New(Options{Rate: 84, RateMin: 50, RateMax: 200})
	tb := sample()

	cases := []struct {
		input  string
		intent Intent
		arg    string
	}{
		{"Not Shipped 204X1217", Unshipped, ""},
		{"not shipped partial grn", Unshipped, ""},
		{"partial grn", PartialGRN, ""},
		{"supplier sat air", Supplier, "SAT AIR"},
		{"supplier", Supplier, ""},
		{"supplier report", Supplier, "REPORT"},
		{" 204x1217 ", Part, "204X1217"},
		{"abc", Part, "ABC"},
		{"xyz", Order, "XYZ"},
		{"2000143826", Order, "2000143826"},
		{"def", Aircraft, "VT-DEF"},
		{"ab1", Unknown, ""},
		{"monthly report 2024-05", Monthly, "2024-05"},
		{"procurement report", Monthly, ""},
		{"hello there", Unknown, ""},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			r := d.Resolve(tb, tc.input)
			if r.Intent != tc.intent || r.Arg != tc.arg {
				t.Fatalf("got %s %q, want %s %q", r.Intent, r.Arg, tc.intent, tc.arg)
			}
		})
	}
}

func TestRegistrationPrefixIsConfigurable(t *testing.T) {
	d := New(Options{RegistrationPrefix: "G-"})
	r := d.Resolve(internal.Table{}, "abc")
	if r.Intent != Aircraft || r.Arg != "G-ABC" {
		t.Fatalf("got %+v", r)
	}
}

func TestAnswer(t *testing.T) {
	d := New(Options{Rate: 84, RateMin: 50, RateMax: 200})
	tb := sample()

	_, doc, err := d.Ask(tb, "not shipped")
	if err != nil {
		t.Fatal(err)
	}
	s, _ := doc.Section(tracker.SectionNotYetShipped)
	if s.Len() != 1 {
		t.Fatalf("unshipped rows=%d", s.Len())
	}

	_, doc, _ = d.Ask(tb, "supplier boeing")
	if len(doc.Warnings) != 1 {
		t.Fatalf("expected supplier warning, got %+v", doc)
	}

	_, doc, _ = d.Ask(tb, "supplier")
	if s, ok := doc.Section(tracker.SectionSupplier); !ok || s.Len() != 3 || len(doc.Warnings) != 0 {
		t.Fatalf("bare supplier should list every line, got %+v", doc)
	}

	_, doc, _ = d.Ask(tb, "what is this")
	if len(doc.Warnings) != 1 || doc.Warnings[0] != FallbackMessage {
		t.Fatalf("fallback=%+v", doc)
	}

	_, doc, err = d.Ask(tb, "report")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Monthly Procurement Report – May 2024" {
		t.Fatalf("title=%q", doc.Title)
	}

	_, _, err = d.WithRate(10).Ask(tb, "report")
	if !errors.Is(err, tracker.ErrRateOutOfRange) {
		t.Fatalf("err=%v", err)
	}
}

func TestIntentString(t *testing.T) {
	if Unshipped.String() != "not_shipped" || Intent(99).String() != "unknown" {
		t.Fatalf("names broken")
	}
}
