package pipeline

import (
	"errors"
	"testing"
	"time"

	"procure/internal"
	"procure/internal/status"
)

var clock = time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)

func TestNormalizeTable(t *testing.T) {
	raw := internal.RawTable{
		Header: []string{" Order No. ", "Part No.", "Order Date", "Order Qty", "GRN Qty", "Stock Qty", "Unit Price", "MAWB No. / Consignment No./ Bill of Lading No."},
		Rows: [][]string{
			{" po-1 ", " ab12 ", "45415", "10", "", "x", "12.5", "nan"},
			{"PO-2", "cd34", "not a date", "abc", "3", "1", "n/a", "MAWB-1"},
			{"", "", "", "99", "99", "", "", ""},
			{"PO-3", "EF56", "15-05-2024", "1,200", "1200", "", "", ""},
		},
	}

	table, err := NormalizeTable(raw, internal.ColumnProfile{}, clock)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Items) != 3 {
		t.Fatalf("items=%d, blank order rows should be dropped", len(table.Items))
	}

	first := table.Items[0]
	if first.OrderNo != "PO-1" || first.PartNo != "AB12" {
		t.Fatalf("keys not normalized: %q %q", first.OrderNo, first.PartNo)
	}
	if first.GRNQty != 0 || first.StockQty != 0 {
		t.Fatalf("missing quantities should be zero: %+v", first)
	}
	if first.UnitPrice == nil || *first.UnitPrice != 12.5 {
		t.Fatalf("price=%v", first.UnitPrice)
	}
	if first.OrderDate == nil || first.OrderDate.Format("02-01-2006") != "03-05-2024" {
		t.Fatalf("order date=%v", first.OrderDate)
	}
	if first.DaysPending == nil || *first.DaysPending != 17 {
		t.Fatalf("days pending=%v", first.DaysPending)
	}

	second := table.Items[1]
	if second.OrderDate != nil || second.DaysPending != nil {
		t.Fatalf("bad date should be missing: %+v", second)
	}
	if second.OrderQty != 0 || second.UnitPrice != nil {
		t.Fatalf("bad numbers: qty=%v price=%v", second.OrderQty, second.UnitPrice)
	}
	if second.ShipmentRef != "MAWB-1" {
		t.Fatalf("shipment ref read through loose header match: %q", second.ShipmentRef)
	}

	if table.Items[2].OrderQty != 1200 {
		t.Fatalf("thousands separator: %v", table.Items[2].OrderQty)
	}
	if !table.Has(internal.ColShipmentRef) || table.Has(internal.ColPODate) {
		t.Fatalf("present columns wrong: %v", table.Present)
	}
}

func TestNormalizeMissingRequiredColumn(t *testing.T) {
	raw := internal.RawTable{Header: []string{"Order No.", "Part No.", "Order Qty"}}
	_, err := NormalizeTable(raw, internal.ColumnProfile{}, clock)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err=%v", err)
	}
}

func TestNormalizeUsesColumnProfile(t *testing.T) {
	profile := internal.ColumnProfile{internal.ColOrderNo: "PO Number", internal.ColGRNQty: "Received"}
	raw := internal.RawTable{
		Header: []string{"PO Number", "Part No.", "Order Qty", "Received"},
		Rows:   [][]string{{"7", "x", "2", "1"}},
	}
	table, err := NormalizeTable(raw, profile, clock)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Items) != 1 || table.Items[0].GRNQty != 1 {
		t.Fatalf("items=%+v", table.Items)
	}
}

func TestNormalizeClampsNegativeQuantities(t *testing.T) {
	raw := internal.RawTable{
		Header: []string{"Order No.", "Part No.", "Order Qty", "GRN Qty", "Stock Qty"},
		Rows: [][]string{
			{"PO-1", "A", "-5", "2", "1"},
			{"PO-2", "B", "4", "-1", "-3"},
			{"PO-3", "C", "4", "0", "0"},
		},
	}
	table, err := NormalizeTable(raw, internal.ColumnProfile{}, clock)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Items[0].OrderQty; got != 0 {
		t.Fatalf("order qty=%v, want 0", got)
	}
	if it := table.Items[1]; it.GRNQty != 0 || it.StockQty != 0 || it.OrderQty != 4 {
		t.Fatalf("row 3 quantities: %+v", it)
	}
	if len(table.Clamped) != 2 || table.Clamped[0] != 2 || table.Clamped[1] != 3 {
		t.Fatalf("clamped rows=%v, want [2 3]", table.Clamped)
	}
}

func TestNormalizeNaNQuantityIsBlank(t *testing.T) {
	raw := internal.RawTable{
		Header: []string{"Order No.", "Part No.", "Order Qty", "GRN Qty", "Stock Qty"},
		Rows:   [][]string{{"PO-1", "A", "4", "nan", "inf"}},
	}
	table, err := NormalizeTable(raw, internal.ColumnProfile{}, clock)
	if err != nil {
		t.Fatal(err)
	}
	it := table.Items[0]
	if it.GRNQty != 0 || it.StockQty != 0 {
		t.Fatalf("nan/inf cells should read as 0: %+v", it)
	}
	got := status.Classify(status.OrderLevel, status.Facts{Ordered: it.OrderQty, Received: it.GRNQty, Stocked: it.StockQty})
	if got != status.NoItemShipped {
		t.Fatalf("status=%q, want %q", got, status.NoItemShipped)
	}
}
