package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"procure/internal"
	"procure/internal/util"
)

var ErrMissingColumn = errors.New("missing required column")

type headerIndexMap struct {
	exact map[string]int
	loose map[string]int
}

func headerIndex(header []string) headerIndexMap {
	idx := headerIndexMap{exact: map[string]int{}, loose: map[string]int{}}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := idx.exact[h]; !ok {
			idx.exact[h] = i
		}
		key := looseHeader(h)
		if _, ok := idx.loose[key]; !ok {
			idx.loose[key] = i
		}
	}
	return idx
}

// lookup prefers the exact header and falls back to a case and
// whitespace insensitive match.
func (m headerIndexMap) lookup(name string) (int, bool) {
	if i, ok := m.exact[strings.TrimSpace(name)]; ok {
		return i, true
	}
	i, ok := m.loose[looseHeader(name)]
	return i, ok
}

func looseHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(util.NormalizeSpaces(h)), " "))
}

// NormalizeTable turns a raw table into line items. Unreadable dates become
// nil and unreadable quantities become zero. Negative quantities are clamped
// to zero and their rows listed in Table.Clamped. Only a missing required
// column is an error. now is the clock value days pending is measured against.
func NormalizeTable(raw internal.RawTable, profile internal.ColumnProfile, now time.Time) (internal.Table, error) {
	index := headerIndex(raw.Header)

	cols := map[internal.Column]int{}
	present := map[internal.Column]bool{}
	for _, col := range internal.AllColumns {
		if i, ok := index.lookup(profile.Header(col)); ok {
			cols[col] = i
			present[col] = true
		}
	}

	var missing []string
	for _, col := range internal.RequiredColumns {
		if !present[col] {
			missing = append(missing, profile.Header(col))
		}
	}
	if len(missing) > 0 {
		return internal.Table{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	loc := now.Location()
	items := make([]internal.LineItem, 0, len(raw.Rows))
	var clamped []int
	for i, row := range raw.Rows {
		cell := func(col internal.Column) string {
			idx, ok := cols[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return util.NormalizeSpaces(row[idx])
		}
		date := func(col internal.Column) *time.Time {
			return dateIn(util.ParseDatePtr(cell(col)), loc)
		}

		orderNo := util.NormalizeKey(cell(internal.ColOrderNo))
		// Blank order numbers are total or spacer rows.
		if orderNo == "" || orderNo == "NAN" {
			continue
		}

		item := internal.LineItem{
			RowNumber:     i + 2,
			OrderNo:       orderNo,
			PartNo:        util.NormalizeKey(cell(internal.ColPartNo)),
			Description:   cell(internal.ColDescription),
			Supplier:      cell(internal.ColSupplier),
			OrderDate:     date(internal.ColOrderDate),
			OrderQty:      util.ParseQty(cell(internal.ColOrderQty)),
			GRNQty:        util.ParseQty(cell(internal.ColGRNQty)),
			StockQty:      util.ParseQty(cell(internal.ColStockQty)),
			UnitPrice:     util.ParsePrice(cell(internal.ColUnitPrice)),
			Currency:      cell(internal.ColCurrency),
			ShipmentRef:   cell(internal.ColShipmentRef),
			ShipmentDate:  date(internal.ColShipmentDate),
			GRNDate:       date(internal.ColGRNDate),
			StockInDate:   date(internal.ColStockInDate),
			TransportMode: cell(internal.ColTransport),
			AircraftReg:   cell(internal.ColAircraftReg),
			RefNo:         cell(internal.ColRefNo),
			Priority:      cell(internal.ColPriority),
			QAStatus:      cell(internal.ColQAStatus),
			PODate:        date(internal.ColPODate),
		}
		if clampQuantities(&item) {
			clamped = append(clamped, item.RowNumber)
		}
		if item.OrderDate != nil {
			days := util.DaysBetween(*item.OrderDate, now)
			item.DaysPending = &days
		}
		items = append(items, item)
	}

	return internal.Table{Items: items, Present: present, AsOf: now, Clamped: clamped}, nil
}

// clampQuantities floors negative quantities at zero and reports whether
// any were changed.
func clampQuantities(item *internal.LineItem) bool {
	changed := false
	for _, q := range []*float64{&item.OrderQty, &item.GRNQty, &item.StockQty} {
		if *q < 0 {
			*q = 0
			changed = true
		}
	}
	return changed
}

// dateIn keeps the calendar date and drops the time of day so every
// date column compares on the same clock.
func dateIn(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return &out
}
