package tracker

import (
	"sort"
	"strings"
	"time"

	"procure/internal"
	"procure/internal/status"
	"procure/internal/util"
)

// Registration builds a full registration from a three letter code.
func Registration(prefix, code string) string {
	return prefix + strings.ToUpper(strings.TrimSpace(code))
}

type AircraftOrder struct {
	OrderNo      string
	Registration string
	Supplier     string
	OrderQty     float64
	GRNQty       float64
	PODate       *time.Time
	Status       status.Label
}

type AircraftReport struct {
	Registration string
	HasPODate    bool
	Orders       []AircraftOrder
	Fully        []string
	Partial      []string
	NotShipped   []string
	OrderDates   []string
	Lines        int
	LineCounts   map[status.Label]int
}

func (r AircraftReport) Empty() bool { return len(r.Orders) == 0 }

// dedicated reports a registration field that names the target aircraft and
// no other. Shared allocations ("VT-ABC, VT-XYZ") cannot be split per aircraft.
func dedicated(field, registration string) bool {
	if strings.Contains(field, ",") {
		return false
	}
	return strings.Contains(strings.ToUpper(field), strings.ToUpper(registration))
}

func SummarizeAircraft(t internal.Table, registration string) AircraftReport {
	r := AircraftReport{
		Registration: registration,
		HasPODate:    t.Has(internal.ColPODate),
		LineCounts:   map[status.Label]int{},
	}

	var rows []internal.LineItem
	for _, it := range t.Items {
		if dedicated(it.AircraftReg, registration) {
			rows = append(rows, it)
		}
	}
	if len(rows) == 0 {
		return r
	}

	keys, groups := groupByOrder(rows)
	dates := map[string]struct{}{}
	for _, order := range keys {
		g := groups[order]
		o := AircraftOrder{
			OrderNo:      order,
			Registration: strings.TrimSpace(g[0].AircraftReg),
			Supplier:     g[0].Supplier,
			OrderQty:     orderedQty(g),
			GRNQty:       receivedQty(g),
		}
		if r.HasPODate {
			o.PODate = g[0].PODate
			dates[util.FormatDate(o.PODate)] = struct{}{}
		}
		o.Status = status.Classify(status.AircraftOrder, status.Facts{Ordered: o.OrderQty, Received: o.GRNQty})
		switch o.Status {
		case status.FullyShipped:
			r.Fully = append(r.Fully, order)
		case status.PartiallyShipped:
			r.Partial = append(r.Partial, order)
		case status.NotShipped:
			r.NotShipped = append(r.NotShipped, order)
		}
		r.Orders = append(r.Orders, o)
	}
	for d := range dates {
		r.OrderDates = append(r.OrderDates, d)
	}
	sort.Strings(r.OrderDates)

	r.Lines = len(rows)
	for _, it := range rows {
		f := status.Facts{Ordered: it.OrderQty, Received: it.GRNQty, HasShipment: !util.IsBlankRef(it.ShipmentRef)}
		r.LineCounts[status.Classify(status.AircraftLineLevel, f)]++
	}
	return r
}
