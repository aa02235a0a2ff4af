package tracker

import (
	"sort"
	"time"

	"procure/internal"
	"procure/internal/status"
	"procure/internal/util"
)

type Entry struct {
	Item   internal.LineItem
	Status status.Label
}

type Activity struct {
	Date      time.Time
	NewOrders []internal.LineItem
	Shipped   []internal.LineItem
	GRN       []Entry
	StockIn   []Entry
}

func (a Activity) Empty() bool {
	return len(a.NewOrders) == 0 && len(a.Shipped) == 0 && len(a.GRN) == 0 && len(a.StockIn) == 0
}

// ActivityRange is the earliest and latest date found in any of the order,
// shipment, GRN and stock-in columns.
func ActivityRange(t internal.Table) (time.Time, time.Time, bool) {
	var from, to time.Time
	found := false
	for _, it := range t.Items {
		for _, d := range []*time.Time{it.OrderDate, it.ShipmentDate, it.GRNDate, it.StockInDate} {
			if d == nil {
				continue
			}
			if !found || d.Before(from) {
				from = *d
			}
			if !found || d.After(to) {
				to = *d
			}
			found = true
		}
	}
	return from, to, found
}

var grnOrder = map[status.Label]int{status.FullyReceived: 0, status.PartialGRN: 1, status.NotShipped: 2}

// BuildActivity collects what happened on day across the four date columns.
func BuildActivity(t internal.Table, day time.Time) Activity {
	a := Activity{Date: day}
	on := func(d *time.Time) bool { return d != nil && util.SameDay(*d, day) }

	for _, it := range t.Items {
		if on(it.OrderDate) {
			a.NewOrders = append(a.NewOrders, it)
		}
		if on(it.ShipmentDate) {
			a.Shipped = append(a.Shipped, it)
		}
		if on(it.GRNDate) {
			label := status.Classify(status.GRNEntry, status.Facts{Ordered: it.OrderQty, Received: it.GRNQty})
			a.GRN = append(a.GRN, Entry{Item: it, Status: label})
		}
		if on(it.StockInDate) {
			label := status.Classify(status.StockIn, status.Facts{Received: it.GRNQty, Stocked: it.StockQty})
			a.StockIn = append(a.StockIn, Entry{Item: it, Status: label})
		}
	}
	sort.SliceStable(a.GRN, func(i, j int) bool {
		return grnOrder[a.GRN[i].Status] < grnOrder[a.GRN[j].Status]
	})
	return a
}
