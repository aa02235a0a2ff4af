package tracker

import (
	"sort"
	"strings"
	"time"

	"procure/internal"
	"procure/internal/status"
	"procure/internal/util"
)

// Unshipped reports a line with nothing received and no shipment reference.
func Unshipped(it internal.LineItem) bool {
	return it.GRNQty == 0 && util.IsBlankRef(it.ShipmentRef)
}

func UnshippedLines(t internal.Table) []internal.LineItem {
	var out []internal.LineItem
	for _, it := range t.Items {
		if Unshipped(it) {
			out = append(out, it)
		}
	}
	return out
}

// UnshippedOrders lists, sorted, the orders that have at least one unshipped line.
func UnshippedOrders(t internal.Table) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range UnshippedLines(t) {
		if _, ok := seen[it.OrderNo]; ok {
			continue
		}
		seen[it.OrderNo] = struct{}{}
		out = append(out, it.OrderNo)
	}
	sort.Strings(out)
	return out
}

func UnshippedForOrder(t internal.Table, orderNo string) []internal.LineItem {
	orderNo = util.NormalizeKey(orderNo)
	var out []internal.LineItem
	for _, it := range UnshippedLines(t) {
		if it.OrderNo == orderNo {
			out = append(out, it)
		}
	}
	return out
}

// PartialGRN lists (order, part) groups whose ordered and received totals differ.
func PartialGRN(t internal.Table) []PartSummary {
	var out []PartSummary
	for _, p := range SummarizeParts(t) {
		if p.OrderQty != p.GRNQty {
			out = append(out, p)
		}
	}
	return out
}

// ShippedPendingGRN narrows PartialGRN to groups that show shipment evidence.
func ShippedPendingGRN(t internal.Table) []PartSummary {
	var out []PartSummary
	for _, p := range PartialGRN(t) {
		if p.ShipmentRefs != "" || p.TransportModes != "" {
			out = append(out, p)
		}
	}
	return out
}

type SupplierMatch struct {
	Query    string
	Supplier string
	Lines    []internal.LineItem
}

// MatchSupplier substring-matches query against upper-cased suppliers. An
// empty query is a substring of every supplier, so it lists all lines.
func MatchSupplier(t internal.Table, query string) (SupplierMatch, bool) {
	q := util.NormalizeKey(query)
	m := SupplierMatch{Query: q}
	for _, it := range t.Items {
		if strings.Contains(util.NormalizeKey(it.Supplier), q) {
			if m.Supplier == "" {
				m.Supplier = it.Supplier
			}
			m.Lines = append(m.Lines, it)
		}
	}
	return m, len(m.Lines) > 0
}

func HasPart(t internal.Table, part string) bool {
	part = util.NormalizeKey(part)
	for _, it := range t.Items {
		if it.PartNo == part {
			return true
		}
	}
	return false
}

func HasOrder(t internal.Table, order string) bool {
	order = util.NormalizeKey(order)
	for _, it := range t.Items {
		if it.OrderNo == order {
			return true
		}
	}
	return false
}

// PartLookup returns the part's status in every order it appears in, in the
// order the orders first appear.
func PartLookup(t internal.Table, part string) []PartSummary {
	part = util.NormalizeKey(part)
	var rows []internal.LineItem
	for _, it := range t.Items {
		if it.PartNo == part {
			rows = append(rows, it)
		}
	}
	summaries := summarizeParts(rows)
	first := map[string]int{}
	for i, it := range rows {
		if _, ok := first[it.OrderNo]; !ok {
			first[it.OrderNo] = i
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return first[summaries[i].OrderNo] < first[summaries[j].OrderNo]
	})
	return summaries
}

type OrderItem struct {
	PartNo      string
	Description string
	OrderQty    float64
	GRNQty      float64
	Status      status.Label
}

type OrderDetail struct {
	OrderNo      string
	OrderDate    *time.Time
	OrderQty     float64
	GRNQty       float64
	FullyShipped bool
	DaysPending  *int
	Aircraft     []string
	Suppliers    []string
	LineCounts   map[status.Label]int
	Items        []OrderItem
}

// OrderBreakdown details one order. The order date is the first row's;
// days pending is only set while the order is not fully shipped.
func OrderBreakdown(t internal.Table, orderNo string) (OrderDetail, bool) {
	orderNo = util.NormalizeKey(orderNo)
	var rows []internal.LineItem
	for _, it := range t.Items {
		if it.OrderNo == orderNo {
			rows = append(rows, it)
		}
	}
	if len(rows) == 0 {
		return OrderDetail{}, false
	}

	d := OrderDetail{
		OrderNo:    orderNo,
		OrderDate:  rows[0].OrderDate,
		OrderQty:   orderedQty(rows),
		GRNQty:     receivedQty(rows),
		LineCounts: map[status.Label]int{},
	}
	d.FullyShipped = d.GRNQty >= d.OrderQty
	if !d.FullyShipped && d.OrderDate != nil {
		days := util.DaysBetween(*d.OrderDate, t.AsOf)
		d.DaysPending = &days
	}

	seenAC := map[string]struct{}{}
	seenSup := map[string]struct{}{}
	for _, it := range rows {
		if ac := strings.TrimSpace(it.AircraftReg); !util.IsBlankRef(ac) {
			if _, ok := seenAC[ac]; !ok {
				seenAC[ac] = struct{}{}
				d.Aircraft = append(d.Aircraft, ac)
			}
		}
		if sup := strings.TrimSpace(it.Supplier); !util.IsBlankRef(sup) {
			if _, ok := seenSup[sup]; !ok {
				seenSup[sup] = struct{}{}
				d.Suppliers = append(d.Suppliers, sup)
			}
		}
		d.LineCounts[status.Classify(status.LineLevel, status.Facts{Ordered: it.OrderQty, Received: it.GRNQty})]++
	}

	byPart := map[string]int{}
	for _, it := range rows {
		if i, ok := byPart[it.PartNo]; ok {
			d.Items[i].GRNQty += it.GRNQty
			continue
		}
		byPart[it.PartNo] = len(d.Items)
		d.Items = append(d.Items, OrderItem{PartNo: it.PartNo, Description: it.Description, OrderQty: it.OrderQty, GRNQty: it.GRNQty})
	}
	for i := range d.Items {
		d.Items[i].Status = status.Classify(status.LineLevel, status.Facts{Ordered: d.Items[i].OrderQty, Received: d.Items[i].GRNQty})
	}
	sort.SliceStable(d.Items, func(i, j int) bool { return d.Items[i].Status > d.Items[j].Status })
	return d, true
}
