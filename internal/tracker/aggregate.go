// Package tracker derives every summary, view and report from a normalized
// table. Nothing here keeps state: each call recomputes from the table it is
// given.
package tracker

import (
	"sort"
	"strings"
	"time"

	"procure/internal"
	"procure/internal/status"
	"procure/internal/util"
)

type OrderSummary struct {
	OrderNo   string
	OrderDate *time.Time
	OrderQty  float64
	GRNQty    float64
	Supplier  string
	QAStatus  string
	Status    status.Label
}

type PartSummary struct {
	OrderNo        string
	PartNo         string
	Description    string
	Supplier       string
	OrderQty       float64
	GRNQty         float64
	ShipmentRefs   string
	TransportModes string
	UnitPrice      *float64
	Currency       string
	Status         status.Label
}

type partKey struct {
	order string
	part  string
}

// orderedQty sums order quantity once per (order, part), keeping the first
// row seen. Repeated rows are shipment or GRN batches of the same line.
func orderedQty(items []internal.LineItem) float64 {
	seen := map[partKey]struct{}{}
	total := 0.0
	for _, it := range items {
		k := partKey{it.OrderNo, it.PartNo}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		total += it.OrderQty
	}
	return total
}

// receivedQty never deduplicates: each row may be a distinct batch.
func receivedQty(items []internal.LineItem) float64 {
	total := 0.0
	for _, it := range items {
		total += it.GRNQty
	}
	return total
}

func groupByOrder(items []internal.LineItem) ([]string, map[string][]internal.LineItem) {
	groups := map[string][]internal.LineItem{}
	for _, it := range items {
		groups[it.OrderNo] = append(groups[it.OrderNo], it)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

func groupByPart(items []internal.LineItem) ([]partKey, map[partKey][]internal.LineItem) {
	groups := map[partKey][]internal.LineItem{}
	for _, it := range items {
		k := partKey{it.OrderNo, it.PartNo}
		groups[k] = append(groups[k], it)
	}
	keys := make([]partKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].order != keys[j].order {
			return keys[i].order < keys[j].order
		}
		return keys[i].part < keys[j].part
	})
	return keys, groups
}

func firstSupplier(items []internal.LineItem) string {
	for _, it := range items {
		if !util.IsBlankRef(it.Supplier) {
			return it.Supplier
		}
	}
	return ""
}

func firstOrderDate(items []internal.LineItem) *time.Time {
	for _, it := range items {
		if it.OrderDate != nil {
			return it.OrderDate
		}
	}
	return nil
}

func qaUnion(items []internal.LineItem) string {
	values := make([]string, 0, len(items))
	for _, it := range items {
		if util.IsBlankRef(it.QAStatus) {
			continue
		}
		values = append(values, strings.ToLower(strings.TrimSpace(it.QAStatus)))
	}
	return util.JoinSet(values, ",")
}

// SummarizeOrders returns one row per order number, sorted by order number.
func SummarizeOrders(t internal.Table) []OrderSummary {
	keys, groups := groupByOrder(t.Items)
	out := make([]OrderSummary, 0, len(keys))
	for _, order := range keys {
		rows := groups[order]
		s := OrderSummary{
			OrderNo:   order,
			OrderDate: firstOrderDate(rows),
			OrderQty:  orderedQty(rows),
			GRNQty:    receivedQty(rows),
			Supplier:  firstSupplier(rows),
			QAStatus:  qaUnion(rows),
		}
		s.Status = status.Classify(status.OrderLevel, status.Facts{Ordered: s.OrderQty, Received: s.GRNQty, QAStatus: s.QAStatus})
		out = append(out, s)
	}
	return out
}

// SummarizeParts returns one row per (order, part), sorted by order then part.
func SummarizeParts(t internal.Table) []PartSummary {
	return summarizeParts(t.Items)
}

func summarizeParts(items []internal.LineItem) []PartSummary {
	keys, groups := groupByPart(items)
	out := make([]PartSummary, 0, len(keys))
	for _, k := range keys {
		rows := groups[k]
		var refs, modes []string
		for _, it := range rows {
			if !util.IsBlankRef(it.ShipmentRef) {
				refs = append(refs, it.ShipmentRef)
			}
			if !util.IsBlankRef(it.TransportMode) {
				modes = append(modes, it.TransportMode)
			}
		}
		s := PartSummary{
			OrderNo:        k.order,
			PartNo:         k.part,
			Supplier:       firstSupplier(rows),
			OrderQty:       orderedQty(rows),
			GRNQty:         receivedQty(rows),
			ShipmentRefs:   util.JoinSet(refs, ", "),
			TransportModes: util.JoinSet(modes, ", "),
		}
		for _, it := range rows {
			if s.Description == "" && strings.TrimSpace(it.Description) != "" {
				s.Description = it.Description
			}
			if s.UnitPrice == nil && it.UnitPrice != nil {
				s.UnitPrice = it.UnitPrice
				s.Currency = it.Currency
			}
		}
		if s.UnitPrice == nil {
			s.Currency = rows[0].Currency
		}
		s.Status = status.Classify(status.PartPerOrder, status.Facts{Ordered: s.OrderQty, Received: s.GRNQty})
		out = append(out, s)
	}
	return out
}

type StatusCount struct {
	Label status.Label
	Count int
}

// Breakdown counts orders per status, most frequent first. Ties keep the
// rule order of the order-level table.
func Breakdown(orders []OrderSummary) []StatusCount {
	counts := map[status.Label]int{}
	for _, o := range orders {
		counts[o.Status]++
	}
	rank := map[status.Label]int{}
	for i, l := range status.Labels(status.OrderLevel) {
		rank[l] = i
	}

	out := make([]StatusCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, StatusCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return rank[out[i].Label] < rank[out[j].Label]
	})
	return out
}

func FilterByStatus(orders []OrderSummary, label status.Label) []OrderSummary {
	var out []OrderSummary
	for _, o := range orders {
		if o.Status == label {
			out = append(out, o)
		}
	}
	return out
}
