// Package status holds the classification rule tables. Each context is an
// ordered list of rules; the first rule whose condition holds names the label.
package status

import "strings"

type Label string

const (
	ShippedNoGRN      Label = "Shipped - No GRN"
	NoItemShipped     Label = "No Item Shipped"
	ShippedPartialGRN Label = "Shipped - Partial GRN"
	GRNOverOrdered    Label = "GRN > Ordered – Check"
	AllOK             Label = "All OK"
	CheckManually     Label = "Check Manually"

	NotShipped   Label = "Not Shipped"
	PartialGRN   Label = "Partial GRN"
	FullyShipped Label = "Fully Shipped"

	NotYetShipped Label = "Not Yet Shipped"
	FullyReceived Label = "Fully Received"

	NotStocked     Label = "Not Stocked"
	PartialStocked Label = "Partial Stocked"
	FullyStocked   Label = "Fully Stocked"

	PartiallyShipped Label = "Partially Shipped"
	ShippedAwaitGRN  Label = "Shipped – No GRN"
)

type Context string

const (
	OrderLevel        Context = "order"
	LineLevel         Context = "line"
	PartPerOrder      Context = "part_per_order"
	GRNEntry          Context = "grn_entry"
	StockIn           Context = "stock_in"
	AircraftOrder     Context = "aircraft_order"
	AircraftLineLevel Context = "aircraft_line"
)

// Facts are the inputs every rule may look at.
type Facts struct {
	Ordered     float64
	Received    float64
	Stocked     float64
	QAStatus    string
	HasShipment bool
}

func (f Facts) approved() bool {
	return strings.Contains(strings.ToLower(f.QAStatus), "approved")
}

type Rule struct {
	Label Label
	When  func(Facts) bool
}

func always(Facts) bool { return true }

var tables = map[Context][]Rule{
	OrderLevel: {
		{ShippedNoGRN, func(f Facts) bool { return f.Received == 0 && f.approved() }},
		{NoItemShipped, func(f Facts) bool { return f.Received == 0 }},
		{ShippedPartialGRN, func(f Facts) bool { return f.Received < f.Ordered }},
		{GRNOverOrdered, func(f Facts) bool { return f.Received > f.Ordered }},
		{AllOK, func(f Facts) bool { return f.Received >= f.Ordered && f.approved() }},
		{CheckManually, always},
	},
	LineLevel: {
		{NotShipped, func(f Facts) bool { return f.Received == 0 }},
		{PartialGRN, func(f Facts) bool { return f.Received < f.Ordered }},
		{FullyShipped, always},
	},
	PartPerOrder: {
		{NotYetShipped, func(f Facts) bool { return f.Received == 0 }},
		{PartialGRN, func(f Facts) bool { return f.Received < f.Ordered }},
		{FullyReceived, always},
	},
	GRNEntry: {
		{NotShipped, func(f Facts) bool { return f.Received == 0 }},
		{PartialGRN, func(f Facts) bool { return f.Received < f.Ordered }},
		{FullyReceived, always},
	},
	StockIn: {
		{NotStocked, func(f Facts) bool { return f.Stocked == 0 }},
		{PartialStocked, func(f Facts) bool { return f.Stocked < f.Received }},
		{FullyStocked, always},
	},
	AircraftOrder: {
		{NotShipped, func(f Facts) bool { return f.Received == 0 }},
		{PartiallyShipped, func(f Facts) bool { return f.Received < f.Ordered }},
		{FullyShipped, always},
	},
	AircraftLineLevel: {
		{NotShipped, func(f Facts) bool { return !f.HasShipment && f.Received == 0 }},
		{ShippedAwaitGRN, func(f Facts) bool { return f.HasShipment && f.Received == 0 }},
		{PartialGRN, func(f Facts) bool { return f.HasShipment && f.Received > 0 && f.Received < f.Ordered }},
		{FullyReceived, func(f Facts) bool { return f.HasShipment && f.Received >= f.Ordered }},
		{CheckManually, always},
	},
}

// Classify returns the label of the first matching rule. Every table ends in a
// catch-all, so the result is never empty for a known context.
func Classify(ctx Context, f Facts) Label {
	for _, rule := range tables[ctx] {
		if rule.When(f) {
			return rule.Label
		}
	}
	return CheckManually
}

// Labels lists the labels of ctx in rule order.
func Labels(ctx Context) []Label {
	rules := tables[ctx]
	out := make([]Label, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Label)
	}
	return out
}

func Contexts() []Context {
	return []Context{OrderLevel, LineLevel, PartPerOrder, GRNEntry, StockIn, AircraftOrder, AircraftLineLevel}
}
