package tracker

import (
	"fmt"
	"strings"

	"procure/internal"
	"procure/internal/report"
	"procure/internal/status"
	"procure/internal/util"
)

// Section names shared by the renderers, the API and the tests.
const (
	SectionOrderSummary   = "Order Summary"
	SectionNotYetShipped  = "Not Yet Shipped"
	SectionShippedPending = "Shipped - GRN Pending"
	SectionPartialGRN     = "Partial GRN"
	SectionSupplier       = "Supplier Orders"
	SectionPartLookup     = "Part Lookup"
	SectionOrderItems     = "Order Items"
	SectionAircraft       = "Order-wise Summary"
	SectionMonthly        = "Monthly Report"
	SectionNewOrders      = "New Orders"
	SectionShipped        = "Shipped Items"
	SectionGRN            = "GRN Entries"
	SectionStockIn        = "Stock-In Entries"
)

type lineColumn struct {
	name  string
	col   internal.Column
	value func(internal.LineItem) any
}

func col(c internal.Column, value func(internal.LineItem) any) lineColumn {
	return lineColumn{name: string(c), col: c, value: value}
}

var (
	colOrderNo     = col(internal.ColOrderNo, func(it internal.LineItem) any { return it.OrderNo })
	colOrderDate   = col(internal.ColOrderDate, func(it internal.LineItem) any { return it.OrderDate })
	colPartNo      = col(internal.ColPartNo, func(it internal.LineItem) any { return it.PartNo })
	colDescription = col(internal.ColDescription, func(it internal.LineItem) any { return it.Description })
	colSupplier    = col(internal.ColSupplier, func(it internal.LineItem) any { return it.Supplier })
	colOrderQty    = col(internal.ColOrderQty, func(it internal.LineItem) any { return it.OrderQty })
	colGRNQty      = col(internal.ColGRNQty, func(it internal.LineItem) any { return it.GRNQty })
	colStockQty    = col(internal.ColStockQty, func(it internal.LineItem) any { return it.StockQty })
	colShipmentRef = col(internal.ColShipmentRef, func(it internal.LineItem) any { return it.ShipmentRef })
	colTransport   = col(internal.ColTransport, func(it internal.LineItem) any { return it.TransportMode })
	colAircraft    = col(internal.ColAircraftReg, func(it internal.LineItem) any { return it.AircraftReg })
	colRefNo       = col(internal.ColRefNo, func(it internal.LineItem) any { return it.RefNo })
	colPriority    = col(internal.ColPriority, func(it internal.LineItem) any { return it.Priority })
	colQAStatus    = col(internal.ColQAStatus, func(it internal.LineItem) any { return it.QAStatus })
	colDaysPending = lineColumn{name: "Days Pending", value: func(it internal.LineItem) any { return it.DaysPending }}
)

func isAOG(it internal.LineItem) bool {
	return strings.EqualFold(strings.TrimSpace(it.Priority), "AOG")
}

// lineSection lays out raw line items, dropping columns the table lacks.
// extra, when set, appends one trailing column computed per row index.
func lineSection(t internal.Table, name string, cols []lineColumn, items []internal.LineItem, extra string, extraValue func(int) any) report.Section {
	var keep []lineColumn
	for _, c := range cols {
		if c.col == "" || t.Has(c.col) {
			keep = append(keep, c)
		}
	}

	s := report.Section{Name: name}
	for _, c := range keep {
		s.Columns = append(s.Columns, c.name)
	}
	if extra != "" {
		s.Columns = append(s.Columns, extra)
	}
	for i, it := range items {
		row := make([]any, 0, len(s.Columns))
		for _, c := range keep {
			row = append(row, c.value(it))
		}
		if extra != "" {
			row = append(row, extraValue(i))
		}
		if isAOG(it) {
			s.Highlight = append(s.Highlight, len(s.Rows))
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func OrdersSection(name string, orders []OrderSummary) report.Section {
	s := report.Section{
		Name:    name,
		Columns: []string{"Order No.", "Order Date", "Order Qty", "GRN Qty", "Supplier", "QA Status", "Status"},
	}
	for _, o := range orders {
		s.Rows = append(s.Rows, []any{o.OrderNo, o.OrderDate, o.OrderQty, o.GRNQty, o.Supplier, o.QAStatus, string(o.Status)})
	}
	return s
}

func PartsSection(name string, parts []PartSummary) report.Section {
	s := report.Section{
		Name:    name,
		Columns: []string{"Order No.", "Part No.", "Description", "Supplier", "Order Qty", "GRN Qty", string(internal.ColShipmentRef), string(internal.ColTransport)},
	}
	for _, p := range parts {
		s.Rows = append(s.Rows, []any{p.OrderNo, p.PartNo, p.Description, p.Supplier, p.OrderQty, p.GRNQty, p.ShipmentRefs, p.TransportModes})
	}
	return s
}

func UnshippedSection(t internal.Table, lines []internal.LineItem) report.Section {
	cols := []lineColumn{colOrderNo, colOrderDate, colPartNo, colDescription, colSupplier, colOrderQty, colAircraft, colRefNo, colDaysPending}
	return lineSection(t, SectionNotYetShipped, cols, lines, "", nil)
}

// SummaryDocument is the dashboard view: status breakdown, the order summary
// and the two follow-up lists.
func SummaryDocument(t internal.Table) report.Document {
	orders := SummarizeOrders(t)
	doc := report.Document{Title: "Order Summary"}
	doc.Summary = append(doc.Summary, fmt.Sprintf("Total Orders: %d", len(orders)))
	for _, c := range Breakdown(orders) {
		doc.Summary = append(doc.Summary, fmt.Sprintf("%s: %d orders", c.Label, c.Count))
	}
	doc.Sections = []report.Section{
		OrdersSection(SectionOrderSummary, orders),
		UnshippedSection(t, UnshippedLines(t)),
		PartsSection(SectionShippedPending, ShippedPendingGRN(t)),
	}
	return doc
}

// StatusDocument lists the orders carrying one status label.
func StatusDocument(t internal.Table, label status.Label) report.Document {
	orders := FilterByStatus(SummarizeOrders(t), label)
	for i := range orders {
		orders[i].Supplier = util.Ellipsize(orders[i].Supplier, 30)
	}
	return report.Document{
		Title:    fmt.Sprintf("Orders with status %s", label),
		Summary:  []string{fmt.Sprintf("Orders: %d", len(orders))},
		Sections: []report.Section{OrdersSection(string(label), orders)},
	}
}

func UnshippedDocument(t internal.Table) report.Document {
	lines := UnshippedLines(t)
	cols := []lineColumn{colOrderNo, colOrderDate, colPartNo, colDescription, colSupplier, colOrderQty, colGRNQty, colShipmentRef, colTransport, colAircraft, colRefNo, colPriority, colDaysPending}
	return report.Document{
		Title:    "Orders not yet shipped",
		Summary:  []string{fmt.Sprintf("Lines: %d", len(lines))},
		Sections: []report.Section{lineSection(t, SectionNotYetShipped, cols, lines, "", nil)},
	}
}

func PartialGRNDocument(t internal.Table) report.Document {
	parts := PartialGRN(t)
	s := report.Section{Name: SectionPartialGRN, Columns: []string{"Order No.", "Part No.", "Order Qty", "GRN Qty", "Supplier"}}
	for _, p := range parts {
		s.Rows = append(s.Rows, []any{p.OrderNo, p.PartNo, p.OrderQty, p.GRNQty, p.Supplier})
	}
	return report.Document{
		Title:    "Orders with Partial GRN",
		Summary:  []string{fmt.Sprintf("Order lines: %d", len(parts))},
		Sections: []report.Section{s},
	}
}

func SupplierDocument(t internal.Table, m SupplierMatch, found bool) report.Document {
	if !found {
		return report.Document{
			Title:    "Supplier search",
			Warnings: []string{"Supplier name not recognized in your question."},
		}
	}
	cols := []lineColumn{colOrderNo, colSupplier, colPartNo, colDescription, colOrderQty, colGRNQty, colQAStatus, colShipmentRef, colTransport}
	return report.Document{
		Title:    "Orders for Supplier: " + m.Supplier,
		Summary:  []string{fmt.Sprintf("Lines: %d", len(m.Lines))},
		Sections: []report.Section{lineSection(t, SectionSupplier, cols, m.Lines, "", nil)},
	}
}

func PartDocument(part string, rows []PartSummary) report.Document {
	s := report.Section{
		Name:    SectionPartLookup,
		Columns: []string{"Order No.", "Supplier", "Part No.", "Description", "Order Qty", "GRN Qty", "Status", "Unit Price (Currency)"},
	}
	for _, p := range rows {
		s.Rows = append(s.Rows, []any{
			p.OrderNo, util.Truncate(p.Supplier, 16), p.PartNo, p.Description,
			p.OrderQty, p.GRNQty, string(p.Status), util.FormatUnitPrice(p.UnitPrice, p.Currency),
		})
	}
	return report.Document{
		Title:    "Results for Part No: " + util.NormalizeKey(part),
		Sections: []report.Section{s},
	}
}

func OrderDocument(d OrderDetail) report.Document {
	date := "Unknown"
	if d.OrderDate != nil {
		date = util.FormatDate(d.OrderDate)
	}
	headline := fmt.Sprintf("Order No: %s  Order Date: %s  ", d.OrderNo, date)
	if d.FullyShipped {
		headline += "Fully Shipped"
	} else {
		pending := "--"
		if d.DaysPending != nil {
			pending = fmt.Sprintf("%d", *d.DaysPending)
		}
		headline += fmt.Sprintf("Pending: %s days", pending)
	}

	aircraft := "Not Available"
	if len(d.Aircraft) > 0 {
		aircraft = strings.Join(d.Aircraft, ", ")
	}

	doc := report.Document{
		Title: "Order " + d.OrderNo,
		Summary: []string{
			headline,
			"Aircraft Reg. Involved: " + aircraft,
			"Supplier: " + strings.Join(d.Suppliers, ", "),
			"Line Item Status Summary",
			fmt.Sprintf("- %s: %d", status.FullyShipped, d.LineCounts[status.FullyShipped]),
			fmt.Sprintf("- %s: %d", status.PartialGRN, d.LineCounts[status.PartialGRN]),
			fmt.Sprintf("- %s: %d", status.NotShipped, d.LineCounts[status.NotShipped]),
		},
	}

	s := report.Section{
		Name:    SectionOrderItems,
		Notes:   []string{"Items under Order No: " + d.OrderNo},
		Columns: []string{"Part Number", "Description", "Ordered Qty", "GRN Received Qty", "Status"},
	}
	for _, it := range d.Items {
		s.Rows = append(s.Rows, []any{it.PartNo, it.Description, it.OrderQty, it.GRNQty, string(it.Status)})
	}
	doc.Sections = []report.Section{s}
	return doc
}

func listOrNone(orders []string) string {
	if len(orders) == 0 {
		return "None"
	}
	return strings.Join(orders, ", ")
}

func AircraftDocument(r AircraftReport) report.Document {
	doc := report.Document{Title: "Aircraft Summary for " + r.Registration}
	if r.Empty() {
		doc.Warnings = []string{fmt.Sprintf("No dedicated records found for aircraft code '%s'.", r.Registration)}
		return doc
	}

	doc.Summary = append(doc.Summary, fmt.Sprintf("Total Orders Placed: %d", len(r.Orders)))
	if r.HasPODate {
		doc.Summary = append(doc.Summary, "Order Dates: "+strings.Join(r.OrderDates, ", "))
	}
	doc.Summary = append(doc.Summary,
		fmt.Sprintf("Fully Shipped Orders (%d): %s", len(r.Fully), listOrNone(r.Fully)),
		fmt.Sprintf("Partially Shipped Orders (%d): %s", len(r.Partial), listOrNone(r.Partial)),
		fmt.Sprintf("Not Yet Shipped Orders (%d): %s", len(r.NotShipped), listOrNone(r.NotShipped)),
		"Line-Level Summary for "+r.Registration,
		fmt.Sprintf("Total line items: %d", r.Lines),
		fmt.Sprintf("%s: %d", status.NotShipped, r.LineCounts[status.NotShipped]),
		fmt.Sprintf("%s: %d", status.ShippedAwaitGRN, r.LineCounts[status.ShippedAwaitGRN]),
		fmt.Sprintf("%s: %d", status.PartialGRN, r.LineCounts[status.PartialGRN]),
		fmt.Sprintf("%s: %d", status.FullyReceived, r.LineCounts[status.FullyReceived]),
	)

	s := report.Section{Name: SectionAircraft, Columns: []string{"Order No.", "Supplier", "Order Qty", "GRN Qty", "Status"}}
	if r.HasPODate {
		s.Columns = append(s.Columns, "PO Date")
	}
	for _, o := range r.Orders {
		row := []any{o.OrderNo, o.Supplier, o.OrderQty, o.GRNQty, string(o.Status)}
		if r.HasPODate {
			row = append(row, o.PODate)
		}
		s.Rows = append(s.Rows, row)
	}
	doc.Sections = []report.Section{s}
	return doc
}

func MonthlyDocument(r MonthlyReport) report.Document {
	doc := report.Document{
		Title: "Monthly Procurement Report – " + r.Label,
		Summary: []string{
			"Total Procurement Value: " + util.FormatINR(r.Total),
			"7.5% Value: " + util.FormatINR(r.Share),
			r.ExchangeInfo,
		},
	}

	s := report.Section{
		Name:      SectionMonthly,
		Columns:   []string{"S. No.", "Vendor", "Purchase Order", "Part No.", "Description", "Quantity", "Currency", "Unit Value", "Exchange Rate", "Total (₹)"},
		Highlight: r.AOGRows(),
	}
	for i, l := range r.Lines {
		unit, total := "", ""
		if l.UnitPrice != nil {
			unit = util.FormatAmount(l.UnitPrice.InexactFloat64())
		}
		if l.Total != nil {
			total = util.FormatAmount(l.Total.InexactFloat64())
		}
		s.Rows = append(s.Rows, []any{
			i + 1, l.Vendor, l.OrderNo, l.PartNo, l.Description,
			l.Quantity.InexactFloat64(), l.Currency, unit, l.Rate.InexactFloat64(), total,
		})
	}
	doc.Sections = []report.Section{s}
	return doc
}

func ActivityDocument(t internal.Table, a Activity) report.Document {
	doc := report.Document{
		Title: "Daily Procurement Activity Report",
		Summary: []string{
			"Date: " + a.Date.Format(util.DisplayDate),
			fmt.Sprintf("- New Orders: %d rows", len(a.NewOrders)),
			fmt.Sprintf("- Shipped Items: %d rows", len(a.Shipped)),
			fmt.Sprintf("- GRN Entries: %d rows", len(a.GRN)),
			fmt.Sprintf("- Stock-In Entries: %d rows", len(a.StockIn)),
		},
	}
	if a.Empty() {
		doc.Warnings = []string{"No activity found for " + a.Date.Format(util.DisplayDate)}
	}

	refNo := colRefNo
	refNo.name = "Reference No"
	newOrders := lineSection(t, SectionNewOrders,
		[]lineColumn{colOrderNo, refNo, colPartNo, colDescription, colOrderQty, colAircraft, colSupplier, colPriority},
		a.NewOrders, "", nil)
	shipped := lineSection(t, SectionShipped,
		[]lineColumn{colOrderNo, colPartNo, colDescription, colOrderQty, colSupplier, colShipmentRef, colTransport, colPriority},
		a.Shipped, "", nil)

	grnItems := make([]internal.LineItem, len(a.GRN))
	for i, e := range a.GRN {
		grnItems[i] = e.Item
	}
	grn := lineSection(t, SectionGRN,
		[]lineColumn{colOrderNo, colPartNo, colDescription, colOrderQty, colGRNQty, colPriority},
		grnItems, "Status", func(i int) any { return string(a.GRN[i].Status) })

	stockItems := make([]internal.LineItem, len(a.StockIn))
	for i, e := range a.StockIn {
		stockItems[i] = e.Item
	}
	stock := lineSection(t, SectionStockIn,
		[]lineColumn{colOrderNo, colPartNo, colDescription, colOrderQty, colGRNQty, colStockQty, colPriority},
		stockItems, "Status", func(i int) any { return string(a.StockIn[i].Status) })

	doc.Sections = []report.Section{newOrders, shipped, grn, stock}
	return doc
}
