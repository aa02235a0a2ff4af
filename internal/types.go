package internal

import "time"

// Column is the canonical name of a tracker export column.
type Column string

const (
	ColOrderNo      Column = "Order No."
	ColPartNo       Column = "Part No."
	ColDescription  Column = "Description"
	ColOrderDate    Column = "Order Date"
	ColSupplier     Column = "Supplier"
	ColOrderQty     Column = "Order Qty"
	ColGRNQty       Column = "GRN Qty"
	ColStockQty     Column = "Stock Qty"
	ColUnitPrice    Column = "Unit Price"
	ColCurrency     Column = "Currency"
	ColShipmentRef  Column = "MAWB No. / Consignment No./  Bill of Lading No."
	ColShipmentDate Column = "MAWB Date / Consignment Date/  Bill of Lading Date"
	ColGRNDate      Column = "GRN Date"
	ColStockInDate  Column = "Stock-In Date"
	ColTransport    Column = "Mode of Transport"
	ColAircraftReg  Column = "A/C Reg. No"
	ColRefNo        Column = "REF. NO"
	ColPriority     Column = "PRIORITY"
	ColQAStatus     Column = "QA Status"
	ColPODate       Column = "PO Date"
)

var AllColumns = []Column{
	ColOrderNo, ColPartNo, ColDescription, ColOrderDate, ColSupplier,
	ColOrderQty, ColGRNQty, ColStockQty, ColUnitPrice, ColCurrency,
	ColShipmentRef, ColShipmentDate, ColGRNDate, ColStockInDate,
	ColTransport, ColAircraftReg, ColRefNo, ColPriority, ColQAStatus, ColPODate,
}

var RequiredColumns = []Column{ColOrderNo, ColPartNo, ColOrderQty, ColGRNQty}

// ColumnProfile maps a canonical column to the header text used by a given export.
type ColumnProfile map[Column]string

func (p ColumnProfile) Header(col Column) string {
	if h, ok := p[col]; ok && h != "" {
		return h
	}
	return string(col)
}

// RawTable is one sheet exactly as read from the source, before normalization.
type RawTable struct {
	Source string
	Sheet  string
	Header []string
	Rows   [][]string
}

type LineItem struct {
	RowNumber     int
	OrderNo       string
	PartNo        string
	Description   string
	Supplier      string
	OrderDate     *time.Time
	OrderQty      float64
	GRNQty        float64
	StockQty      float64
	UnitPrice     *float64
	Currency      string
	ShipmentRef   string
	ShipmentDate  *time.Time
	GRNDate       *time.Time
	StockInDate   *time.Time
	TransportMode string
	AircraftReg   string
	RefNo         string
	Priority      string
	QAStatus      string
	PODate        *time.Time
	DaysPending   *int
}

// Table is the normalized form every aggregation and query works on.
type Table struct {
	Items   []LineItem
	Present map[Column]bool
	AsOf    time.Time
	// Clamped lists sheet rows whose negative quantities were read as zero.
	Clamped []int
}

func (t Table) Has(col Column) bool {
	return t.Present[col]
}

type ImportRecord struct {
	ID         string
	Source     string
	Sheet      string
	Hash       string
	Rows       int
	EmailID    *int
	ImportedAt string
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type QueryLogRow struct {
	ID        int
	ImportID  string
	Query     string
	Intent    string
	CreatedAt string
}
