package tracker

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"procure/internal"
	"procure/internal/util"
)

var (
	ErrRateOutOfRange = errors.New("exchange rate out of range")
	ErrNoMonthData    = errors.New("no orders in month")
)

var reportShare = decimal.RequireFromString("0.075")

func ValidateRate(rate, min, max float64) error {
	if !(rate >= min && rate <= max) {
		return fmt.Errorf("%w: %.2f not in [%.2f, %.2f]", ErrRateOutOfRange, rate, min, max)
	}
	return nil
}

// Months lists the YYYY-MM keys of all dated orders, ascending.
func Months(t internal.Table) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range t.Items {
		if it.OrderDate == nil {
			continue
		}
		k := util.MonthKey(*it.OrderDate)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NormalizeCurrency buckets everything that is not rupees as USD.
func NormalizeCurrency(c string) string {
	switch util.NormalizeKey(c) {
	case "INR", "INDIAN RUPEE":
		return "INR"
	}
	return "USD"
}

type MonthlyLine struct {
	Vendor      string
	OrderNo     string
	PartNo      string
	Description string
	Quantity    decimal.Decimal
	Currency    string
	UnitPrice   *decimal.Decimal
	Rate        decimal.Decimal
	Total       *decimal.Decimal
	AOG         bool
}

type MonthlyReport struct {
	Month        string
	Label        string
	Rate         decimal.Decimal
	Lines        []MonthlyLine
	Total        decimal.Decimal
	Share        decimal.Decimal
	ExchangeInfo string
}

type monthlyKey struct {
	order, part, currency string
	hasPrice              bool
	price                 float64
}

// BuildMonthly values one month of orders in rupees. An empty month selects
// the latest month present. Lines without a unit price are listed but carry
// no total.
func BuildMonthly(t internal.Table, month string, rate float64) (MonthlyReport, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return MonthlyReport{}, fmt.Errorf("%w: %v", ErrRateOutOfRange, rate)
	}
	months := Months(t)
	if len(months) == 0 {
		return MonthlyReport{}, fmt.Errorf("%w: table has no order dates", ErrNoMonthData)
	}
	month = strings.TrimSpace(month)
	if month == "" {
		month = months[len(months)-1]
	}
	start, err := time.ParseInLocation("2006-01", month, t.AsOf.Location())
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("month %q: want YYYY-MM", month)
	}

	r := MonthlyReport{
		Month: month,
		Label: start.Format("January 2006"),
		Rate:  decimal.NewFromFloat(rate),
		Total: decimal.Zero,
	}
	last := util.LastDayOfMonth(start.Year(), start.Month())
	r.ExchangeInfo = fmt.Sprintf("Exchange rate used as on %s: USD 1 = INR %.2f", last.Format(util.DisplayDate), rate)

	seen := map[monthlyKey]struct{}{}
	for _, it := range t.Items {
		if it.OrderDate == nil || util.MonthKey(*it.OrderDate) != month {
			continue
		}
		currency := NormalizeCurrency(it.Currency)
		k := monthlyKey{order: it.OrderNo, part: it.PartNo, currency: currency}
		if it.UnitPrice != nil {
			k.hasPrice, k.price = true, *it.UnitPrice
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		line := MonthlyLine{
			Vendor:      it.Supplier,
			OrderNo:     it.OrderNo,
			PartNo:      it.PartNo,
			Description: it.Description,
			Quantity:    decimal.NewFromFloat(it.OrderQty),
			Currency:    currency,
			Rate:        decimal.NewFromInt(1),
			AOG:         strings.EqualFold(strings.TrimSpace(it.Priority), "AOG"),
		}
		if currency == "USD" {
			line.Rate = r.Rate
		}
		if it.UnitPrice != nil {
			price := decimal.NewFromFloat(*it.UnitPrice)
			total := line.Quantity.Mul(price).Mul(line.Rate)
			line.UnitPrice = &price
			line.Total = &total
			r.Total = r.Total.Add(total)
		}
		r.Lines = append(r.Lines, line)
	}
	if len(r.Lines) == 0 {
		return MonthlyReport{}, fmt.Errorf("%w: %s", ErrNoMonthData, month)
	}
	r.Share = r.Total.Mul(reportShare)
	return r, nil
}

// AOGRows returns the indexes of AOG lines.
func (r MonthlyReport) AOGRows() []int {
	var out []int
	for i, l := range r.Lines {
		if l.AOG {
			out = append(out, i)
		}
	}
	return out
}
