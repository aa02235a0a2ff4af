// Package query routes a free-text question to one of a fixed set of intents.
// Resolution is kept apart from answering so that intent priority can be
// checked without building any report.
package query

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"procure/internal"
	"procure/internal/config"
	"procure/internal/report"
	"procure/internal/tracker"
)

type Intent int

const (
	Unknown Intent = iota
	Unshipped
	PartialGRN
	Supplier
	Part
	Order
	Aircraft
	Monthly
)

var intentNames = map[Intent]string{
	Unknown:    "unknown",
	Unshipped:  "not_shipped",
	PartialGRN: "partial_grn",
	Supplier:   "supplier",
	Part:       "part",
	Order:      "order",
	Aircraft:   "aircraft",
	Monthly:    "monthly_report",
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "unknown"
}

const FallbackMessage = "I didn't understand that. Try keywords like 'partial grn', 'not shipped', 'supplier XYZ', or enter a part number."

// Resolution is the outcome of intent matching. Arg carries what the handler
// needs: supplier text, part or order number, registration, or month.
type Resolution struct {
	Intent Intent
	Query  string
	Arg    string
}

type Options struct {
	RegistrationPrefix string
	Rate               float64
	RateMin            float64
	RateMax            float64
}

type Dispatcher struct {
	opts  Options
	rules []rule
}

type rule struct {
	intent Intent
	match  func(t internal.Table, q string) (string, bool)
}

func New(opts Options) Dispatcher {
	if opts.RegistrationPrefix == "" {
		opts.RegistrationPrefix = "VT-"
	}
	d := Dispatcher{opts: opts}
	d.rules = []rule{
		{Unshipped, contains("not shipped")},
		{PartialGRN, contains("partial grn")},
		{Supplier, matchSupplier},
		{Part, matchPart},
		{Order, matchOrder},
		{Aircraft, d.matchAircraft},
		{Monthly, matchMonthly},
	}
	return d
}

func NewFromConfig(cfg config.Config) Dispatcher {
	return New(Options{
		RegistrationPrefix: cfg.RegistrationPrefix,
		Rate:               cfg.USDINRRate,
		RateMin:            cfg.USDINRRateMin,
		RateMax:            cfg.USDINRRateMax,
	})
}

// WithRate returns a copy that values USD lines at rate.
func (d Dispatcher) WithRate(rate float64) Dispatcher {
	d.opts.Rate = rate
	return d
}

func (d Dispatcher) Options() Options { return d.opts }

func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func contains(keyword string) func(internal.Table, string) (string, bool) {
	return func(_ internal.Table, q string) (string, bool) {
		return "", strings.Contains(q, keyword)
	}
}

func matchSupplier(_ internal.Table, q string) (string, bool) {
	if !strings.Contains(q, "supplier") {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(q, "supplier", ""))), true
}

func singleToken(q string) bool {
	return len(strings.Fields(q)) == 1
}

func matchPart(t internal.Table, q string) (string, bool) {
	if !singleToken(q) || !tracker.HasPart(t, q) {
		return "", false
	}
	return strings.ToUpper(q), true
}

func matchOrder(t internal.Table, q string) (string, bool) {
	if !singleToken(q) || !tracker.HasOrder(t, q) {
		return "", false
	}
	return strings.ToUpper(q), true
}

func (d Dispatcher) matchAircraft(_ internal.Table, q string) (string, bool) {
	if utf8.RuneCountInString(q) != 3 {
		return "", false
	}
	for _, r := range q {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	return tracker.Registration(d.opts.RegistrationPrefix, q), true
}

var (
	reportKeywords = []string{"monthly report", "procurement report", "report"}
	monthToken     = regexp.MustCompile(`\b\d{4}-\d{2}\b`)
)

func matchMonthly(_ internal.Table, q string) (string, bool) {
	for _, kw := range reportKeywords {
		if strings.Contains(q, kw) {
			return monthToken.FindString(q), true
		}
	}
	return "", false
}

// Resolve picks the first intent whose rule matches.
func (d Dispatcher) Resolve(t internal.Table, input string) Resolution {
	q := normalize(input)
	for _, r := range d.rules {
		if arg, ok := r.match(t, q); ok {
			return Resolution{Intent: r.intent, Query: q, Arg: arg}
		}
	}
	return Resolution{Intent: Unknown, Query: q}
}

// Answer builds the report for a resolved question.
func (d Dispatcher) Answer(t internal.Table, r Resolution) (report.Document, error) {
	switch r.Intent {
	case Unshipped:
		return tracker.UnshippedDocument(t), nil
	case PartialGRN:
		return tracker.PartialGRNDocument(t), nil
	case Supplier:
		m, ok := tracker.MatchSupplier(t, r.Arg)
		return tracker.SupplierDocument(t, m, ok), nil
	case Part:
		return tracker.PartDocument(r.Arg, tracker.PartLookup(t, r.Arg)), nil
	case Order:
		detail, _ := tracker.OrderBreakdown(t, r.Arg)
		return tracker.OrderDocument(detail), nil
	case Aircraft:
		return tracker.AircraftDocument(tracker.SummarizeAircraft(t, r.Arg)), nil
	case Monthly:
		if err := tracker.ValidateRate(d.opts.Rate, d.opts.RateMin, d.opts.RateMax); err != nil {
			return report.Document{}, err
		}
		m, err := tracker.BuildMonthly(t, r.Arg, d.opts.Rate)
		if err != nil {
			return report.Document{}, err
		}
		return tracker.MonthlyDocument(m), nil
	}
	return report.Document{Title: "Question", Warnings: []string{FallbackMessage}}, nil
}

func (d Dispatcher) Ask(t internal.Table, input string) (Resolution, report.Document, error) {
	r := d.Resolve(t, input)
	doc, err := d.Answer(t, r)
	return r, doc, err
}
