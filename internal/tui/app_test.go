package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"procure/internal"
	"procure/internal/query"
)

func testTable() internal.Table {
	return internal.Table{
		Items: []internal.LineItem{
			{OrderNo: "100", PartNo: "P1", Supplier: "ACME", OrderQty: 5, GRNQty: 5, ShipmentRef: "AWB1"},
			{OrderNo: "100", PartNo: "P2", Supplier: "ACME", OrderQty: 5, GRNQty: 2, ShipmentRef: "AWB1"},
		},
		Present: map[internal.Column]bool{
			internal.ColOrderNo: true, internal.ColPartNo: true, internal.ColSupplier: true,
			internal.ColOrderQty: true, internal.ColGRNQty: true, internal.ColShipmentRef: true,
		},
	}
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestAskShowsAnswer(t *testing.T) {
	var logged []string
	m := New(testTable(), "csv:tracker.csv", query.New(query.Options{}), func(q string, r query.Resolution) {
		logged = append(logged, q+"="+r.Intent.String())
	})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	typeText(m, "partial grn")
	if m.input.Value() != "partial grn" {
		t.Fatalf("input=%q", m.input.Value())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
	if m.last.Intent != query.PartialGRN {
		t.Fatalf("intent=%v", m.last.Intent)
	}
	if len(logged) != 1 || logged[0] != "partial grn=partial_grn" {
		t.Fatalf("logged=%v", logged)
	}
	view := m.View()
	if !strings.Contains(view, "intent: partial_grn") || !strings.Contains(view, "P2") {
		t.Fatalf("view=%s", view)
	}
}

func TestHistoryRecall(t *testing.T) {
	m := New(testTable(), "x", query.New(query.Options{}), nil)
	for _, q := range []string{"not shipped", "partial grn"} {
		typeText(m, q)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "partial grn" {
		t.Fatalf("first recall=%q", m.input.Value())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "not shipped" {
		t.Fatalf("second recall=%q", m.input.Value())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.input.Value() != "" {
		t.Fatalf("after down=%q", m.input.Value())
	}
}

func TestQuitKeys(t *testing.T) {
	m := New(testTable(), "x", query.New(query.Options{}), nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected QuitMsg")
	}
}

func TestMonthlyErrorIsShown(t *testing.T) {
	m := New(testTable(), "x", query.New(query.Options{Rate: 84, RateMin: 50, RateMax: 200}), nil)
	typeText(m, "monthly report")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.err == nil {
		t.Fatal("expected error for table without order dates")
	}
	if !strings.Contains(m.View(), "error:") {
		t.Fatal("error not rendered")
	}
}
