// Package tui is the interactive question box: type a question about the
// loaded tracker snapshot and read the answer as text tables.
package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"procure/internal"
	"procure/internal/query"
	"procure/internal/render"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	intentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	answerBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555")).Padding(0, 1)
)

// AskFunc is told about every answered question; the CLI logs them.
type AskFunc func(question string, r query.Resolution)

type Model struct {
	table    internal.Table
	source   string
	dispatch query.Dispatcher
	onAsk    AskFunc

	input   textinput.Model
	answer  viewport.Model
	history []string
	recall  int

	last  query.Resolution
	asked bool
	err   error

	width  int
	height int
}

func New(table internal.Table, source string, d query.Dispatcher, onAsk AskFunc) *Model {
	in := textinput.New()
	in.Placeholder = "not shipped · partial grn · supplier acme · 8 digit order · part no · abc · monthly 2024-05"
	in.CharLimit = 200
	in.Width = 80
	in.Focus()

	vp := viewport.New(100, 20)
	vp.SetContent(hintStyle.Render("Ask a question and press enter."))

	return &Model{
		table:    table,
		source:   source,
		dispatch: d,
		onAsk:    onAsk,
		input:    in,
		answer:   vp,
		recall:   -1,
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(20, msg.Width-6)
		m.answer.Width = max(20, msg.Width-4)
		m.answer.Height = max(5, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit(m.input.Value())
			return m, nil
		case tea.KeyUp:
			m.recallHistory(1)
			return m, nil
		case tea.KeyDown:
			m.recallHistory(-1)
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.answer, cmd = m.answer.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}
	m.history = append(m.history, question)
	m.recall = -1
	m.input.SetValue("")

	res, doc, err := m.dispatch.Ask(m.table, question)
	m.last, m.asked, m.err = res, true, err
	if err != nil {
		m.answer.SetContent("")
		return
	}
	if m.onAsk != nil {
		m.onAsk(question, res)
	}

	var buf bytes.Buffer
	if err := render.WriteText(doc, &buf); err != nil {
		m.err = err
		m.answer.SetContent("")
		return
	}
	m.answer.SetContent(buf.String())
	m.answer.GotoTop()
}

// recallHistory walks back (step 1) or forward (step -1) through past questions.
func (m *Model) recallHistory(step int) {
	if len(m.history) == 0 {
		return
	}
	next := m.recall + step
	if next < 0 {
		m.recall = -1
		m.input.SetValue("")
		return
	}
	if next >= len(m.history) {
		next = len(m.history) - 1
	}
	m.recall = next
	m.input.SetValue(m.history[len(m.history)-1-next])
	m.input.CursorEnd()
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Procurement Monitoring"))
	b.WriteString(hintStyle.Render(fmt.Sprintf("  %s · %d line items", m.source, len(m.table.Items))))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	case m.asked:
		b.WriteString(intentStyle.Render("intent: " + m.last.Intent.String()))
	}
	b.WriteString("\n")
	b.WriteString(answerBorder.Render(m.answer.View()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter ask · ↑/↓ history · pgup/pgdn scroll · esc quit"))
	return b.String()
}

// Run starts the full-screen program.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
