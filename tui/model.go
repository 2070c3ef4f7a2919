// Package tui is the interactive terminal front end of the calculator.
package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"loan-calculator/render"
	"loan-calculator/service"
)

type field int

const (
	fieldProduct field = iota
	fieldPrincipal
	fieldMonths
	fieldStartDate
	fieldCount
)

type (
	catalogLoadedMsg struct{ err error }
	calculatedMsg    struct{ err error }
	exportedMsg      struct {
		path string
		err  error
	}
)

type Options struct {
	Styles    render.Styles
	ExportDir string
	Log       *zap.Logger
}

// Model wraps a service.Controller. The controller owns all form state; the
// text inputs only mirror it for editing.
type Model struct {
	ctx       context.Context
	ctrl      *service.Controller
	styles    render.Styles
	exportDir string
	log       *zap.Logger

	inputs  map[field]*textinput.Model
	spinner spinner.Model
	focus   field
	status  string
	width   int
}

func New(ctx context.Context, ctrl *service.Controller, opts Options) Model {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	newInput := func(placeholder string, limit int) *textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = limit
		ti.Prompt = ""
		ti.Width = 24
		return &ti
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Styles.Focused

	return Model{
		ctx:       ctx,
		ctrl:      ctrl,
		styles:    opts.Styles,
		exportDir: opts.ExportDir,
		log:       opts.Log,
		inputs: map[field]*textinput.Model{
			fieldPrincipal: newInput("e.g. 50000", 18),
			fieldMonths:    newInput("months", 4),
			fieldStartDate: newInput("YYYY-MM-DD", 10),
		},
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCatalog())
}

func (m Model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		return catalogLoadedMsg{err: m.ctrl.LoadProducts(m.ctx)}
	}
}

func (m Model) reset() tea.Cmd {
	return func() tea.Msg {
		return catalogLoadedMsg{err: m.ctrl.Reset(m.ctx)}
	}
}

func (m Model) calculate() tea.Cmd {
	return func() tea.Msg {
		return calculatedMsg{err: m.ctrl.Calculate(m.ctx)}
	}
}

func (m Model) export() tea.Cmd {
	v := m.ctrl.Snapshot()
	if v.Result == nil || len(v.Result.Schedule) == 0 {
		return nil
	}
	path := filepath.Join(m.exportDir, render.CSVFilename(v.SelectedKey))
	schedule := v.Result.Schedule
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		err = render.WriteCSV(f, schedule)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return exportedMsg{path: path, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case catalogLoadedMsg:
		if msg.err != nil && !errors.Is(msg.err, service.ErrResultDiscarded) {
			m.log.Debug("catalog load failed", zap.Error(msg.err))
		}
		m.syncInputs()
		return m, nil

	case calculatedMsg:
		if msg.err != nil && !errors.Is(msg.err, service.ErrResultDiscarded) {
			m.log.Debug("calculation failed", zap.Error(msg.err))
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Saved " + msg.path
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	busy := m.ctrl.Snapshot().Loading()

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+r":
		m.status = ""
		return m, m.reset()
	case "ctrl+e":
		return m, m.export()
	case "tab", "down":
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case "enter":
		if busy || !m.ctrl.CanCalculate() {
			return m, nil
		}
		m.status = ""
		return m, m.calculate()
	}

	if busy {
		return m, nil
	}

	if m.focus == fieldProduct {
		switch msg.String() {
		case "left", "h":
			m.cycleProduct(-1)
		case "right", "l":
			m.cycleProduct(1)
		}
		return m, nil
	}

	in := m.inputs[m.focus]
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	m.pushInput(m.focus)
	return m, cmd
}

func (m *Model) setFocus(f field) {
	for k, in := range m.inputs {
		if k == f {
			in.Focus()
		} else {
			in.Blur()
		}
	}
	m.focus = f
}

func (m *Model) cycleProduct(step int) {
	v := m.ctrl.Snapshot()
	n := len(v.Products)
	if n == 0 {
		return
	}
	idx := 0
	for i, p := range v.Products {
		if p.ProductKey == v.SelectedKey {
			idx = i
			break
		}
	}
	next := v.Products[(idx+step+n)%n]
	if err := m.ctrl.SelectProduct(next.ProductKey); err != nil {
		m.log.Debug("select product", zap.Error(err))
		return
	}
	m.syncInputs()
}

func (m *Model) pushInput(f field) {
	value := m.inputs[f].Value()
	var err error
	switch f {
	case fieldPrincipal:
		err = m.ctrl.SetPrincipal(value)
	case fieldMonths:
		err = m.ctrl.SetMonths(value)
	case fieldStartDate:
		err = m.ctrl.SetStartDate(value)
	}
	if err != nil {
		m.syncInputs()
	}
}

// syncInputs copies the controller's field values into the text inputs.
func (m *Model) syncInputs() {
	v := m.ctrl.Snapshot()
	m.inputs[fieldPrincipal].SetValue(v.Principal)
	m.inputs[fieldMonths].SetValue(v.Months)
	m.inputs[fieldStartDate].SetValue(v.StartDate)
}

func (m Model) View() string {
	v := m.ctrl.Snapshot()
	page := render.BuildPage(v)
	s := m.styles

	var sb strings.Builder
	sb.WriteString(s.Title.Render(render.Title) + "\n")
	sb.WriteString(s.Subtitle.Render(render.Subtitle) + "\n\n")

	label := func(f field, text string) string {
		if m.focus == f {
			return s.Focused.Render("> " + text)
		}
		return s.Label.Render("  " + text)
	}
	row := func(l, value string) {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(22).Render(l), value))
		sb.WriteString("\n")
	}

	product := page.Products[0].Label
	for _, o := range page.Products {
		if o.Selected {
			product = o.Label
		}
	}
	if page.ProductsEnabled {
		product = "‹ " + product + " ›"
	}
	row(label(fieldProduct, "Loan Type"), s.Value.Render(product))
	row(s.Label.Render("  Rate (per month)"), s.Value.Render(page.RateLabel))
	row(s.Label.Render("  Default Months"), s.Value.Render(page.DefaultMonths))
	row(label(fieldPrincipal, "Principal (KES)"), m.inputs[fieldPrincipal].View())
	row(label(fieldMonths, "Months"), m.inputs[fieldMonths].View())
	row(label(fieldStartDate, "Start Date"), m.inputs[fieldStartDate].View())
	sb.WriteString("\n")

	button := "[ " + page.CalculateLabel + " ]"
	if page.Loading {
		button = m.spinner.View() + " " + page.CalculateLabel
	} else if !page.CalculateEnabled {
		button = s.Muted.Render(button)
	}
	sb.WriteString(button + "\n")
	if page.Error != "" {
		sb.WriteString(s.Alert.Render(page.Error) + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(s.CardHead.Render("Summary") + "\n")
	sb.WriteString(render.Summary(page, s) + "\n\n")
	sb.WriteString(s.CardHead.Render("Repayment Schedule") + "\n")
	sb.WriteString(render.Schedule(page, s) + "\n\n")
	sb.WriteString(s.Muted.Render(render.Note) + "\n")

	help := "tab: next field • ←/→: loan type • enter: calculate • ctrl+r: reset • esc: quit"
	if page.CanExport {
		help = "tab: next field • ←/→: loan type • enter: calculate • ctrl+e: export csv • ctrl+r: reset • esc: quit"
	}
	sb.WriteString(s.Muted.Render(help) + "\n")
	if m.status != "" {
		sb.WriteString(m.status + "\n")
	}
	return sb.String()
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, ctrl *service.Controller, opts Options) error {
	_, err := tea.NewProgram(New(ctx, ctrl, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
