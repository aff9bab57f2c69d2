package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

type dashboardState int

const (
	dashboardStateBrowse dashboardState = iota
	dashboardStateMove
)

// DashboardModel shows the category totals of one cycle and moves budget
// between categories.
type DashboardModel struct {
	CommonModel
	session Session

	state   dashboardState
	table   table.Model
	stats   *budget.Stats
	month   *cycle.Month
	form    *huh.Form
	loading bool
	err     error
	status  string

	move *moveBinding
}

// moveBinding holds the form values behind a pointer so that copies of the
// model share them.
type moveBinding struct {
	from   uuid.UUID
	to     uuid.UUID
	amount string
}

func NewDashboardModel(s Session) DashboardModel {
	columns := []table.Column{
		{Title: "Category", Width: 20},
		{Title: "Budget", Width: 12},
		{Title: "Spent", Width: 12},
		{Title: "Remaining", Width: 12},
		{Title: "", Width: 6},
	}

	return DashboardModel{
		session: s,
		table:   newTable(columns),
		loading: true,
	}
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func (m DashboardModel) Title() string { return "Budget Dashboard" }

func (m DashboardModel) ShortHelp() string {
	if m.state == dashboardStateMove {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | [ ]: previous/next cycle | m: move budget | r: refresh"
}

func (m DashboardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statsLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.stats = msg.stats
			m.refreshTable()
		}

		return m, nil

	case moveDoneMsg:
		m.state = dashboardStateBrowse
		m.form = nil
		m.table.Focus()

		m.status = "Budget moved."
		if msg.err != nil {
			m.status = fmt.Sprintf("Error moving budget: %v", msg.err)
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-14, 5))
		return m, nil
	}

	if m.state == dashboardStateMove {
		return m.updateMove(msg)
	}

	return m.updateBrowse(msg)
}

func (m DashboardModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "[":
			return m.shiftMonth(-1)
		case "]":
			return m.shiftMonth(1)
		case "m":
			return m.enterMoveMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DashboardModel) shiftMonth(delta int) (tea.Model, tea.Cmd) {
	if m.stats == nil {
		return m, nil
	}

	month := m.stats.Period.Month()
	if delta < 0 {
		month = month.Prev()
	} else {
		month = month.Next()
	}

	m.month = &month
	m.loading = true

	return m, m.loadCmd()
}

func (m DashboardModel) enterMoveMode() (tea.Model, tea.Cmd) {
	if m.stats == nil || len(m.stats.Categories) < 2 {
		m.status = "Moving budget needs at least two categories."
		return m, nil
	}

	options := make([]huh.Option[uuid.UUID], len(m.stats.Categories))
	for i, c := range m.stats.Categories {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s)", c.Name, FormatAmount(c.BudgetLimit)), c.ID)
	}

	m.move = &moveBinding{}
	if idx := m.table.Cursor(); idx >= 0 && idx < len(m.stats.Categories) {
		m.move.from = m.stats.Categories[idx].ID
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().
				Title("From").
				Options(options...).
				Value(&m.move.from),
			huh.NewSelect[uuid.UUID]().
				Title("To").
				Options(options...).
				Value(&m.move.to),
			huh.NewInput().
				Title("Amount").
				Placeholder("0.00").
				Value(&m.move.amount).
				Validate(validateAmount),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = dashboardStateMove
	m.table.Blur()

	return m, m.form.Init()
}

func (m DashboardModel) updateMove(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = dashboardStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.moveCmd()
}

func (m DashboardModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading cycle...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	p := m.stats.Period
	header := fmt.Sprintf("Cycle %s  (%s to %s)",
		activeStyle(p.Month().String()), FormatDate(p.Start), FormatDate(p.End.AddDate(0, 0, -1)))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	totals := fmt.Sprintf("Budget %s | Spent %s | Left %s",
		FormatAmount(m.stats.TotalBudget), FormatAmount(m.stats.TotalSpent), remainingStyle(m.stats.Remaining))
	if !m.stats.Uncategorized.IsZero() {
		totals += fmt.Sprintf(" | Uncategorized %s", FormatAmount(m.stats.Uncategorized))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
		totals,
	)

	if m.state == dashboardStateMove && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Move Budget\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func remainingStyle(d decimal.Decimal) string {
	if d.IsNegative() {
		return errorStyle.Render(FormatAmount(d))
	}

	return successStyle.Render(FormatAmount(d))
}

func (m *DashboardModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.stats.Categories))
	for _, c := range m.stats.Categories {
		flag := ""
		if c.OverBudget() {
			flag = "OVER"
		}

		rows = append(rows, table.Row{
			c.Name,
			FormatAmount(c.BudgetLimit),
			FormatAmount(c.Spent),
			FormatAmount(c.Remaining),
			flag,
		})
	}

	m.table.SetRows(rows)
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a number like 120.50")
	}

	if !d.IsPositive() {
		return errors.New("amount must be greater than zero")
	}

	return nil
}

// Messages

type statsLoadedMsg struct {
	stats *budget.Stats
	err   error
}

func (m DashboardModel) loadCmd() tea.Cmd {
	month := m.month

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		stats, err := m.session.Budget.MonthlyStats(ctx, m.session.UserID, month)

		return statsLoadedMsg{stats: stats, err: err}
	}
}

type moveDoneMsg struct {
	err error
}

func (m DashboardModel) moveCmd() tea.Cmd {
	params := budget.MoveParams{
		FromCategoryID: m.move.from,
		ToCategoryID:   m.move.to,
		Amount:         decimal.RequireFromString(strings.TrimSpace(m.move.amount)),
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return moveDoneMsg{err: m.session.Budget.MoveBudget(ctx, m.session.UserID, params)}
	}
}
