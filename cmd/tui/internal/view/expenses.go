package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
)

type expensesState int

const (
	expensesStateBrowse expensesState = iota
	expensesStateAdd
)

// ExpensesModel lists the expenses of one cycle and adds new ones.
type ExpensesModel struct {
	CommonModel
	session Session

	state      expensesState
	table      table.Model
	expenses   []*budget.Expense
	categories []*budget.Category
	month      cycle.Month
	form       *huh.Form
	loading    bool
	err        error
	status     string

	add *expenseBinding
}

type expenseBinding struct {
	description string
	amount      string
	date        string
	categoryID  uuid.UUID // uuid.Nil for uncategorized
}

func NewExpensesModel(s Session, month cycle.Month) ExpensesModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Description", Width: 32},
		{Title: "Category", Width: 18},
		{Title: "Amount", Width: 12},
		{Title: "Fixed", Width: 6},
	}

	return ExpensesModel{
		session: s,
		table:   newTable(columns),
		month:   month,
		loading: true,
	}
}

func (m ExpensesModel) Title() string { return "Expenses" }

func (m ExpensesModel) ShortHelp() string {
	if m.state == expensesStateAdd {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | [ ]: previous/next cycle | a: add | x: delete | r: refresh"
}

func (m ExpensesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ExpensesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case expensesLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.expenses = msg.expenses
			m.categories = msg.categories
			m.refreshTable()
		}

		return m, nil

	case expenseSavedMsg:
		m.state = expensesStateBrowse
		m.form = nil
		m.table.Focus()

		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-12, 5))
		return m, nil
	}

	if m.state == expensesStateAdd {
		return m.updateAdd(msg)
	}

	return m.updateBrowse(msg)
}

func (m ExpensesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "[":
			m.month = m.month.Prev()
			m.loading = true

			return m, m.loadCmd()
		case "]":
			m.month = m.month.Next()
			m.loading = true

			return m, m.loadCmd()
		case "a":
			return m.enterAddMode()
		case "x":
			return m, m.deleteCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ExpensesModel) enterAddMode() (tea.Model, tea.Cmd) {
	options := []huh.Option[uuid.UUID]{huh.NewOption("Uncategorized", uuid.Nil)}
	for _, c := range m.categories {
		options = append(options, huh.NewOption(c.Name, c.ID))
	}

	m.add = &expenseBinding{date: FormatDate(time.Now().In(m.session.Location))}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&m.add.description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("description cannot be empty")
					}

					return nil
				}),
			huh.NewInput().
				Title("Amount").
				Placeholder("0.00").
				Value(&m.add.amount).
				Validate(validateAmount),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.add.date).
				Validate(func(s string) error {
					_, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
					return err
				}),
			huh.NewSelect[uuid.UUID]().
				Title("Category").
				Options(options...).
				Value(&m.add.categoryID),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = expensesStateAdd
	m.table.Blur()

	return m, m.form.Init()
}

func (m ExpensesModel) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = expensesStateBrowse
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

	return m, m.createCmd()
}

func (m ExpensesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading expenses...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	total := decimal.Zero
	for _, e := range m.expenses {
		total = total.Add(e.Amount)
	}

	header := fmt.Sprintf("Cycle %s | %d expenses | %s",
		activeStyle(m.month.String()), len(m.expenses), FormatAmount(total))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == expensesStateAdd && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Add Expense\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ExpensesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.expenses))
	for _, e := range m.expenses {
		category := "-"
		if e.CategoryName != nil {
			category = *e.CategoryName
		}

		fixed := ""
		if e.Recurring {
			fixed = "yes"
		}

		rows = append(rows, table.Row{
			FormatDate(e.Date),
			e.Description,
			category,
			FormatAmount(e.Amount),
			fixed,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type expensesLoadedMsg struct {
	expenses   []*budget.Expense
	categories []*budget.Category
	err        error
}

func (m ExpensesModel) loadCmd() tea.Cmd {
	month := m.month

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cats, err := m.session.Budget.ListCategories(ctx, m.session.UserID)
		if err != nil {
			return expensesLoadedMsg{err: err}
		}

		es, err := m.session.Budget.ListExpenses(ctx, m.session.UserID, budget.ExpenseFilter{Month: &month})

		return expensesLoadedMsg{expenses: es, categories: cats, err: err}
	}
}

type expenseSavedMsg struct {
	status string
	err    error
}

func (m ExpensesModel) createCmd() tea.Cmd {
	b := *m.add
	loc := m.session.Location

	return func() tea.Msg {
		date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(b.date), loc)
		if err != nil {
			return expenseSavedMsg{err: err}
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(b.amount))
		if err != nil {
			return expenseSavedMsg{err: err}
		}

		params := budget.CreateExpenseParams{
			Amount:      amount,
			Description: b.description,
			Date:        date,
		}
		if b.categoryID != uuid.Nil {
			params.CategoryID = &b.categoryID
		}

		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.session.Budget.CreateExpense(ctx, m.session.UserID, params); err != nil {
			return expenseSavedMsg{err: err}
		}

		return expenseSavedMsg{status: "Expense added."}
	}
}

func (m ExpensesModel) deleteCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.expenses) {
		return nil
	}

	e := m.expenses[idx]

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.session.Budget.DeleteExpense(ctx, m.session.UserID, e.ID); err != nil {
			return expenseSavedMsg{err: err}
		}

		return expenseSavedMsg{status: fmt.Sprintf("Deleted %q.", e.Description)}
	}
}
