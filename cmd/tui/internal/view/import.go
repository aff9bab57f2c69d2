package view

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/importer"
)

const importTimeout = 2 * time.Minute

type importStep int

const (
	importStepFormat importStep = iota
	importStepFile
	importStepParsing
	importStepReview
	importStepDone
)

// ImportModel reads a bank statement, applies the learned descriptions and
// lets the user pick which possible duplicates to keep before saving.
type ImportModel struct {
	CommonModel
	session Session

	step    importStep
	form    *huh.Form
	format  *importer.Format
	picker  filepicker.Model
	spinner spinner.Model

	rows  []importRow
	table table.Model

	status string
	err    error
}

// importRow is a parsed statement line waiting to be saved.
type importRow struct {
	params    budget.CreateExpenseParams
	category  string
	duplicate *budget.Expense
	keep      bool
}

func NewImportModel(s Session) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := ImportModel{
		session: s,
		format:  new(importer.FormatCSV),
		picker:  fp,
		spinner: sp,
	}
	m.form = m.formatForm()

	return m
}

func (m ImportModel) formatForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[importer.Format]().
				Title("Statement format").
				Options(
					huh.NewOption("CSV export", importer.FormatCSV),
					huh.NewOption("OFX / QFX", importer.FormatOFX),
				).
				Value(m.format),
		),
	).WithWidth(40).WithShowHelp(false)
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	if m.step == importStepReview {
		return "Space: keep/skip | a: keep all | n: skip duplicates | Enter: save | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		return m.back()
	}

	switch msg := msg.(type) {
	case parsedMsg:
		return m.onParsed(msg)
	case savedMsg:
		m.step = importStepDone
		m.err = msg.err

		if msg.err == nil {
			m.status = fmt.Sprintf("Saved %d expenses.", msg.count)
		}

		return m, nil
	}

	switch m.step {
	case importStepFormat:
		return m.updateFormat(msg)
	case importStepFile:
		return m.updateFile(msg)
	case importStepParsing:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case importStepReview:
		return m.updateReview(msg)
	}

	return m, nil
}

func (m ImportModel) back() (tea.Model, tea.Cmd) {
	switch m.step {
	case importStepFormat:
		return m, Back
	case importStepParsing:
		return m, nil
	}

	m.step = importStepFormat
	m.rows = nil
	m.err = nil
	m.status = ""
	m.form = m.formatForm()

	return m, m.form.Init()
}

func (m ImportModel) updateFormat(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if *m.format == importer.FormatOFX {
		m.picker.AllowedTypes = []string{".ofx", ".qfx"}
	} else {
		m.picker.AllowedTypes = []string{".csv", ".txt"}
	}

	m.step = importStepFile

	return m, m.picker.Init()
}

func (m ImportModel) updateFile(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.step = importStepParsing
		m.status = "Reading " + path

		return m, tea.Batch(m.spinner.Tick, m.parseCmd(path, *m.format))
	}

	return m, cmd
}

func (m ImportModel) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case " ":
		if i := m.table.Cursor(); i >= 0 && i < len(m.rows) {
			m.rows[i].keep = !m.rows[i].keep
		}
	case "a":
		for i := range m.rows {
			m.rows[i].keep = true
		}
	case "n":
		for i := range m.rows {
			m.rows[i].keep = m.rows[i].duplicate == nil
		}
	case "enter":
		m.step = importStepParsing
		m.status = "Saving"

		return m, tea.Batch(m.spinner.Tick, m.saveCmd())
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	m.table.SetRows(reviewRows(m.rows))

	return m, nil
}

func (m ImportModel) onParsed(msg parsedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.step = importStepDone
		m.err = msg.err

		return m, nil
	}

	if len(msg.result.Conflicts) == 0 {
		m.step = importStepDone
		m.status = fmt.Sprintf("Imported %d expenses, %d matched a learned description.",
			len(msg.result.Imported), msg.matched)

		return m, nil
	}

	rows := make([]importRow, 0, len(msg.result.New)+len(msg.result.Conflicts))
	for _, p := range msg.result.New {
		rows = append(rows, importRow{params: p, category: msg.categoryName(p.CategoryID), keep: true})
	}

	for _, c := range msg.result.Conflicts {
		rows = append(rows, importRow{params: c.Incoming, category: msg.categoryName(c.Incoming.CategoryID), duplicate: c.Existing})
	}

	m.rows = rows
	m.table = newTable([]table.Column{
		{Title: "Keep", Width: 5},
		{Title: "Date", Width: 11},
		{Title: "Description", Width: 28},
		{Title: "Category", Width: 16},
		{Title: "Amount", Width: 12},
		{Title: "Possible duplicate of", Width: 28},
	})
	m.table.SetRows(reviewRows(rows))
	m.step = importStepReview
	m.status = fmt.Sprintf("%d possible duplicates were not saved yet.", len(msg.result.Conflicts))

	return m, nil
}

func reviewRows(rows []importRow) []table.Row {
	out := make([]table.Row, len(rows))

	for i, r := range rows {
		keep := "[ ]"
		if r.keep {
			keep = "[x]"
		}

		var dup string
		if r.duplicate != nil {
			dup = FormatDate(r.duplicate.Date) + " " + r.duplicate.Description
		}

		out[i] = table.Row{keep, FormatDate(r.params.Date), r.params.Description, r.category, FormatAmount(r.params.Amount), dup}
	}

	return out
}

func (m ImportModel) View() string {
	var content string

	switch m.step {
	case importStepFormat:
		content = m.form.View()
	case importStepFile:
		content = fmt.Sprintf("Select a %s statement:\n\n%s", *m.format, m.picker.View())
	case importStepParsing:
		content = m.spinner.View() + " " + m.status
	case importStepReview:
		content = faintStyle.Render(m.status) + "\n\n" + m.table.View()
	case importStepDone:
		if m.err != nil {
			content = errorStyle.Render("Error: " + m.err.Error())
		} else {
			content = successStyle.Render(m.status)
		}

		content += "\n\n(Esc to import another file)"
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type parsedMsg struct {
	result     *budget.ImportResult
	categories map[uuid.UUID]string
	matched    int
	err        error
}

func (p parsedMsg) categoryName(id *uuid.UUID) string {
	if id == nil {
		return ""
	}

	return p.categories[*id]
}

type savedMsg struct {
	count int
	err   error
}

func (m ImportModel) parseCmd(path string, format importer.Format) tea.Cmd {
	s := m.session

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return parsedMsg{err: err}
		}
		defer f.Close()

		params, err := s.Import.Import(format, f)
		if err != nil {
			return parsedMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		cats, err := s.Budget.ListCategories(ctx, s.UserID)
		if err != nil {
			return parsedMsg{err: err}
		}

		names := make(map[uuid.UUID]string, len(cats))
		for _, c := range cats {
			names[c.ID] = c.Name
		}

		var matched int
		if s.Match != nil {
			matched = s.Match.Apply(ctx, s.UserID, params, budget.CategorySet(cats))
		}

		result, err := s.Budget.ImportBatch(ctx, s.UserID, params)
		if err != nil {
			return parsedMsg{err: err}
		}

		return parsedMsg{result: result, categories: names, matched: matched}
	}
}

func (m ImportModel) saveCmd() tea.Cmd {
	s := m.session

	var keep []budget.CreateExpenseParams
	for _, r := range m.rows {
		if r.keep {
			keep = append(keep, r.params)
		}
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		es, err := s.Budget.CreateBatch(ctx, s.UserID, keep)

		return savedMsg{count: len(es), err: err}
	}
}
