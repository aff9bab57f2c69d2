package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/budget/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/budget/memory"
	budgetStore "github.com/MrJamesThe3rd/budget/internal/budget/store"
	"github.com/MrJamesThe3rd/budget/internal/config"
	"github.com/MrJamesThe3rd/budget/internal/cycle"
	"github.com/MrJamesThe3rd/budget/internal/database"
	"github.com/MrJamesThe3rd/budget/internal/export"
	"github.com/MrJamesThe3rd/budget/internal/importer"
	"github.com/MrJamesThe3rd/budget/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/budget/internal/matching/store"
)

type model struct {
	session view.Session
	demo    bool

	currentView View

	dashboardView view.DashboardModel
	expensesView  view.ExpensesModel
	importView    view.ImportModel
	exportView    view.ExportModel
}

type View int

const (
	ViewMenu      View = 0
	ViewDashboard View = 1
	ViewExpenses  View = 2
	ViewImport    View = 3
	ViewExport    View = 4
)

func newSession(cfg *config.Config) (view.Session, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return view.Session{}, nil, err
	}

	clock := budget.WithClock(func() time.Time { return time.Now().In(loc) })

	var (
		repo    budget.Repository
		match   *matching.Service
		cleanup = func() {}
	)

	if cfg.TUI.Demo {
		repo = memory.New()
	} else {
		db, err := database.New(cfg.ConnectionString())
		if err != nil {
			return view.Session{}, nil, fmt.Errorf("connecting to database: %w", err)
		}

		repo = budgetStore.New(db)
		match = matching.NewService(matchingStore.New(db))
		cleanup = func() { db.Close() }
	}

	svc := budget.NewService(repo, clock)

	if cfg.TUI.Demo {
		if err := seedDemo(context.Background(), svc, cfg.TUI.User, time.Now().In(loc)); err != nil {
			cleanup()
			return view.Session{}, nil, fmt.Errorf("seeding demo data: %w", err)
		}
	}

	return view.Session{
		UserID:   cfg.TUI.User,
		Location: loc,
		Budget:   svc,
		Import:   importer.NewService(loc),
		Export:   export.NewService(svc),
		Match:    match,
	}, cleanup, nil
}

func initialModel(s view.Session, demo bool) model {
	return model{
		session:     s,
		demo:        demo,
		currentView: ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewDashboard
				m.dashboardView = view.NewDashboardModel(m.session)

				return m, m.dashboardView.Init()
			case "2":
				m.currentView = ViewExpenses
				m.expensesView = view.NewExpensesModel(m.session, cycle.MonthOf(time.Now().In(m.session.Location)))

				return m, m.expensesView.Init()
			case "3":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.session)

				return m, m.importView.Init()
			case "4":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.session)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewDashboard:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)
	case ViewExpenses:
		var newModel tea.Model
		newModel, cmd = m.expensesView.Update(msg)
		m.expensesView = newModel.(view.ExpensesModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		title := "Budget TUI"
		if m.demo {
			title += " (demo data)"
		}

		return lipgloss.NewStyle().Padding(2).Render(
			title + "\n\n" +
				"1. Dashboard\n" +
				"2. Expenses\n" +
				"3. Import Statement\n" +
				"4. Export Cycle\n\n" +
				"q. Quit",
		)
	case ViewDashboard:
		return m.dashboardView.View() + "\n" + helpLine(m.dashboardView)
	case ViewExpenses:
		return m.expensesView.View() + "\n" + helpLine(m.expensesView)
	case ViewImport:
		return m.importView.View() + "\n" + helpLine(m.importView)
	case ViewExport:
		return m.exportView.View() + "\n" + helpLine(m.exportView)
	}

	return "Unknown View"
}

func helpLine(v view.View) string {
	return lipgloss.NewStyle().Faint(true).PaddingLeft(2).Render(v.Title() + " | " + v.ShortHelp())
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	session, cleanup, err := newSession(cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	p := tea.NewProgram(initialModel(session, cfg.TUI.Demo), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		cleanup()
		os.Exit(1)
	}
}
