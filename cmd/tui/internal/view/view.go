package view

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/budget/internal/budget"
	"github.com/MrJamesThe3rd/budget/internal/export"
	"github.com/MrJamesThe3rd/budget/internal/importer"
	"github.com/MrJamesThe3rd/budget/internal/matching"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// Session carries the services and the user every screen works for.
// Match is nil when no learned mappings are available.
type Session struct {
	UserID   string
	Location *time.Location
	Budget   *budget.Service
	Import   *importer.Service
	Export   *export.Service
	Match    *matching.Service
}
