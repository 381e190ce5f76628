package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Smallest window the list screen can lay out in.
const (
	minWidth  = 20
	minHeight = 5
)

// App is the top-level Bubble Tea model. It owns window-wide concerns and
// forwards everything else to its page.
type App struct {
	page      Page
	width     int
	height    int
	forceQuit key.Binding
}

// NewApp hosts page as the only screen.
func NewApp(page Page) *App {
	return &App{
		page:      page,
		forceQuit: DefaultKeyMap().ForceQuit,
	}
}

func (a *App) Init() tea.Cmd {
	return a.page.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, a.forceQuit) {
			return a, tea.Quit
		}
	}
	return a, a.page.Update(msg)
}

func (a *App) View() string {
	if a.width > 0 && a.height > 0 && (a.width < minWidth || a.height < minHeight) {
		msg := fmt.Sprintf("Window too small (%dx%d)", a.width, a.height)
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, placeholderStyle.Render(msg))
	}
	return a.page.View(a.width, a.height)
}
