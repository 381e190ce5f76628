package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy  = lipgloss.Color("#1F2A44")
	ColorWhite = lipgloss.Color("15")
	ColorGray  = lipgloss.Color("8")
	ColorBlue  = lipgloss.Color("12")
	ColorRed   = lipgloss.Color("9")
)

var (
	titleBarStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1)

	statusLineStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	nicknameStyle = lipgloss.NewStyle().Bold(true)
	titleStyle    = lipgloss.NewStyle().Faint(true)

	selectedRowStyle = lipgloss.NewStyle().Foreground(ColorBlue)

	loadingTextStyle = lipgloss.NewStyle().
				Foreground(ColorGray).
				Italic(true)

	errorTextStyle = lipgloss.NewStyle().Foreground(ColorRed)

	retryButtonStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Background(ColorBlue).
				Padding(0, 2)

	placeholderStyle = lipgloss.NewStyle().Foreground(ColorGray)
)
