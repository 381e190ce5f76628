package tui

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/livelist/internal/feed"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	loadingText  = "Loading..."
	retryText    = "Retry"
	fallbackText = "Unknown state or processing data..."
)

// trailingRow is the extra row rendered after the last item.
type trailingRow int

const (
	trailingNone    trailingRow = iota
	trailingLoading             // spinner while more pages exist
	trailingError               // inline load-more failure with retry
)

// branch picks the screen variant. A load-more failure stays in the list when
// inline errors are enabled.
func (m *ListModel) branch() feed.Branch {
	b := feed.Select(m.snap.State, len(m.snap.Items) == 0)
	if b == feed.BranchError && m.inlineLoadMoreError() {
		return feed.BranchList
	}
	return b
}

func (m *ListModel) showingList() bool {
	return m.branch() == feed.BranchList
}

func (m *ListModel) inlineLoadMoreError() bool {
	return m.opts.InlineLoadMoreErrors &&
		m.snap.LoadMoreFailed &&
		m.snap.State.Phase == feed.PhaseError &&
		len(m.snap.Items) > 0
}

func (m *ListModel) trailing() trailingRow {
	if m.inlineLoadMoreError() {
		return trailingError
	}
	if feed.ShowFooter(m.snap, m.opts.FooterWhileLoadingOnly) {
		return trailingLoading
	}
	return trailingNone
}

func (m *ListModel) totalRows() int {
	if m.trailing() != trailingNone {
		return len(m.snap.Items) + 1
	}
	return len(m.snap.Items)
}

func (m *ListModel) trailingOnScreen() bool {
	rows := m.listHeight()
	return rows > 0 && len(m.snap.Items) >= m.offset && len(m.snap.Items) < m.offset+rows
}

// listHeight is the number of rows between the title bar and the status area.
func (m *ListModel) listHeight() int {
	h := m.height - 1 - m.statusHeight()
	if h < 0 {
		return 0
	}
	return h
}

func (m *ListModel) statusHeight() int {
	if m.help.ShowAll {
		return 1 + lipgloss.Height(m.help.View(m.keys))
	}
	return 1
}

// View renders the list screen
func (m *ListModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing..."
	}

	title := titleBarStyle.Width(m.width).Render(ScreenTitle)
	bodyHeight := m.listHeight()

	var body string
	switch m.branch() {
	case feed.BranchLoading:
		body = m.renderLoading(m.width, bodyHeight)
	case feed.BranchError:
		body = m.renderError(m.width, bodyHeight)
	case feed.BranchList:
		body = m.renderList(m.width, bodyHeight)
	default:
		body = renderFallback(m.width, bodyHeight)
	}

	sections := []string{title, body}
	if m.help.ShowAll {
		sections = append(sections, m.help.View(m.keys))
	}
	sections = append(sections, m.renderStatusLine())

	return m.zones.Scan(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *ListModel) renderLoading(width, height int) string {
	text := m.spinner.View() + " " + loadingTextStyle.Render(loadingText)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

func (m *ListModel) renderError(width, height int) string {
	msg := errorTextStyle.Width(max(1, min(width-4, 60))).Align(lipgloss.Center).Render(m.snap.State.Message)
	button := m.zones.Mark(m.retryZone(), retryButtonStyle.Render(retryText))
	block := lipgloss.JoinVertical(lipgloss.Center, msg, "", button)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}

func renderFallback(width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, placeholderStyle.Render(fallbackText))
}

func (m *ListModel) renderList(width, height int) string {
	if height <= 0 {
		return ""
	}
	items := m.snap.Items
	lines := make([]string, 0, height)
	for i := m.offset; i < len(items) && len(lines) < height; i++ {
		lines = append(lines, m.zones.Mark(m.rowZone(i), renderRow(items[i], width, i == m.selected)))
	}
	if len(lines) < height {
		switch m.trailing() {
		case trailingLoading:
			row := m.spinner.View() + " " + loadingTextStyle.Render(loadingText)
			lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Center, row))
		case trailingError:
			lines = append(lines, m.renderInlineError(width))
		}
	}
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(strings.Join(lines, "\n"))
}

func (m *ListModel) renderInlineError(width int) string {
	button := m.zones.Mark(m.retryZone(), retryButtonStyle.Render(retryText))
	room := width - lipgloss.Width(button) - 4
	msg := ""
	if room > 0 {
		msg = errorTextStyle.Render(ansi.Truncate(m.snap.State.Message, room, "…"))
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, msg+"  "+button)
}

// renderStatusLine renders the bottom bar: source, item count, feed state and key help.
func (m *ListModel) renderStatusLine() string {
	var parts []string
	if m.opts.SourceLabel != "" {
		parts = append(parts, m.opts.SourceLabel)
	}
	parts = append(parts, fmt.Sprintf("%d items", len(m.snap.Items)), m.feedStatus())
	left := " " + strings.Join(parts, " • ")

	right := m.help.ShortHelpView(m.keys.ShortHelp()) + " "
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	line := left
	if gap > 0 {
		line = left + strings.Repeat(" ", gap) + right
	}
	return statusLineStyle.Width(m.width).Render(ansi.Truncate(line, m.width, "…"))
}

func (m *ListModel) feedStatus() string {
	switch {
	case m.snap.State.Phase == feed.PhaseError:
		return "error"
	case m.snap.InFlight:
		return "loading"
	case m.snap.NextCursor != "":
		return "more available"
	case m.snap.State.Phase == feed.PhaseLoaded:
		return "end of feed"
	default:
		return m.snap.State.String()
	}
}
