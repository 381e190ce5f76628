package tui

import (
	"context"
	"strconv"

	"github.com/tinytelemetry/livelist/internal/feed"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages
func (m *ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ensureVisible()
		return m, m.afterMove()

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouseEvent(msg)

	case fetchDoneMsg:
		if !m.ctl.Apply(msg.result) {
			return m, nil
		}
		if msg.result.Err == nil && msg.result.Request.Kind == feed.KindInitial {
			m.selected = 0
			m.offset = 0
			m.visible = visibleRange{}
		}
		m.ensureVisible()
		return m, m.afterMove()

	case spinner.TickMsg:
		if !m.needsSpinner() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *ListModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, m.afterMove()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.Retry):
		if m.snap.State.Phase != feed.PhaseError {
			return m, nil
		}
		return m, m.retry()
	case key.Matches(msg, m.keys.Up):
		return m, m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		return m, m.moveSelection(1)
	case key.Matches(msg, m.keys.PageUp):
		return m, m.moveSelection(-m.listHeight())
	case key.Matches(msg, m.keys.PageDown):
		return m, m.moveSelection(m.listHeight())
	case key.Matches(msg, m.keys.Home):
		return m, m.moveSelection(-len(m.snap.Items))
	case key.Matches(msg, m.keys.End):
		return m, m.moveSelection(len(m.snap.Items))
	}
	return m, nil
}

// handleMouseEvent processes mouse interactions
func (m *ListModel) handleMouseEvent(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionRelease {
			return m, nil
		}
		return m.handleMouseClick(msg)

	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		delta := 1
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		if m.opts.ReverseScrollWheel {
			delta = -delta
		}
		// Scrolling up past the top of the list pulls to refresh.
		if delta < 0 && m.atTop() && m.showingList() {
			return m, m.refresh()
		}
		return m, m.moveSelection(delta)
	}
	return m, nil
}

// handleMouseClick resolves clicks on the retry button and list rows.
func (m *ListModel) handleMouseClick(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.snap.State.Phase == feed.PhaseError && m.zones.Get(m.retryZone()).InBounds(msg) {
		return m, m.retry()
	}
	if !m.showingList() {
		return m, nil
	}
	for i := m.visible.start; i < m.visible.end; i++ {
		if m.zones.Get(m.rowZone(i)).InBounds(msg) {
			m.selected = i
			return m, nil
		}
	}
	return m, nil
}

// refresh replaces the list with a fresh first page.
func (m *ListModel) refresh() tea.Cmd {
	return m.issue(m.ctl.BeginInitial())
}

// retry repeats the request that failed: the next page when a load-more
// failure is shown inline, otherwise the first page.
func (m *ListModel) retry() tea.Cmd {
	if m.inlineLoadMoreError() {
		req, ok := m.ctl.BeginMore()
		if !ok {
			return nil
		}
		return m.issue(req)
	}
	return m.refresh()
}

func (m *ListModel) issue(req feed.Request) tea.Cmd {
	return tea.Batch(m.fetchCmd(req), m.startSpinnerIfNeeded())
}

// fetchCmd runs req off the UI loop. Only Run is called there; the result is
// applied when fetchDoneMsg comes back.
func (m *ListModel) fetchCmd(req feed.Request) tea.Cmd {
	ctl := m.ctl
	timeout := m.opts.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fetchDoneMsg{result: ctl.Run(ctx, req)}
	}
}

// afterMove reports newly visible rows and keeps the spinner running when a
// loading indicator is on screen.
func (m *ListModel) afterMove() tea.Cmd {
	return tea.Batch(m.reportVisible(), m.startSpinnerIfNeeded())
}

// reportVisible hands every row that just scrolled into view to the
// controller, which may begin a load-more.
func (m *ListModel) reportVisible() tea.Cmd {
	if !m.showingList() {
		return nil
	}
	cur := m.visibleItems()
	prev := m.visible
	m.visible = cur

	var cmds []tea.Cmd
	for i := cur.start; i < cur.end; i++ {
		if prev.contains(i) {
			continue
		}
		if req, ok := m.ctl.RowVisible(i); ok {
			cmds = append(cmds, m.fetchCmd(req))
		}
	}
	return tea.Batch(cmds...)
}

func (m *ListModel) moveSelection(delta int) tea.Cmd {
	if len(m.snap.Items) == 0 {
		return nil
	}
	m.selected += delta
	m.clampSelection()
	m.ensureVisible()
	return m.afterMove()
}

func (m *ListModel) clampSelection() {
	if m.selected >= len(m.snap.Items) {
		m.selected = len(m.snap.Items) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// ensureVisible scrolls so the selected row is on screen. Selecting the last
// item also brings the trailing row into view.
func (m *ListModel) ensureVisible() {
	rows := m.listHeight()
	if rows <= 0 {
		return
	}
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
	total := m.totalRows()
	if len(m.snap.Items) > 0 && m.selected == len(m.snap.Items)-1 {
		m.offset = max(m.offset, total-rows)
	}
	m.offset = max(0, min(m.offset, total-rows))
}

func (m *ListModel) atTop() bool {
	return m.selected == 0 && m.offset == 0
}

// visibleItems returns the item indices that fit in the list area.
func (m *ListModel) visibleItems() visibleRange {
	rows := m.listHeight()
	if rows <= 0 || len(m.snap.Items) == 0 {
		return visibleRange{}
	}
	start := min(m.offset, len(m.snap.Items))
	return visibleRange{start: start, end: min(start+rows, len(m.snap.Items))}
}

func (m *ListModel) startSpinnerIfNeeded() tea.Cmd {
	if m.spinning || !m.needsSpinner() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// needsSpinner reports whether any loading indicator is currently drawn.
func (m *ListModel) needsSpinner() bool {
	switch m.branch() {
	case feed.BranchLoading:
		return true
	case feed.BranchList:
		return m.trailing() == trailingLoading && m.trailingOnScreen()
	}
	return false
}

func (m *ListModel) retryZone() string { return m.zoneID + "retry" }

func (m *ListModel) rowZone(i int) string { return m.zoneID + "row-" + strconv.Itoa(i) }
