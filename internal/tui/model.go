package tui

import (
	"time"

	"github.com/tinytelemetry/livelist/internal/feed"
	"github.com/tinytelemetry/livelist/internal/model"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

// ScreenTitle is shown in the title bar of the list screen.
const ScreenTitle = "Live List"

// Options configures the list screen.
type Options struct {
	RequestTimeout         time.Duration
	FooterWhileLoadingOnly bool // show the trailing loading row only while a fetch runs
	InlineLoadMoreErrors   bool // keep the list on screen when a load-more fails
	ReverseScrollWheel     bool
	SourceLabel            string // "Socket" or "HTTP", shown in the status bar
}

// visibleRange is a half-open range of item indices currently on screen.
type visibleRange struct {
	start, end int
}

func (r visibleRange) contains(i int) bool { return i >= r.start && i < r.end }

// fetchDoneMsg carries a finished controller request back to the UI loop.
type fetchDoneMsg struct {
	result feed.Result
}

// ListModel is the "Live List" screen. It renders from the last snapshot the
// controller published and issues fetches as tea.Cmds.
type ListModel struct {
	ctl         *feed.Controller
	snap        feed.Snapshot
	unsubscribe func()
	opts        Options

	keys      KeyMap
	help      help.Model
	spinner   spinner.Model
	spinning  bool
	zones     *zone.Manager
	ownsZones bool
	zoneID    string

	width  int
	height int

	// List navigation
	selected int
	offset   int
	visible  visibleRange
}

// NewListModel creates the list screen for ctl. zones may be nil, in which
// case the screen owns its own zone manager.
func NewListModel(ctl *feed.Controller, opts Options, zones *zone.Manager) *ListModel {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = model.DefaultRequestTimeout
	}
	owns := zones == nil
	if owns {
		zones = zone.New()
	}
	m := &ListModel{
		ctl:       ctl,
		opts:      opts,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(loadingTextStyle)),
		zones:     zones,
		ownsZones: owns,
		zoneID:    zones.NewPrefix(),
	}
	m.unsubscribe = ctl.Subscribe(m.onSnapshot)
	return m
}

// Close detaches the screen from its controller.
func (m *ListModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.ownsZones {
		m.zones.Close()
		m.ownsZones = false
	}
}

func (m *ListModel) onSnapshot(s feed.Snapshot) {
	m.snap = s
	m.clampSelection()
}

// ListPage adapts ListModel to the App shell.
type ListPage struct {
	m *ListModel
}

// NewListPage wraps m as an App page.
func NewListPage(m *ListModel) *ListPage {
	return &ListPage{m: m}
}

func (p *ListPage) ID() string { return "lives" }

func (p *ListPage) Init() tea.Cmd {
	return p.m.Init()
}

func (p *ListPage) Update(msg tea.Msg) tea.Cmd {
	_, cmd := p.m.Update(msg)
	return cmd
}

// View ignores the size arguments; the model tracks WindowSizeMsg itself.
func (p *ListPage) View(_, _ int) string {
	return p.m.View()
}

// Init fetches the first page when nothing has been loaded yet.
func (m *ListModel) Init() tea.Cmd {
	if len(m.snap.Items) > 0 {
		return nil
	}
	return m.refresh()
}
