// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Renders a list session and forwards store snapshots into the update loop
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewSearch
	ViewFilter
	ViewCreate
	ViewStatus
	ViewAddStatus
	ViewConfirmArchive
	ViewConfirmDelete
	ViewDetail
	ViewDashboard
)

// changeMsg reports that the list applied a snapshot or failed.
type changeMsg struct{}

// mutationMsg reports the end of a store write started from the UI.
type mutationMsg struct {
	op  string
	err error
}

// Model is the main bubbletea model
type Model struct {
	ctx      context.Context
	session  *listview.Session
	changes  chan struct{}
	viewMode ViewMode

	rows  []models.Prospect
	table table.Model

	search      textinput.Model
	filters     []textinput.Model
	filterFocus int

	form      []textinput.Model
	formFocus int

	statusCursor int
	newStatus    textinput.Model

	// op in flight, shown while the store write runs
	busy string

	width  int
	height int
}

// NewModel creates a new TUI model over session. Store writes use ctx.
func NewModel(ctx context.Context, session *listview.Session) Model {
	changes := make(chan struct{}, 1)
	session.List().OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	m := Model{
		ctx:      ctx,
		session:  session,
		changes:  changes,
		viewMode: ViewList,
		width:    120,
		height:   30,
	}

	m.table = table.New(
		table.WithColumns(m.columns()),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
	)

	m.search = textinput.New()
	m.search.Prompt = "/ "
	m.search.Placeholder = "Search company, contact, status"
	m.search.CharLimit = 100

	m.filters = newFilterInputs()

	m.newStatus = textinput.New()
	m.newStatus.Placeholder = "New status label"
	m.newStatus.CharLimit = 60

	m.refresh()
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, session *listview.Session) error {
	p := tea.NewProgram(NewModel(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		<-changes
		return changeMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		return m, nil
	case changeMsg:
		m.refresh()
		return m, m.waitForChange()
	case mutationMsg:
		return m.handleMutation(msg)
	}
	return m, nil
}

func (m Model) View() string {
	switch m.session.Phase() {
	case listview.PhaseFailed:
		return m.renderFatalView()
	case listview.PhaseLoading:
		return m.renderLoadingView()
	}

	switch m.viewMode {
	case ViewCreate:
		return m.renderCreateView()
	case ViewStatus, ViewAddStatus:
		return m.renderStatusView()
	case ViewConfirmArchive:
		return m.renderConfirmView(m.session.ArchiveState(), "archive")
	case ViewConfirmDelete:
		return m.renderConfirmView(m.session.DeleteState(), "delete")
	case ViewDetail:
		return m.renderDetailView()
	case ViewDashboard:
		return m.renderDashboardView()
	}
	return m.renderListView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.session.Phase() == listview.PhaseFailed {
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewSearch:
		return m.handleSearchKeys(msg)
	case ViewFilter:
		return m.handleFilterKeys(msg)
	case ViewCreate:
		return m.handleCreateKeys(msg)
	case ViewStatus:
		return m.handleStatusKeys(msg)
	case ViewAddStatus:
		return m.handleAddStatusKeys(msg)
	case ViewConfirmArchive, ViewConfirmDelete:
		return m.handleConfirmKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewDashboard:
		return m.handleDashboardKeys(msg)
	}

	return m, nil
}

// handleMutation returns to the list on success. On failure the dialog stays
// open with the error so the user can retry or cancel.
func (m Model) handleMutation(msg mutationMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if msg.err == nil {
		m.viewMode = ViewList
	}
	m.refresh()
	return m, nil
}

// refresh re-derives the visible rows from the session.
func (m *Model) refresh() {
	m.rows = m.session.Rows()
	rows := make([]table.Row, len(m.rows))
	for i, p := range m.rows {
		rows[i] = table.Row{
			p.Company,
			p.ContactPerson,
			p.Phone,
			p.Email,
			p.DisplayDate(),
			p.Status,
			p.Comment,
		}
	}
	m.table.SetColumns(m.columns())
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m Model) tableHeight() int {
	return max(m.height-10, 3)
}

// selected returns the prospect under the cursor.
func (m Model) selected() (models.Prospect, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.rows) {
		return models.Prospect{}, false
	}
	return m.rows[c], true
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Width(16)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(1, 2)
)
