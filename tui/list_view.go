package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
)

type column struct {
	key   string
	title string
	width int
}

// Keys 1-7 sort by these columns in order.
var listColumns = []column{
	{models.FieldCompany, "Company", 20},
	{models.FieldContactPerson, "Contact", 18},
	{models.FieldPhone, "Phone", 14},
	{models.FieldEmail, "Email", 24},
	{models.FieldFirstContactDate, "First contact", 14},
	{models.FieldStatus, "Status", 20},
	{models.FieldComment, "Comment", 26},
}

// statusColumn anchors the status selector.
const statusColumn = 5

func (m Model) columns() []table.Column {
	sort := m.session.Sort()
	cols := make([]table.Column, len(listColumns))
	for i, c := range listColumns {
		indicator := "↕"
		if sort.Key == c.key {
			indicator = "▲"
			if sort.Direction == listview.Descending {
				indicator = "▼"
			}
		}
		cols[i] = table.Column{Title: fmt.Sprintf("%s %s", c.title, indicator), Width: c.width}
	}
	return cols
}

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PROSPEKT"))
	s.WriteString("\n")
	s.WriteString(m.renderQueryLine())
	s.WriteString("\n\n")

	s.WriteString(m.table.View())
	s.WriteString("\n")
	s.WriteString(mutedStyle.Render(fmt.Sprintf("%d of %d prospects", len(m.rows), m.session.List().Len())))

	if m.viewMode == ViewFilter {
		s.WriteString("\n\n")
		s.WriteString(m.renderFilterForm())
	}

	if m.busy != "" {
		s.WriteString("\n" + mutedStyle.Render(m.busy+"…"))
	}
	if notice := m.session.Notice(); notice != "" {
		s.WriteString("\n" + noticeStyle.Render(notice))
	}

	s.WriteString("\n")
	s.WriteString(m.renderListHelp())
	return s.String()
}

func (m Model) renderQueryLine() string {
	if m.viewMode == ViewSearch {
		return m.search.View()
	}
	var parts []string
	if q := m.session.Search(); q != "" {
		parts = append(parts, fmt.Sprintf("search: %q", q))
	}
	f := m.session.Filter()
	for _, field := range listview.FilterFields {
		if v := f.Get(field); v != "" {
			parts = append(parts, fmt.Sprintf("%s: %q", field, v))
		}
	}
	if len(parts) == 0 {
		return mutedStyle.Render("all prospects")
	}
	return mutedStyle.Render(strings.Join(parts, "  "))
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"1-7: Sort",
		"/: Search",
		"f: Filter",
		"n: New",
		"s: Status",
		"a: Archive",
		"d: Delete",
		"Enter: Details",
		"v: Dashboard",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "esc":
		m.session.ClearNotice()
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7":
		m.session.ToggleSort(listColumns[key[0]-'1'].key)
		m.refresh()
		return m, nil
	case "/":
		m.viewMode = ViewSearch
		m.search.SetValue(m.session.Search())
		cmd := m.search.Focus()
		return m, cmd
	case "f":
		m.viewMode = ViewFilter
		m.filterFocus = 0
		f := m.session.Filter()
		for i, field := range listview.FilterFields {
			m.filters[i].SetValue(f.Get(field))
		}
		cmd := m.focusFilter()
		return m, cmd
	case "F":
		m.session.SetFilter(listview.Filter{})
		m.session.SetSearch("")
		m.refresh()
		return m, nil
	case "n":
		if err := m.session.OpenCreate(); err != nil {
			return m, nil
		}
		m.viewMode = ViewCreate
		m.form = newCreateInputs()
		m.formFocus = 0
		cmd := m.focusForm()
		return m, cmd
	case "v":
		m.viewMode = ViewDashboard
		return m, nil
	}

	p, ok := m.selected()
	switch key {
	case "enter":
		if ok {
			m.session.OpenDetail(p.ID)
			m.viewMode = ViewDetail
		}
		return m, nil
	case "s":
		if ok && m.session.OpenStatusSelector(p.ID, listview.Anchor{Row: m.table.Cursor(), Col: statusColumn}) == nil {
			m.viewMode = ViewStatus
			m.statusCursor = indexOf(m.session.StatusState().Labels, p.Status)
		}
		return m, nil
	case "a":
		if ok && m.session.RequestArchive(p.ID) == nil {
			m.viewMode = ViewConfirmArchive
		}
		return m, nil
	case "d":
		if ok && m.session.RequestDelete(p.ID) == nil {
			m.viewMode = ViewConfirmDelete
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.search.Blur()
		m.viewMode = ViewList
		return m, nil
	case "esc":
		m.search.Blur()
		m.search.SetValue("")
		m.session.SetSearch("")
		m.viewMode = ViewList
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.session.SetSearch(m.search.Value())
	m.refresh()
	return m, cmd
}

func newFilterInputs() []textinput.Model {
	inputs := make([]textinput.Model, len(listview.FilterFields))
	titles := []string{"Company", "Contact person", "Status"}
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Prompt = fmt.Sprintf("%-16s", titles[i])
		inputs[i].CharLimit = 100
	}
	return inputs
}

func (m Model) renderFilterForm() string {
	var s strings.Builder
	for i, input := range m.filters {
		if i == m.filterFocus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("Tab: Next field • Enter/Esc: Close"))
	return s.String()
}

func (m *Model) focusFilter() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.filters {
		if i == m.filterFocus {
			cmd = m.filters[i].Focus()
		} else {
			m.filters[i].Blur()
		}
	}
	return cmd
}

func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		for i := range m.filters {
			m.filters[i].Blur()
		}
		m.viewMode = ViewList
		return m, nil
	case "tab", "down":
		m.filterFocus = (m.filterFocus + 1) % len(m.filters)
		cmd := m.focusFilter()
		return m, cmd
	case "shift+tab", "up":
		m.filterFocus = (m.filterFocus + len(m.filters) - 1) % len(m.filters)
		cmd := m.focusFilter()
		return m, cmd
	}

	var cmd tea.Cmd
	m.filters[m.filterFocus], cmd = m.filters[m.filterFocus].Update(msg)
	_ = m.session.SetFilterField(listview.FilterFields[m.filterFocus], m.filters[m.filterFocus].Value())
	m.refresh()
	return m, cmd
}

func (m Model) renderLoadingView() string {
	return titleStyle.Render("PROSPEKT") + "\n" + mutedStyle.Render("Loading prospects…") + "\n" +
		helpStyle.Render("ctrl+c: Quit")
}

func (m Model) renderFatalView() string {
	body := fmt.Sprintf("%s\n\n%v\n\n%s",
		noticeStyle.Bold(true).Render("The prospect list is no longer in sync."),
		m.session.Err(),
		"Restart prospekt to reconnect.")
	return boxStyle.BorderForeground(noticeStyle.GetForeground()).Render(body) + "\n" + helpStyle.Render("q: Quit")
}

func indexOf(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return 0
}
