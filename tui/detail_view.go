package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/prospekt/listview"
)

func (m Model) renderDetailView() string {
	d := m.session.Detail()

	var s strings.Builder
	s.WriteString(titleStyle.Render("PROSPECT"))
	s.WriteString("\n")

	switch d.State {
	case listview.DetailLoading:
		s.WriteString(mutedStyle.Render("Loading…"))
	case listview.DetailNotFound:
		s.WriteString(noticeStyle.Render(fmt.Sprintf("Prospect %s no longer exists.", d.ID)))
	case listview.DetailFound:
		p := d.Prospect
		s.WriteString(m.renderField("Company", p.Company))
		s.WriteString(m.renderField("Contact person", p.ContactPerson))
		s.WriteString(m.renderField("Phone", p.Phone))
		s.WriteString(m.renderField("Email", p.Email))
		s.WriteString(m.renderField("First contact", p.DisplayDate()))
		s.WriteString(m.renderField("Status", p.Status))
		s.WriteString(m.renderField("Comment", p.Comment))
		if p.Archived {
			s.WriteString(m.renderField("Archived", "yes"))
		}

		keys := make([]string, 0, len(p.Extra))
		for k := range p.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.WriteString(m.renderField(k, fmt.Sprint(p.Extra[k])))
		}
		s.WriteString(mutedStyle.Render("id " + p.ID))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Esc: Back • s: Status • a: Archive • d: Delete"))
	return boxStyle.Render(s.String())
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = mutedStyle.Render("-")
	}
	return labelStyle.Render(label) + value + "\n"
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.session.Detail()
	switch msg.String() {
	case "esc", "q", "enter":
		m.session.CloseDetail()
		m.viewMode = ViewList
	case "s":
		if d.State == listview.DetailFound && m.session.OpenStatusSelector(d.ID, listview.Anchor{Row: m.table.Cursor(), Col: statusColumn}) == nil {
			m.session.CloseDetail()
			m.viewMode = ViewStatus
			m.statusCursor = indexOf(m.session.StatusState().Labels, d.Prospect.Status)
		}
	case "a":
		if d.State == listview.DetailFound && m.session.RequestArchive(d.ID) == nil {
			m.session.CloseDetail()
			m.viewMode = ViewConfirmArchive
		}
	case "d":
		if d.State == listview.DetailFound && m.session.RequestDelete(d.ID) == nil {
			m.session.CloseDetail()
			m.viewMode = ViewConfirmDelete
		}
	}
	return m, nil
}
