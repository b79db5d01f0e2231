package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/prospekt/listview"
)

var selectedLabelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("15")).
	Background(lipgloss.Color("62"))

func (m Model) renderStatusView() string {
	state := m.session.StatusState()

	var s strings.Builder
	s.WriteString(titleStyle.Render("CHANGE STATUS"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s · %s\n", state.Target.Company, mutedStyle.Render("now "+orNone(state.Target.Status))))
	s.WriteString(mutedStyle.Render(fmt.Sprintf("row %d, column %d", state.Anchor.Row+1, state.Anchor.Col+1)))
	s.WriteString("\n\n")

	for i, label := range state.Labels {
		line := "  " + label
		if i == m.statusCursor {
			line = selectedLabelStyle.Render("> " + label)
		}
		s.WriteString(line + "\n")
	}

	if m.viewMode == ViewAddStatus {
		s.WriteString("\n" + m.newStatus.View() + "\n")
	}
	if state.State == listview.Committing {
		s.WriteString("\n" + mutedStyle.Render("Saving…"))
	}
	if state.Err != nil {
		s.WriteString("\n" + noticeStyle.Render("Could not change status: "+state.Err.Error()))
	}

	help := []string{"↑/↓: Choose", "Enter: Apply", "+: New label", "Esc: Close"}
	if m.viewMode == ViewAddStatus {
		help = []string{"Enter: Add label", "Esc: Back"}
	}
	s.WriteString("\n" + helpStyle.Render(strings.Join(help, " • ")))
	return boxStyle.Render(s.String())
}

func (m Model) handleStatusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	labels := m.session.StatusState().Labels
	switch msg.String() {
	case "esc", "q":
		m.session.CloseStatusSelector()
		m.viewMode = ViewList
	case "up", "k":
		if m.statusCursor > 0 {
			m.statusCursor--
		}
	case "down", "j":
		if m.statusCursor < len(labels)-1 {
			m.statusCursor++
		}
	case "+":
		m.viewMode = ViewAddStatus
		m.newStatus.SetValue("")
		cmd := m.newStatus.Focus()
		return m, cmd
	case "enter":
		if m.statusCursor >= len(labels) {
			return m, nil
		}
		label := labels[m.statusCursor]
		m.busy = "Changing status"
		session, ctx := m.session, m.ctx
		return m, func() tea.Msg {
			return mutationMsg{op: opStatus, err: session.SelectStatus(ctx, label)}
		}
	}
	return m, nil
}

// handleAddStatusKeys extends the catalog without applying the new label.
func (m Model) handleAddStatusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.newStatus.Blur()
		m.viewMode = ViewStatus
		return m, nil
	case "enter":
		label := strings.TrimSpace(m.newStatus.Value())
		if m.session.AddStatusLabel(label) {
			m.statusCursor = indexOf(m.session.Catalog().Labels(), label)
		}
		m.newStatus.Blur()
		m.viewMode = ViewStatus
		return m, nil
	}

	var cmd tea.Cmd
	m.newStatus, cmd = m.newStatus.Update(msg)
	return m, cmd
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
