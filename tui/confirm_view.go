// ABOUTME: Archive and delete confirmation dialogs for the TUI
// ABOUTME: Nothing is written to the store until the user confirms
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/prospekt/listview"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmView(c listview.Confirmation, op string) string {
	title := warningStyle.Render(fmt.Sprintf("⚠  %s CONFIRMATION  ⚠", strings.ToUpper(op)))
	message := fmt.Sprintf("Are you sure you want to %s this prospect?", op)
	entityInfo := fmt.Sprintf("\n%s\n%s\n", c.Target.Company, mutedStyle.Render(c.Target.ContactPerson))

	warning := "\nArchived prospects disappear from the list."
	if op == opDelete {
		warning = "\nThis action cannot be undone!"
	}

	var status string
	switch {
	case c.State == listview.Committing:
		status = "\n" + mutedStyle.Render("Working…")
	case c.Err != nil:
		status = "\n" + noticeStyle.Render(fmt.Sprintf("Could not %s: %v", op, c.Err))
	}

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render(fmt.Sprintf("Yes, %s (y)", strings.ToUpper(op[:1])+op[1:])),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(lipgloss.Center, title, "", message, entityInfo, warning, status, "", buttons)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, confirmBoxStyle.Render(content))
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}

	archive := m.viewMode == ViewConfirmArchive
	switch msg.String() {
	case "y", "Y":
		session, ctx := m.session, m.ctx
		if archive {
			m.busy = "Archiving"
			return m, func() tea.Msg {
				return mutationMsg{op: opArchive, err: session.ConfirmArchive(ctx)}
			}
		}
		m.busy = "Deleting"
		return m, func() tea.Msg {
			return mutationMsg{op: opDelete, err: session.ConfirmDelete(ctx)}
		}
	case "n", "N", "esc", "q":
		if archive {
			m.session.CancelArchive()
		} else {
			m.session.CancelDelete()
		}
		m.viewMode = ViewList
	}
	return m, nil
}
