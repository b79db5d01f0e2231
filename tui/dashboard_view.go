package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/prospekt/viz"
)

func (m Model) renderDashboardView() string {
	stats := viz.GenerateDashboardStats(m.session.List().Records(), m.session.Catalog().Labels(), time.Now())
	return viz.RenderDashboard(stats) + "\n" + helpStyle.Render("Esc: Back • q: Quit")
}

func (m Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "v":
		m.viewMode = ViewList
	case "q":
		return m, tea.Quit
	}
	return m, nil
}
