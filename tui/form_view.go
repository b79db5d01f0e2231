package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
)

const (
	opCreate  = "create"
	opStatus  = "status"
	opArchive = "archive"
	opDelete  = "delete"
)

var fieldTitles = map[string]string{
	models.FieldCompany:          "Company",
	models.FieldContactPerson:    "Contact person",
	models.FieldPhone:            "Phone",
	models.FieldEmail:            "Email",
	models.FieldFirstContactDate: "First contact",
	models.FieldComment:          "Comment",
	models.FieldStatus:           "Status",
}

func newCreateInputs() []textinput.Model {
	inputs := make([]textinput.Model, len(models.FormFields))
	for i, field := range models.FormFields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = fieldTitles[field]
		inputs[i].CharLimit = 200
	}
	inputs[4].Placeholder = "First contact (YYYY-MM-DD)"
	inputs[5].CharLimit = 500
	return inputs
}

func (m Model) renderCreateView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("NEW PROSPECT"))
	s.WriteString("\n\n")

	for i, input := range m.form {
		if i == m.formFocus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	draft := m.session.CreateState()
	if draft.State == listview.Committing {
		s.WriteString("\n" + mutedStyle.Render("Saving…"))
	}
	if draft.Err != nil {
		s.WriteString("\n" + noticeStyle.Render("Could not save: "+draft.Err.Error()))
	}

	s.WriteString("\n")
	s.WriteString(m.renderCreateHelp())
	return s.String()
}

func (m Model) renderCreateHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleCreateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.session.CancelCreate()
		m.viewMode = ViewList
		return m, nil
	case "tab", "down":
		m.formFocus = (m.formFocus + 1) % len(m.form)
		cmd := m.focusForm()
		return m, cmd
	case "shift+tab", "up":
		m.formFocus = (m.formFocus + len(m.form) - 1) % len(m.form)
		cmd := m.focusForm()
		return m, cmd
	case "enter":
		for i, field := range models.FormFields {
			_ = m.session.SetDraftField(field, strings.TrimSpace(m.form[i].Value()))
		}
		m.busy = "Saving"
		session, ctx := m.session, m.ctx
		return m, func() tea.Msg {
			_, err := session.SubmitCreate(ctx)
			return mutationMsg{op: opCreate, err: err}
		}
	}

	// Update current input
	var cmd tea.Cmd
	m.form[m.formFocus], cmd = m.form[m.formFocus].Update(msg)
	return m, cmd
}

func (m *Model) focusForm() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.form {
		if i == m.formFocus {
			cmd = m.form[i].Focus()
		} else {
			m.form[i].Blur()
		}
	}
	return cmd
}
