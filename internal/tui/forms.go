package tui

import (
	"context"
	"fmt"
	"image/color"
	"slices"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/translator"
)

// taskFieldTitle and related constants index the task form fields.
const (
	taskFieldTitle = iota
	taskFieldDescription
	taskFieldPriority
	taskFieldAssignee
	taskFieldProgress
	taskFieldStatus
)

var taskFormFields = []string{"title", "description", "priority", "assignee", "progress", "status"}

const (
	columnFieldTitle = iota
	columnFieldColor
)

var profileFormFields = []string{"name", "email", "bio", "location", "phone"}

// progressStep is the increment used by the progress picker.
const progressStep = 5

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// assigneeOptions lists the unassigned sentinel followed by the roster.
func assigneeOptions() []domain.Assignee {
	return append([]domain.Assignee{domain.UnassignedAssignee()}, domain.AssigneeRoster()...)
}

// closeForm leaves any input mode.
func (m *Model) closeForm() {
	m.mode = modeNone
	m.formInputs = nil
	m.formFocus = 0
	m.editingTaskID = ""
	m.deleteTaskID = ""
}

// formFieldCount returns how many fields the active form cycles through.
func (m Model) formFieldCount() int {
	switch m.mode {
	case modeAddTask:
		return taskFieldAssignee + 1
	case modeEditTask:
		return taskFieldStatus + 1
	case modeAddColumn:
		return columnFieldColor + 1
	default:
		return len(m.formInputs)
	}
}

// focusFormField moves focus to one field, focusing its text input when it has one.
func (m *Model) focusFormField(idx int) tea.Cmd {
	count := m.formFieldCount()
	if count == 0 {
		return nil
	}
	idx = clamp(idx, 0, count-1)
	m.formFocus = idx
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	if idx >= len(m.formInputs) {
		return nil
	}
	return m.formInputs[idx].Focus()
}

// startTaskForm opens the create form, or the edit form when task is set.
func (m *Model) startTaskForm(task *domain.Task) tea.Cmd {
	m.formInputs = []textinput.Model{
		newModalInput("", "task title (required)", "", 120),
		newModalInput("", "short description", "", 240),
	}
	m.formPriority = slices.Index(domain.Priorities(), domain.PriorityMedium)
	m.formAssignee = 0
	m.formProgress = 0
	m.formStatus = 0
	m.editingTaskID = ""
	m.mode = modeAddTask
	if task != nil {
		m.mode = modeEditTask
		m.editingTaskID = task.ID
		m.formInputs[taskFieldTitle].SetValue(task.Title)
		m.formInputs[taskFieldDescription].SetValue(task.Description)
		if idx := slices.Index(domain.Priorities(), task.Priority); idx >= 0 {
			m.formPriority = idx
		}
		for idx, a := range assigneeOptions() {
			if strings.EqualFold(a.Name, task.Assignee.Name) {
				m.formAssignee = idx
				break
			}
		}
		m.formProgress = task.Progress
		for idx, column := range m.columns {
			if column.ID == task.Status {
				m.formStatus = idx
				break
			}
		}
	}
	return m.focusFormField(taskFieldTitle)
}

// startColumnForm opens the new column form.
func (m *Model) startColumnForm() tea.Cmd {
	m.mode = modeAddColumn
	m.formInputs = []textinput.Model{newModalInput("", "column title (required)", "", 60)}
	m.formColor = 0
	return m.focusFormField(columnFieldTitle)
}

// startSignIn opens the sign-in screen.
func (m *Model) startSignIn() tea.Cmd {
	m.mode = modeSignIn
	m.formInputs = []textinput.Model{
		newModalInput("", "you@example.com", "", 120),
		newModalInput("", "display name (optional)", "", 80),
	}
	return m.focusFormField(0)
}

// startProfileForm opens the profile editor with the current values.
func (m *Model) startProfileForm() tea.Cmd {
	m.mode = modeEditProfile
	p := m.profile
	m.formInputs = []textinput.Model{
		newModalInput("", "full name", p.Name, 80),
		newModalInput("", "email", p.Email, 120),
		newModalInput("", "bio", p.Bio, 240),
		newModalInput("", "location", p.Location, 80),
		newModalInput("", "phone", p.Phone, 40),
	}
	return m.focusFormField(0)
}

// handleInputModeKey handles keys while a form or confirmation is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirmDelete {
		switch msg.String() {
		case "y", "enter":
			return m.submitDelete()
		case "n", "esc":
			m.closeForm()
			m.status = "delete cancelled"
			return m, nil
		default:
			return m, nil
		}
	}

	switch {
	case msg.String() == "ctrl+c" && m.mode == modeSignIn:
		return m, tea.Quit
	case msg.Code == tea.KeyEscape || msg.String() == "esc":
		if m.mode == modeSignIn {
			return m, nil
		}
		m.closeForm()
		m.status = "cancelled"
		return m, nil
	case msg.Code == tea.KeyTab || msg.String() == "tab" || msg.String() == "down":
		return m, m.focusFormField((m.formFocus + 1) % max(1, m.formFieldCount()))
	case msg.String() == "shift+tab" || msg.String() == "up":
		count := max(1, m.formFieldCount())
		return m, m.focusFormField((m.formFocus - 1 + count) % count)
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		return m.submitInputMode()
	}

	if m.formFocus >= len(m.formInputs) {
		switch msg.String() {
		case "h", "left":
			m.cyclePicker(-1)
		case "l", "right", "space", " ":
			m.cyclePicker(1)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

// cyclePicker steps the focused picker field.
func (m *Model) cyclePicker(delta int) {
	wrap := func(v, n int) int {
		if n <= 0 {
			return 0
		}
		return ((v % n) + n) % n
	}
	switch m.mode {
	case modeAddTask, modeEditTask:
		switch m.formFocus {
		case taskFieldPriority:
			m.formPriority = wrap(m.formPriority+delta, len(domain.Priorities()))
		case taskFieldAssignee:
			m.formAssignee = wrap(m.formAssignee+delta, len(assigneeOptions()))
		case taskFieldProgress:
			m.formProgress = clamp(m.formProgress+delta*progressStep, domain.MinProgress, domain.MaxProgress)
		case taskFieldStatus:
			m.formStatus = wrap(m.formStatus+delta, len(m.columns))
		}
	case modeAddColumn:
		m.formColor = wrap(m.formColor+delta, len(domain.ColumnPalette))
	}
}

// submitInputMode submits the active form.
func (m Model) submitInputMode() (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddTask, modeEditTask:
		return m.submitTaskForm()
	case modeAddColumn:
		return m.submitColumnForm()
	case modeSignIn:
		return m.submitSignIn()
	case modeEditProfile:
		return m.submitProfileForm()
	default:
		return m, nil
	}
}

// submitTaskForm creates or patches a task. An empty title keeps the form open.
func (m Model) submitTaskForm() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.formInputs[taskFieldTitle].Value())
	if title == "" {
		m.status = "title required"
		m.statusErr = true
		return m, m.focusFormField(taskFieldTitle)
	}
	description := strings.TrimSpace(m.formInputs[taskFieldDescription].Value())
	priority := domain.Priorities()[clamp(m.formPriority, 0, len(domain.Priorities())-1)]
	assignee := assigneeOptions()[clamp(m.formAssignee, 0, len(assigneeOptions())-1)]
	svc := m.svc

	if m.mode == modeAddTask {
		done := m.text(translator.MsgTaskCreated, nil)
		m.closeForm()
		return m, func() tea.Msg {
			task, err := svc.CreateTask(context.Background(), app.CreateTaskInput{
				Title:       title,
				Description: description,
				Priority:    priority,
				Assignee:    assignee,
			})
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: done, reload: true, focusTaskID: task.ID}
		}
	}

	in := app.UpdateTaskInput{
		ID:          m.editingTaskID,
		Title:       &title,
		Description: &description,
		Priority:    &priority,
		Assignee:    &assignee,
	}
	progress := m.formProgress
	in.Progress = &progress
	if len(m.columns) > 0 {
		status := m.columns[clamp(m.formStatus, 0, len(m.columns)-1)].ID
		in.Status = &status
	}
	done := m.text(translator.MsgTaskUpdated, nil)
	m.closeForm()
	return m, func() tea.Msg {
		task, err := svc.UpdateTask(context.Background(), in)
		if err != nil {
			return actionMsg{err: err, reload: true}
		}
		return actionMsg{status: done, reload: true, focusTaskID: task.ID}
	}
}

// submitColumnForm appends a column.
func (m Model) submitColumnForm() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.formInputs[columnFieldTitle].Value())
	if title == "" {
		m.status = "title required"
		m.statusErr = true
		return m, m.focusFormField(columnFieldTitle)
	}
	colorValue := domain.ColumnPalette[clamp(m.formColor, 0, len(domain.ColumnPalette)-1)].Value
	svc := m.svc
	done := m.text(translator.MsgColumnCreated, nil)
	m.closeForm()
	return m, func() tea.Msg {
		if _, err := svc.CreateColumn(context.Background(), title, colorValue); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: done, reload: true}
	}
}

// submitDelete deletes the confirmed task.
func (m Model) submitDelete() (tea.Model, tea.Cmd) {
	taskID := m.deleteTaskID
	svc := m.svc
	done := m.text(translator.MsgTaskDeleted, nil)
	m.closeForm()
	return m, func() tea.Msg {
		if err := svc.DeleteTask(context.Background(), taskID); err != nil {
			return actionMsg{err: err, reload: true}
		}
		return actionMsg{status: done, reload: true}
	}
}

// submitSignIn signs in through the session. Failures keep the sign-in screen open.
func (m Model) submitSignIn() (tea.Model, tea.Cmd) {
	if m.session == nil {
		m.closeForm()
		m.authed = true
		return m, m.loadData
	}
	email := strings.TrimSpace(m.formInputs[0].Value())
	name := strings.TrimSpace(m.formInputs[1].Value())
	user, err := m.session.SignIn(context.Background(), email, name)
	if err != nil {
		m.failure(err)
		return m, m.focusFormField(0)
	}
	m.closeForm()
	m.status = m.text(translator.MsgSignedIn, map[string]any{"Name": user.Name})
	m.statusErr = false
	m.authed = true
	m.user = user
	m.profile.User = user
	return m, m.loadData
}

// submitProfileForm saves the profile. Name and email go through the session when one is set.
func (m Model) submitProfileForm() (tea.Model, tea.Cmd) {
	values := make([]string, len(m.formInputs))
	for i, in := range m.formInputs {
		values[i] = strings.TrimSpace(in.Value())
	}
	m.profile.Bio = values[2]
	m.profile.Location = values[3]
	m.profile.Phone = values[4]
	done := m.text(translator.MsgProfileUpdated, nil)
	m.closeForm()

	if m.session == nil {
		if values[0] != "" {
			m.profile.Name = values[0]
			m.profile.Avatar = domain.AvatarURL(values[0])
		}
		if values[1] != "" {
			m.profile.Email = values[1]
		}
		m.user = m.profile.User
		m.status = done
		m.statusErr = false
		return m, nil
	}
	sess := m.session
	return m, func() tea.Msg {
		user, err := sess.UpdateUser(context.Background(), values[0], values[1])
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: done, user: &user}
	}
}

// renderModeOverlay renders the active form as a centered box.
func (m Model) renderModeOverlay(accent, muted color.Color, maxWidth int) string {
	if m.mode == modeNone || m.mode == modeSignIn {
		return ""
	}
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		boxStyle = boxStyle.Width(clamp(maxWidth, 24, 72))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	fieldWidth := max(18, min(72, maxWidth)-18)

	label := func(i int, name string) string {
		style := lipgloss.NewStyle().Foreground(muted)
		if i == m.formFocus {
			style = lipgloss.NewStyle().Bold(true).Foreground(accent)
		}
		return style.Render(fmt.Sprintf("%-12s", name+":")) + " "
	}
	picker := func(i int, value string) string {
		if i == m.formFocus {
			return lipgloss.NewStyle().Foreground(accent).Render("‹ " + value + " ›")
		}
		return value
	}

	var lines []string
	hint := "enter save • esc cancel • tab next field"
	switch m.mode {
	case modeConfirmDelete:
		title := m.deleteTaskID
		if task, ok := m.taskByID(m.deleteTaskID); ok {
			title = task.Title
		}
		lines = []string{
			titleStyle.Render("Delete Task"),
			fmt.Sprintf("Delete %q? This cannot be undone.", truncate(title, 40)),
		}
		hint = "y/enter delete • n/esc cancel"
	case modeAddTask, modeEditTask:
		heading := "New Task"
		if m.mode == modeEditTask {
			heading = "Edit Task"
		}
		lines = []string{titleStyle.Render(heading)}
		for i := 0; i < m.formFieldCount(); i++ {
			name := taskFormFields[i]
			switch i {
			case taskFieldTitle, taskFieldDescription:
				in := m.formInputs[i]
				in.SetWidth(fieldWidth)
				lines = append(lines, label(i, name)+in.View())
			case taskFieldPriority:
				lines = append(lines, label(i, name)+picker(i, string(domain.Priorities()[m.formPriority])))
			case taskFieldAssignee:
				lines = append(lines, label(i, name)+picker(i, assigneeOptions()[m.formAssignee].Name))
			case taskFieldProgress:
				lines = append(lines, label(i, name)+picker(i, fmt.Sprintf("%d%%", m.formProgress)))
			case taskFieldStatus:
				status := ""
				if len(m.columns) > 0 {
					status = m.columns[clamp(m.formStatus, 0, len(m.columns)-1)].Title
				}
				lines = append(lines, label(i, name)+picker(i, status))
			}
		}
		if m.formFocus >= taskFieldPriority {
			lines = append(lines, hintStyle.Render("←/→ change value"))
		}
	case modeAddColumn:
		in := m.formInputs[columnFieldTitle]
		in.SetWidth(fieldWidth)
		swatch := domain.ColumnPalette[m.formColor]
		tint := lipgloss.NewStyle().Foreground(lipgloss.Color(paletteColors[swatch.Name])).Render("■ ")
		lines = []string{
			titleStyle.Render("New Column"),
			label(columnFieldTitle, "title") + in.View(),
			label(columnFieldColor, "color") + tint + picker(columnFieldColor, swatch.Label),
		}
	case modeEditProfile:
		lines = []string{titleStyle.Render("Edit Profile")}
		for i, in := range m.formInputs {
			in.SetWidth(fieldWidth)
			lines = append(lines, label(i, profileFormFields[i])+in.View())
		}
	}
	if m.statusErr && m.status != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render(m.status))
	}
	lines = append(lines, hintStyle.Render(hint))
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// renderSignIn renders the sign-in screen.
func (m Model) renderSignIn(accent, muted, dim color.Color) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	labels := []string{"email", "name"}
	lines := []string{
		titleStyle.Render("Welcome to TaskFlow"),
		hintStyle.Render("Sign in to continue"),
		"",
	}
	for i, in := range m.formInputs {
		if i >= len(labels) {
			break
		}
		style := hintStyle
		if i == m.formFocus {
			style = titleStyle
		}
		in.SetWidth(32)
		lines = append(lines, style.Render(fmt.Sprintf("%-7s", labels[i]+":"))+" "+in.View())
	}
	lines = append(lines, "", hintStyle.Render("enter sign in • tab next field • ctrl+c quit"))
	if m.status != "" && m.status != statusLoading {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
		if m.statusErr {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
		}
		lines = append(lines, style.Render(m.status))
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 3).
		Render(strings.Join(lines, "\n"))
	if m.width <= 0 || m.height <= 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
