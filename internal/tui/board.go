package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/taskflow/internal/board"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/translator"
)

const (
	// cardHeight is the number of rows one task card occupies.
	cardHeight = 3
	// columnChrome covers the column title and its rule.
	columnChrome = 2
)

// cardLayout is one visible card on screen.
type cardLayout struct {
	taskID string
	index  int
	rect   board.Rect
}

// columnLayout is one column box on screen.
type columnLayout struct {
	id         string
	rect       board.Rect
	innerWidth int
	cards      []cardLayout
}

// boardLayout maps screen cells to columns and cards. View and the mouse handlers share it.
type boardLayout struct {
	columns    []columnLayout
	bounds     board.Rect
	colWidth   int
	innerLines int
}

// columnStyle returns the column box style.
func columnStyle(width int, border color.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(width)
}

// columnWidthFor returns column width for.
func (m Model) columnWidthFor(boardWidth int) int {
	if len(m.columns) == 0 {
		return 24
	}
	w := 28
	if boardWidth > 0 {
		// Per-column overhead: left/right border (2), horizontal padding (2)
		const colOverhead = 4
		usable := boardWidth - len(m.columns)*colOverhead
		if candidate := usable / len(m.columns); candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 18, 40)
}

// layout computes the board geometry for the current size and selection.
func (m Model) layout() boardLayout {
	x0 := m.sidebarWidth()
	top := m.bodyTop()
	colWidth := m.columnWidthFor(max(0, m.width-x0))
	outer := lipgloss.Width(columnStyle(colWidth, lipgloss.Color("239")).Render(""))
	inner := max(1, outer-4)
	innerLines := max(columnChrome+cardHeight, m.bodyHeight()-2)
	fit := max(1, (innerLines-columnChrome+1)/(cardHeight+1))

	out := boardLayout{colWidth: colWidth, innerLines: innerLines}
	for idx, column := range m.columns {
		x := x0 + idx*outer
		tasks := m.tasksForColumn(idx)
		first := 0
		if idx == m.selectedColumn && m.selectedTask >= fit {
			first = m.selectedTask - fit + 1
		}
		cl := columnLayout{
			id:         column.ID,
			rect:       board.Rect{X: float64(x), Y: float64(top), W: float64(outer), H: float64(innerLines + 2)},
			innerWidth: inner,
		}
		for i := first; i < len(tasks) && i < first+fit; i++ {
			y := top + 1 + columnChrome + (i-first)*(cardHeight+1)
			cl.cards = append(cl.cards, cardLayout{
				taskID: tasks[i].ID,
				index:  i,
				rect:   board.Rect{X: float64(x + 2), Y: float64(y), W: float64(inner), H: cardHeight},
			})
		}
		out.columns = append(out.columns, cl)
	}
	out.bounds = board.Rect{
		X: float64(x0),
		Y: float64(top),
		W: float64(len(m.columns) * outer),
		H: float64(innerLines + 2),
	}
	return out
}

// cellIn reports whether the cell x, y lies inside r.
func cellIn(r board.Rect, x, y int) bool {
	fx, fy := float64(x), float64(y)
	return fx >= r.X && fx < r.X+r.W && fy >= r.Y && fy < r.Y+r.H
}

// columnAt returns the column index under x, y.
func (l boardLayout) columnAt(x, y int) (int, bool) {
	for idx, column := range l.columns {
		if cellIn(column.rect, x, y) {
			return idx, true
		}
	}
	return 0, false
}

// cardAt returns the card under x, y.
func (l boardLayout) cardAt(x, y int) (int, cardLayout, bool) {
	for idx, column := range l.columns {
		for _, card := range column.cards {
			if cellIn(card.rect, x, y) {
				return idx, card, true
			}
		}
	}
	return 0, cardLayout{}, false
}

// zones returns the drop zones in column display order.
func (l boardLayout) zones() []board.Zone {
	out := make([]board.Zone, 0, len(l.columns))
	for _, column := range l.columns {
		out = append(out, board.Zone{ID: column.id, Rect: column.rect})
	}
	return out
}

// paletteColors maps palette names onto terminal colors.
var paletteColors = map[string]string{
	"blue":   "33",
	"purple": "135",
	"green":  "42",
	"red":    "203",
	"orange": "214",
	"pink":   "212",
	"indigo": "63",
	"teal":   "37",
}

// columnColor returns the terminal color for a column's palette entry.
func columnColor(column domain.Column) color.Color {
	if c, ok := paletteColors[domain.PaletteName(column.Color)]; ok {
		return lipgloss.Color(c)
	}
	return lipgloss.Color("62")
}

func priorityColor(p domain.Priority) color.Color {
	switch p {
	case domain.PriorityHigh:
		return lipgloss.Color("203")
	case domain.PriorityLow:
		return lipgloss.Color("42")
	default:
		return lipgloss.Color("214")
	}
}

// progressBar renders a fixed-width bar for 0..100.
func progressBar(progress, width int) string {
	width = max(1, width)
	filled := clamp(progress, 0, 100) * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// cardLines renders exactly cardHeight lines for one task.
func (m Model) cardLines(task domain.Task, width int, selected, ghost bool, muted color.Color) []string {
	marker := "  "
	if selected {
		marker = "▌ "
	}
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	if selected {
		titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	}
	subStyle := lipgloss.NewStyle().Foreground(muted)
	if ghost {
		titleStyle = subStyle
	}

	meta := string(task.Priority)
	if m.settings.Board.ShowAssignee {
		meta += " · " + task.Assignee.Name
	}
	lines := []string{
		titleStyle.Render(marker + truncate(task.Title, width-2)),
		"  " + lipgloss.NewStyle().Foreground(priorityColor(task.Priority)).Render("●") + " " + subStyle.Render(truncate(meta, width-4)),
		"",
	}
	if m.settings.Board.ShowProgress {
		label := fmt.Sprintf(" %d%%", task.Progress)
		lines[2] = "  " + subStyle.Render(progressBar(task.Progress, width-2-len(label))+label)
	}
	return lines
}

// renderBoard renders the dashboard columns.
func (m Model) renderBoard(accent, muted, dim color.Color) string {
	if len(m.columns) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Render("No columns yet. Press c to create one.")
	}
	layout := m.layout()
	ghostID := ""
	if task, ok := m.drag.Active(); ok {
		ghostID = task.ID
	}
	mutedStyle := lipgloss.NewStyle().Foreground(muted)

	views := make([]string, 0, len(m.columns))
	for idx, column := range m.columns {
		cl := layout.columns[idx]
		tasks := m.tasksForColumn(idx)
		tint := columnColor(column)

		border := dim
		switch {
		case m.dropTarget != "" && m.dropTarget == column.ID:
			border = tint
		case idx == m.selectedColumn:
			border = accent
		}
		titleStyle := lipgloss.NewStyle().Bold(true).Foreground(tint)
		lines := []string{
			titleStyle.Render(truncate(fmt.Sprintf("%s (%d)", column.Title, len(tasks)), cl.innerWidth)),
			lipgloss.NewStyle().Foreground(tint).Render(strings.Repeat("─", cl.innerWidth)),
		}
		if len(tasks) == 0 {
			lines = append(lines, mutedStyle.Render("(empty)"))
		}
		for i, card := range cl.cards {
			task := tasks[card.index]
			selected := idx == m.selectedColumn && card.index == m.selectedTask
			lines = append(lines, m.cardLines(task, cl.innerWidth, selected, task.ID == ghostID, muted)...)
			if i < len(cl.cards)-1 {
				lines = append(lines, "")
			}
		}
		views = append(views, columnStyle(layout.colWidth, border).Render(fitLines(strings.Join(lines, "\n"), layout.innerLines)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// dragPreview renders the floating card that follows the pointer.
func (m Model) dragPreview() (string, int, int, bool) {
	task, ok := m.drag.Active()
	if !ok || m.page != pageDashboard {
		return "", 0, 0, false
	}
	dx, dy := m.drag.Offset()
	at := m.dragOrigin.Translate(dx, dy)
	width := max(8, int(m.dragOrigin.W))
	lines := m.cardLines(task, width, true, false, lipgloss.Color("241"))
	preview := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("212")).
		Render(strings.Join(lines, "\n"))
	return preview, int(at.X) - 1, int(at.Y) - 1, true
}

// handleBoardKey handles dashboard keys.
func (m Model) handleBoardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedTask = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			m.selectedTask = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask--
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask++
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.addTask):
		return m, m.startTaskForm(nil)
	case key.Matches(msg, m.keys.editTask):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.startTaskForm(&task)
	case key.Matches(msg, m.keys.deleteTask):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.deleteTaskID = task.ID
		return m, nil
	case key.Matches(msg, m.keys.moveTaskLeft):
		return m.moveSelectedTask(-1)
	case key.Matches(msg, m.keys.moveTaskRight):
		return m.moveSelectedTask(1)
	case key.Matches(msg, m.keys.addColumn):
		return m, m.startColumnForm()
	default:
		return m, nil
	}
}

// moveSelectedTask reassigns the selected task to the neighbouring column.
func (m Model) moveSelectedTask(delta int) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskInCurrentColumn()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	target := m.selectedColumn + delta
	if target < 0 || target >= len(m.columns) {
		return m, nil
	}
	column := m.columns[target]
	svc := m.svc
	done := m.text(translator.MsgTaskMoved, map[string]any{"Column": column.Title})
	return m, func() tea.Msg {
		moved, err := svc.ReassignStatus(context.Background(), task.ID, column.ID)
		if err != nil {
			return actionMsg{err: err, reload: true}
		}
		return actionMsg{status: done, reload: true, focusTaskID: moved.ID}
	}
}

func pointAt(mouse tea.Mouse) board.Point {
	return board.Point{X: float64(mouse.X), Y: float64(mouse.Y)}
}

// handleMouseWheel handles mouse wheel.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	delta := 0
	switch msg.Button {
	case tea.MouseWheelUp:
		delta = -1
	case tea.MouseWheelDown:
		delta = 1
	}
	switch m.page {
	case pageDashboard:
		m.selectedTask += delta
		m.clampSelections()
	case pageReports:
		m.reportScroll = max(0, m.reportScroll+delta)
	case pageActivity:
		m.activityScroll = max(0, m.activityScroll+delta)
	case pageSettings:
		m.settingsIndex = clamp(m.settingsIndex+delta, 0, len(settingItems())-1)
	}
	return m, nil
}

// handleMouseClick selects pages, columns and cards, and arms a drag on a card press.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone || !m.authed {
		return m, nil
	}
	mouse := msg.Mouse()
	if mouse.Button != tea.MouseLeft {
		return m, nil
	}
	if mouse.X < m.sidebarWidth() {
		if idx := mouse.Y - m.bodyTop(); idx >= 0 && idx < len(pageOrder) {
			m.setPage(pageOrder[idx])
		}
		return m, nil
	}
	if m.page != pageDashboard {
		return m, nil
	}

	layout := m.layout()
	if colIdx, card, ok := layout.cardAt(mouse.X, mouse.Y); ok {
		m.selectedColumn = colIdx
		m.selectedTask = card.index
		m.dragOrigin = card.rect
		m.drag.PointerDown(card.taskID, pointAt(mouse))
		return m, nil
	}
	if colIdx, ok := layout.columnAt(mouse.X, mouse.Y); ok {
		m.selectedColumn = colIdx
		m.clampSelections()
	}
	return m, nil
}

// handleMouseMotion feeds pointer travel into the drag controller.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.page != pageDashboard || m.drag.State() == board.StateIdle {
		return m, nil
	}
	if m.drag.PointerMove(context.Background(), pointAt(msg.Mouse())) {
		m.dropTarget = m.resolveDrop()
	}
	return m, nil
}

// handleMouseRelease finishes a press or drag.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.drag.State() == board.StateIdle {
		return m, nil
	}
	ctx := context.Background()
	at := pointAt(msg.Mouse())
	target := ""
	if m.drag.PointerMove(ctx, at) {
		target = m.resolveDrop()
	}
	m.dropTarget = ""
	res, err := m.drag.PointerUp(ctx, at, target)
	notes := m.notes.drain()
	if err != nil {
		m.failure(err)
		return m, m.loadData
	}
	switch res.Outcome {
	case board.OutcomeMoved:
		for _, note := range notes {
			if note.Level == board.LevelSuccess {
				m.status = note.Message
				m.statusErr = false
			}
		}
		m.pendingFocusTaskID = res.TaskID
		return m, m.loadData
	case board.OutcomeClick:
		task, ok := m.taskByID(res.TaskID)
		if !ok {
			return m, nil
		}
		return m, m.startTaskForm(&task)
	default:
		return m, nil
	}
}

// resolveDrop returns the column under the dragged card, or "" outside the board.
func (m Model) resolveDrop() string {
	layout := m.layout()
	dx, dy := m.drag.Offset()
	active := m.dragOrigin.Translate(dx, dy)
	return board.Resolver{Bounds: layout.bounds}.Resolve(active, layout.zones())
}
