package tui

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/board"
	"github.com/evanschultz/taskflow/internal/config"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/report"
	"github.com/evanschultz/taskflow/internal/session"
	"github.com/evanschultz/taskflow/internal/translator"
)

// Service represents service data used by this package.
type Service interface {
	Snapshot(context.Context) (app.Snapshot, error)
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
	GetTask(context.Context, string) (domain.Task, error)
	GetColumn(context.Context, string) (domain.Column, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	UpdateTask(context.Context, app.UpdateTaskInput) (domain.Task, error)
	ReassignStatus(context.Context, string, string) (domain.Task, error)
	DeleteTask(context.Context, string) error
	CreateColumn(context.Context, string, string) (domain.Column, error)
}

// page identifies one navigation destination.
type page int

const (
	pageDashboard page = iota
	pageAnalytics
	pageReports
	pageActivity
	pageProfile
	pageSettings
)

var pageOrder = []page{pageDashboard, pageAnalytics, pageReports, pageActivity, pageProfile, pageSettings}

// title returns the sidebar label.
func (p page) title() string {
	switch p {
	case pageAnalytics:
		return "Analytics"
	case pageReports:
		return "Reports"
	case pageActivity:
		return "Activity Logs"
	case pageProfile:
		return "Profile"
	case pageSettings:
		return "Settings"
	default:
		return "Dashboard"
	}
}

func (p page) step(delta int) page {
	n := len(pageOrder)
	return pageOrder[((int(p)+delta)%n+n)%n]
}

// inputMode represents a selectable mode.
type inputMode int

const (
	modeNone inputMode = iota
	modeSignIn
	modeAddTask
	modeEditTask
	modeAddColumn
	modeConfirmDelete
	modeEditProfile
)

const statusLoading = "loading..."

// loadedMsg carries one board and session refresh.
type loadedMsg struct {
	snapshot app.Snapshot
	events   []domain.ChangeEvent
	authed   bool
	user     domain.User
	err      error
}

// actionMsg reports the result of one mutation.
type actionMsg struct {
	err         error
	status      string
	reload      bool
	focusTaskID string
	user        *domain.User
	signedOut   bool
}

// noteBuffer collects drag notifications raised during one update.
type noteBuffer struct {
	items []board.Notification
}

// Notify implements board.Notifier.
func (b *noteBuffer) Notify(_ context.Context, n board.Notification) {
	b.items = append(b.items, n)
}

func (b *noteBuffer) drain() []board.Notification {
	out := b.items
	b.items = nil
	return out
}

// Model is the bubbletea model for the TaskFlow board.
type Model struct {
	svc              Service
	session          *session.Session
	tr               *translator.Translator
	settings         config.Config
	saveSettings     func(config.Config) error
	writeClipboard   func(string) error
	exportDir        string
	resolveExportDir func() (string, error)
	notifier         board.Notifier
	onOutcome        func(board.Outcome)
	now              func() time.Time

	drag       *board.Controller
	notes      *noteBuffer
	md         *markdownRenderer
	dragOrigin board.Rect
	dropTarget string

	ready     bool
	width     int
	height    int
	err       error
	status    string
	statusErr bool

	help help.Model
	keys keyMap

	page             page
	sidebarCollapsed bool
	authed           bool
	user             domain.User
	profile          domain.Profile

	columns []domain.Column
	tasks   []domain.Task
	events  []domain.ChangeEvent

	selectedColumn     int
	selectedTask       int
	pendingFocusTaskID string

	mode          inputMode
	formInputs    []textinput.Model
	formFocus     int
	formPriority  int
	formAssignee  int
	formProgress  int
	formStatus    int
	formColor     int
	editingTaskID string
	deleteTaskID  string

	activitySource report.Source
	activityScroll int
	reportScroll   int
	settingsIndex  int
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:            svc,
		settings:       config.Default(""),
		writeClipboard: clipboard.WriteAll,
		now:            time.Now,
		notes:          &noteBuffer{},
		md:             &markdownRenderer{},
		status:         statusLoading,
		help:           h,
		keys:           newKeyMap(),
		profile:        domain.DefaultProfile(),
		activitySource: report.SourceRecorded,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if m.tr == nil {
		if tr, err := translator.New(m.settings.Preferences.Language); err == nil {
			m.tr = tr
		}
	}

	dragOpts := []board.Option{
		board.WithActivationDistance(float64(m.settings.Board.DragActivationDistance)),
		board.WithOutcomeHook(m.onOutcome),
	}
	if m.tr != nil {
		dragOpts = append(dragOpts, board.WithLocalizer(m.tr))
	}
	m.drag = board.NewController(svc, board.Notifiers{m.notes, m.notifier}, dragOpts...)
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.columns = msg.snapshot.Columns
		m.tasks = msg.snapshot.Tasks
		m.events = msg.events
		m.authed = msg.authed
		if msg.authed {
			m.user = msg.user
			m.profile.User = msg.user
		}
		m.clampSelections()
		if m.pendingFocusTaskID != "" {
			m.focusTaskByID(m.pendingFocusTaskID)
			m.pendingFocusTaskID = ""
		}
		if m.status == statusLoading {
			m.status = ""
		}
		if !m.authed && m.mode != modeSignIn {
			return m, m.startSignIn()
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.failure(msg.err)
			if msg.reload {
				return m, m.loadData
			}
			return m, nil
		}
		m.status = msg.status
		m.statusErr = false
		if msg.focusTaskID != "" {
			m.pendingFocusTaskID = msg.focusTaskID
		}
		if msg.user != nil {
			m.user = *msg.user
			m.profile.User = *msg.user
			m.authed = true
		}
		if msg.signedOut {
			m.authed = false
			m.user = domain.User{}
			m.profile = domain.DefaultProfile()
			m.page = pageDashboard
			cmd := m.startSignIn()
			return m, cmd
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m, nil
	}
}

// loadData loads the board snapshot, change log and session state.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	out := loadedMsg{authed: true, user: m.profile.User}
	if m.session != nil {
		authed, err := m.session.IsAuthenticated(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		out.authed = authed
		if authed {
			user, err := m.session.CurrentUser(ctx)
			switch {
			case errors.Is(err, session.ErrNotSignedIn):
				out.authed = false
			case err != nil:
				return loadedMsg{err: err}
			default:
				out.user = user
			}
		}
	}
	snap, err := m.svc.Snapshot(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	events, err := m.svc.ListChangeEvents(ctx, 0)
	if err != nil {
		return loadedMsg{err: err}
	}
	out.snapshot = snap
	out.events = events
	return out
}

// text localizes one toast message.
func (m Model) text(id string, data map[string]any) string {
	if m.tr == nil {
		return id
	}
	return m.tr.Localize(id, data)
}

// failure puts one error on the toast line.
func (m *Model) failure(err error) {
	m.status = m.text(translator.MsgActionFailed, map[string]any{"Error": err.Error()})
	m.statusErr = true
}

// handleNormalModeKey handles keys outside of forms.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.reload):
			return m, m.loadData
		}
		return m, nil
	}
	if msg.String() == "esc" && m.drag.State() != board.StateIdle {
		m.drag.Cancel()
		m.notes.drain()
		m.dropTarget = ""
		m.status = "drag cancelled"
		return m, nil
	}
	m.status = ""
	m.statusErr = false

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.loadData
	case key.Matches(msg, m.keys.toggleSidebar):
		m.sidebarCollapsed = !m.sidebarCollapsed
		return m, nil
	case key.Matches(msg, m.keys.nextPage):
		m.setPage(m.page.step(1))
		return m, nil
	case key.Matches(msg, m.keys.prevPage):
		m.setPage(m.page.step(-1))
		return m, nil
	case key.Matches(msg, m.keys.signOut):
		if m.session == nil {
			m.status = "no session configured"
			return m, nil
		}
		return m, m.signOut()
	}
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '6' {
		m.setPage(pageOrder[int(s[0]-'1')])
		return m, nil
	}

	switch m.page {
	case pageDashboard:
		return m.handleBoardKey(msg)
	case pageReports:
		return m.handleReportsKey(msg)
	case pageActivity:
		return m.handleActivityKey(msg)
	case pageProfile:
		return m.handleProfileKey(msg)
	case pageSettings:
		return m.handleSettingsKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) setPage(p page) {
	if m.page == p {
		return
	}
	m.drag.Cancel()
	m.notes.drain()
	m.dropTarget = ""
	m.page = p
	m.reportScroll = 0
	m.activityScroll = 0
}

// signOut clears the session and returns to the sign-in screen.
func (m Model) signOut() tea.Cmd {
	sess := m.session
	done := m.text(translator.MsgSignedOut, nil)
	return func() tea.Msg {
		if err := sess.SignOut(context.Background()); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: done, signedOut: true}
	}
}

// tasksForColumn returns the tasks of one column in store order.
func (m Model) tasksForColumn(idx int) []domain.Task {
	if idx < 0 || idx >= len(m.columns) {
		return nil
	}
	status := m.columns[idx].ID
	out := make([]domain.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

// selectedTaskInCurrentColumn returns the highlighted card.
func (m Model) selectedTaskInCurrentColumn() (domain.Task, bool) {
	tasks := m.tasksForColumn(m.selectedColumn)
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[clamp(m.selectedTask, 0, len(tasks)-1)], true
}

func (m Model) taskByID(id string) (domain.Task, bool) {
	for _, task := range m.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return domain.Task{}, false
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	if len(m.columns) == 0 {
		m.selectedColumn = 0
		m.selectedTask = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.columns)-1)
	m.selectedTask = clamp(m.selectedTask, 0, max(0, len(m.tasksForColumn(m.selectedColumn))-1))
}

// focusTaskByID moves the selection onto one task.
func (m *Model) focusTaskByID(id string) {
	for colIdx := range m.columns {
		for taskIdx, task := range m.tasksForColumn(colIdx) {
			if task.ID == id {
				m.selectedColumn = colIdx
				m.selectedTask = taskIdx
				return
			}
		}
	}
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.renderContent())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderContent composes the full screen.
func (m Model) renderContent() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return statusLoading
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	if !m.authed {
		return m.renderSignIn(accent, muted, dim)
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	header := titleStyle.Render("TaskFlow") + "  " + m.page.title()
	if name := strings.TrimSpace(m.user.Name); name != "" {
		header += statusStyle.Render("  signed in as " + name)
	}

	var body string
	switch m.page {
	case pageAnalytics:
		body = m.renderAnalytics(accent, muted)
	case pageReports:
		body = m.renderReports(muted)
	case pageActivity:
		body = m.renderActivity(accent, muted)
	case pageProfile:
		body = m.renderProfile(accent, muted)
	case pageSettings:
		body = m.renderSettings(accent, muted)
	default:
		body = m.renderBoard(accent, muted, dim)
	}
	bodyHeight := m.bodyHeight()
	body = fitLines(body, bodyHeight)
	sidebar := fitLines(m.renderSidebar(accent, muted), bodyHeight)
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, body)

	statusLine := m.renderStatusLine(muted)
	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(pageKeys{keys: m.keys, page: m.page}))

	content := header + "\n\n" + main + "\n" + statusLine + "\n" + helpLine
	height := max(1, m.height)
	if preview, x, y, ok := m.dragPreview(); ok {
		content = overlayAt(content, preview, x, y, max(1, m.width), height)
	}
	if overlay := m.renderModeOverlay(accent, muted, m.width-8); overlay != "" {
		content = overlayOnContent(content, overlay, max(1, m.width), height)
	}
	if m.help.ShowAll {
		content = overlayOnContent(content, m.renderHelpOverlay(accent, muted), max(1, m.width), height)
	}
	return content
}

// renderSidebar renders the page list.
func (m Model) renderSidebar(accent, muted color.Color) string {
	width := m.sidebarWidth()
	itemStyle := lipgloss.NewStyle().Foreground(muted).Width(width)
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(accent).Width(width)
	lines := make([]string, 0, len(pageOrder)+3)
	for idx, p := range pageOrder {
		label := string(rune('1' + idx))
		if !m.sidebarCollapsed {
			label += " " + p.title()
		}
		if p == m.page {
			lines = append(lines, activeStyle.Render("› "+label))
			continue
		}
		lines = append(lines, itemStyle.Render("  "+label))
	}
	if !m.sidebarCollapsed && m.user.Name != "" {
		lines = append(lines, itemStyle.Render(""), itemStyle.Render("  "+truncate(m.user.Name, width-3)))
	}
	return strings.Join(lines, "\n")
}

// renderStatusLine renders the toast line.
func (m Model) renderStatusLine(muted color.Color) string {
	if strings.TrimSpace(m.status) == "" {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	if m.statusErr {
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	}
	if m.status == statusLoading {
		style = lipgloss.NewStyle().Foreground(muted)
	}
	return style.Render(truncate(m.status, max(1, m.width)))
}

// renderHelpOverlay renders the expanded key help.
func (m Model) renderHelpOverlay(accent, muted color.Color) string {
	h := m.help
	h.ShowAll = true
	h.SetWidth(max(20, m.width-12))
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Keys")
	hint := lipgloss.NewStyle().Foreground(muted).Render("press ? to close")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(title + "\n" + h.View(pageKeys{keys: m.keys, page: m.page}) + "\n" + hint)
}

const (
	headerLines = 2
	footerLines = 3
)

// bodyTop returns the first screen row below the header.
func (m Model) bodyTop() int {
	return headerLines
}

// bodyHeight returns the rows available between header and footer.
func (m Model) bodyHeight() int {
	return max(8, m.height-headerLines-footerLines)
}

func (m Model) sidebarWidth() int {
	if m.sidebarCollapsed {
		return 5
	}
	return 20
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay on top of base.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	return composeLayers(base, centered, 0, 0, width, height)
}

// overlayAt places overlay with its top-left corner at x, y.
func overlayAt(base, overlay string, x, y, width, height int) string {
	x = clamp(x, 0, max(0, width-lipgloss.Width(overlay)))
	y = clamp(y, 0, max(0, height-lipgloss.Height(overlay)))
	return composeLayers(base, overlay, x, y, width, height)
}

func composeLayers(base, overlay string, x, y, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(overlay).X(x).Y(y).Z(10))
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
