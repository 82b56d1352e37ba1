package tui

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/taskflow/internal/config"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/report"
	"github.com/evanschultz/taskflow/internal/translator"
)

// pageWidth returns the columns left of the sidebar.
func (m Model) pageWidth() int {
	return max(24, m.width-m.sidebarWidth()-1)
}

// bar renders one horizontal bar scaled against maxCount.
func bar(count, maxCount, width int, tint color.Color) string {
	if maxCount <= 0 || count <= 0 {
		return ""
	}
	n := max(1, count*width/maxCount)
	return lipgloss.NewStyle().Foreground(tint).Render(strings.Repeat("█", n))
}

// renderAnalytics renders summary figures and distribution charts.
func (m Model) renderAnalytics(accent, muted color.Color) string {
	s := report.Summarize(m.tasks, m.now())
	heading := lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	figure := func(label string, value string) string {
		return labelStyle.Render(label+" ") + lipgloss.NewStyle().Bold(true).Render(value)
	}

	lines := []string{
		heading.Render("Overview"),
		strings.Join([]string{
			figure("Total Tasks", fmt.Sprint(s.Total)),
			figure("Completion", fmt.Sprintf("%d%%", s.CompletionRate)),
			figure("Avg Progress", fmt.Sprintf("%d%%", s.AverageProgress)),
		}, "   "),
		strings.Join([]string{
			figure("This Week", fmt.Sprint(s.ThisWeek)),
			figure("Productivity", fmt.Sprintf("%d%%", s.Productivity)),
			figure("Critical Done", fmt.Sprintf("%d%%", s.CriticalRate)),
		}, "   "),
		"",
		heading.Render("Status Distribution"),
	}

	barWidth := max(10, m.pageWidth()-24)
	maxStatus := 0
	for _, column := range m.columns {
		maxStatus = max(maxStatus, s.ByStatus[column.ID])
	}
	for _, column := range m.columns {
		count := s.ByStatus[column.ID]
		lines = append(lines, fmt.Sprintf("%-14s %s %d", truncate(column.Title, 14), bar(count, maxStatus, barWidth, columnColor(column)), count))
	}

	lines = append(lines, "", heading.Render("Priority Distribution"))
	maxPriority := 0
	for _, p := range domain.Priorities() {
		maxPriority = max(maxPriority, s.ByPriority[p])
	}
	for _, p := range []domain.Priority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		count := s.ByPriority[p]
		lines = append(lines, fmt.Sprintf("%-14s %s %d", p, bar(count, maxPriority, barWidth, priorityColor(p)), count))
	}
	return strings.Join(lines, "\n")
}

// reportDocument builds the export document for the current board.
func (m Model) reportDocument() report.Document {
	doc := report.NewDocument(m.tasks, m.now())
	doc.DateLayout = report.DateLayout(m.settings.Preferences.DateFormat)
	return doc
}

// renderReports renders the markdown report.
func (m Model) renderReports(muted color.Color) string {
	rendered := m.md.render(m.reportDocument().Markdown(), m.pageWidth()-2, m.settings.Preferences.Theme)
	lines := strings.Split(rendered, "\n")
	start := clamp(m.reportScroll, 0, max(0, len(lines)-1))
	hint := lipgloss.NewStyle().Foreground(muted).Render("y copy summary • x export html • t export txt • m export markdown • j/k scroll")
	return hint + "\n" + strings.Join(lines[start:], "\n")
}

// handleReportsKey handles report page keys.
func (m Model) handleReportsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.copyReport):
		text := m.reportDocument().Text()
		write := m.writeClipboard
		done := m.text(translator.MsgReportCopied, nil)
		return m, func() tea.Msg {
			if err := write(text); err != nil {
				return actionMsg{err: fmt.Errorf("copy to clipboard: %w", err)}
			}
			return actionMsg{status: done}
		}
	case key.Matches(msg, m.keys.exportHTML):
		return m, m.exportReport(report.FormatHTML)
	case key.Matches(msg, m.keys.exportText):
		return m, m.exportReport(report.FormatText)
	case key.Matches(msg, m.keys.exportMD):
		return m, m.exportReport(report.FormatMarkdown)
	case key.Matches(msg, m.keys.moveDown):
		m.reportScroll++
	case key.Matches(msg, m.keys.moveUp):
		m.reportScroll = max(0, m.reportScroll-1)
	}
	return m, nil
}

// exportTarget returns the directory exports are written to, creating it when needed.
func (m Model) exportTarget() (string, error) {
	if m.resolveExportDir != nil {
		return m.resolveExportDir()
	}
	dir := strings.TrimSpace(m.exportDir)
	if dir == "" {
		return "", errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	return dir, nil
}

// exportReport writes one export file.
func (m Model) exportReport(f report.Format) tea.Cmd {
	doc := m.reportDocument()
	return func() tea.Msg {
		dir, err := m.exportTarget()
		if err != nil {
			return actionMsg{err: err}
		}
		var content string
		switch f {
		case report.FormatHTML:
			content, err = doc.HTML()
			if err != nil {
				return actionMsg{err: err}
			}
		case report.FormatText:
			content = doc.Text()
		default:
			content = doc.Markdown()
		}
		path := filepath.Join(dir, report.ExportFileName(f, doc.GeneratedAt))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return actionMsg{err: fmt.Errorf("write export: %w", err)}
		}
		return actionMsg{status: m.text(translator.MsgReportExported, map[string]any{"Path": path})}
	}
}

// activityEntries returns the feed for the selected source.
func (m Model) activityEntries() []report.Entry {
	if m.activitySource == report.SourceSynthesized {
		return report.SynthesizeActivity(m.tasks)
	}
	actor := domain.Assignee{Name: m.profile.Name, Avatar: m.profile.Avatar}
	return report.FromChangeEvents(m.events, m.columns, actor)
}

func activityIcon(t report.EntryType) string {
	switch t {
	case report.EntryCreated:
		return "+"
	case report.EntryCompleted:
		return "✓"
	case report.EntryMoved:
		return "→"
	case report.EntryDeleted:
		return "✗"
	default:
		return "✎"
	}
}

// renderActivity renders the activity feed and its stats header.
func (m Model) renderActivity(accent, muted color.Color) string {
	entries := m.activityEntries()
	stats := report.ActivityStats(entries)
	heading := lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)

	lines := []string{
		heading.Render("Activity") + mutedStyle.Render("  source: "+string(m.activitySource)+" (s to toggle)"),
		mutedStyle.Render(fmt.Sprintf("created %d · completed %d · updated %d · moved %d · deleted %d",
			stats.Created, stats.Completed, stats.Updated, stats.Moved, stats.Deleted)),
		"",
	}
	if len(entries) == 0 {
		return strings.Join(append(lines, mutedStyle.Render("No activity yet.")), "\n")
	}
	now := m.now()
	width := m.pageWidth()
	start := clamp(m.activityScroll, 0, len(entries)-1)
	for _, entry := range entries[start:] {
		head := fmt.Sprintf("%s %s %s %q", activityIcon(entry.Type), entry.User.Name, entry.Type, entry.Task)
		lines = append(lines,
			truncate(head, width-12)+"  "+mutedStyle.Render(report.TimeAgo(entry.Timestamp, now)),
			mutedStyle.Render("  "+truncate(entry.Details, width-2)),
		)
	}
	return strings.Join(lines, "\n")
}

// handleActivityKey handles activity page keys.
func (m Model) handleActivityKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.toggleSource):
		if m.activitySource == report.SourceRecorded {
			m.activitySource = report.SourceSynthesized
		} else {
			m.activitySource = report.SourceRecorded
		}
		m.activityScroll = 0
	case key.Matches(msg, m.keys.moveDown):
		m.activityScroll = clamp(m.activityScroll+1, 0, max(0, len(m.activityEntries())-1))
	case key.Matches(msg, m.keys.moveUp):
		m.activityScroll = max(0, m.activityScroll-1)
	}
	return m, nil
}

// renderProfile renders the profile page.
func (m Model) renderProfile(accent, muted color.Color) string {
	p := m.profile
	heading := lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-10s", label)) + " " + value
	}
	assigned, completed := 0, 0
	for _, task := range m.tasks {
		if !strings.EqualFold(task.Assignee.Name, p.Name) {
			continue
		}
		assigned++
		if task.Status == domain.StatusDone {
			completed++
		}
	}
	return strings.Join([]string{
		heading.Render(p.Name),
		labelStyle.Render(p.Email),
		"",
		row("Bio", p.Bio),
		row("Location", p.Location),
		row("Phone", p.Phone),
		row("Joined", p.JoinDate),
		row("Avatar", p.Avatar),
		"",
		row("Assigned", fmt.Sprint(assigned)),
		row("Completed", fmt.Sprint(completed)),
		"",
		labelStyle.Render("e edit profile • O sign out"),
	}, "\n")
}

// handleProfileKey handles profile page keys.
func (m Model) handleProfileKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.editProfile) {
		return m, m.startProfileForm()
	}
	return m, nil
}

// settingItem is one row on the settings page.
type settingItem struct {
	section string
	label   string
	value   func(config.Config) string
	change  func(*config.Config)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// toggle builds a boolean setting row.
func toggle(section, label string, field func(*config.Config) *bool) settingItem {
	return settingItem{
		section: section,
		label:   label,
		value: func(c config.Config) string {
			return onOff(*field(&c))
		},
		change: func(c *config.Config) {
			f := field(c)
			*f = !*f
		},
	}
}

// cycle builds a multiple-choice setting row.
func cycle(section, label string, opts []config.Option, field func(*config.Config) *string) settingItem {
	return settingItem{
		section: section,
		label:   label,
		value: func(c config.Config) string {
			return config.OptionLabel(opts, *field(&c))
		},
		change: func(c *config.Config) {
			f := field(c)
			*f = config.NextOption(opts, *f)
		},
	}
}

// settingItems lists the settings rows in display order.
func settingItems() []settingItem {
	return []settingItem{
		toggle("Board", "Show progress", func(c *config.Config) *bool { return &c.Board.ShowProgress }),
		toggle("Board", "Show assignee", func(c *config.Config) *bool { return &c.Board.ShowAssignee }),
		toggle("Notifications", "Email notifications", func(c *config.Config) *bool { return &c.Notifications.Email }),
		toggle("Notifications", "Push notifications", func(c *config.Config) *bool { return &c.Notifications.Push }),
		toggle("Notifications", "Desktop notifications", func(c *config.Config) *bool { return &c.Notifications.Desktop }),
		toggle("Notifications", "Task updates", func(c *config.Config) *bool { return &c.Notifications.TaskUpdates }),
		toggle("Notifications", "Weekly digest", func(c *config.Config) *bool { return &c.Notifications.WeeklyDigest }),
		cycle("Privacy", "Profile visibility", config.VisibilityOptions, func(c *config.Config) *string { return &c.Privacy.ProfileVisibility }),
		toggle("Privacy", "Activity status", func(c *config.Config) *bool { return &c.Privacy.ActivityStatus }),
		toggle("Privacy", "Data collection", func(c *config.Config) *bool { return &c.Privacy.DataCollection }),
		cycle("Preferences", "Theme", config.ThemeOptions, func(c *config.Config) *string { return &c.Preferences.Theme }),
		cycle("Preferences", "Language", config.LanguageOptions, func(c *config.Config) *string { return &c.Preferences.Language }),
		cycle("Preferences", "Timezone", config.TimezoneOptions, func(c *config.Config) *string { return &c.Preferences.Timezone }),
		cycle("Preferences", "Date format", config.DateFormatOptions, func(c *config.Config) *string { return &c.Preferences.DateFormat }),
	}
}

// renderSettings renders the settings rows grouped by section.
func (m Model) renderSettings(accent, muted color.Color) string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

	var lines []string
	section := ""
	for idx, item := range settingItems() {
		if item.section != section {
			if section != "" {
				lines = append(lines, "")
			}
			section = item.section
			lines = append(lines, heading.Render(section))
		}
		row := fmt.Sprintf("  %-24s %s", item.label, item.value(m.settings))
		if idx == m.settingsIndex {
			lines = append(lines, selectedStyle.Render("›"+row[1:]))
			continue
		}
		lines = append(lines, mutedStyle.Render(row))
	}
	return strings.Join(lines, "\n")
}

// handleSettingsKey moves through settings and applies changes.
func (m Model) handleSettingsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	items := settingItems()
	switch {
	case key.Matches(msg, m.keys.moveDown):
		m.settingsIndex = clamp(m.settingsIndex+1, 0, len(items)-1)
	case key.Matches(msg, m.keys.moveUp):
		m.settingsIndex = clamp(m.settingsIndex-1, 0, len(items)-1)
	case key.Matches(msg, m.keys.toggleOption):
		m.applySetting(items[clamp(m.settingsIndex, 0, len(items)-1)])
	}
	return m, nil
}

// applySetting changes one setting, re-localizes and saves.
func (m *Model) applySetting(item settingItem) {
	prevLang := m.settings.Preferences.Language
	item.change(&m.settings)
	if m.tr != nil && m.settings.Preferences.Language != prevLang {
		m.tr.SetLanguage(m.settings.Preferences.Language)
	}
	if m.saveSettings != nil {
		if err := m.saveSettings(m.settings); err != nil {
			m.failure(fmt.Errorf("save settings: %w", err))
			return
		}
	}
	m.status = m.text(translator.MsgSettingUpdated, nil)
	m.statusErr = false
}
