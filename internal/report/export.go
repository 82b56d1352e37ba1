package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/evanschultz/taskflow/internal/domain"
)

// Format identifies an export rendering.
type Format string

// Format values.
const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
)

// ParseFormat normalizes an export format name.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatMarkdown, FormatText, FormatHTML:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json|md|txt|html)", raw)
	}
}

// ExportFileName returns the dated download name for one export format.
func ExportFileName(f Format, now time.Time) string {
	day := now.Format("2006-01-02")
	switch f {
	case FormatHTML:
		return "TaskFlow-Report-" + day + ".html"
	case FormatText:
		return "TaskFlow-Summary-" + day + ".txt"
	case FormatJSON:
		return "TaskFlow-Board-" + day + ".json"
	default:
		return "TaskFlow-Report-" + day + ".md"
	}
}

// Document is the input to every exporter.
type Document struct {
	GeneratedAt time.Time
	Summary     Summary
	Tasks       []domain.Task
	DateLayout  string
}

// NewDocument summarizes tasks at now.
func NewDocument(tasks []domain.Task, now time.Time) Document {
	return Document{
		GeneratedAt: now,
		Summary:     Summarize(tasks, now),
		Tasks:       tasks,
		DateLayout:  DefaultDateLayout,
	}
}

func (d Document) date(t time.Time) string {
	layout := d.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}

// statusLabel upper-cases a status id with its first dash turned into a space.
func statusLabel(status string) string {
	return strings.ToUpper(strings.Replace(status, "-", " ", 1))
}

// Markdown renders the summary and task list as markdown.
func (d Document) Markdown() string {
	s := d.Summary
	var b strings.Builder
	b.WriteString("# TaskFlow Project Report\n\n")
	fmt.Fprintf(&b, "_Generated on %s_\n\n", d.GeneratedAt.Format("Monday, January 2, 2006"))
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Tasks:** %d\n", s.Total)
	fmt.Fprintf(&b, "- **Completed:** %d\n", s.Done)
	fmt.Fprintf(&b, "- **In Progress:** %d\n", s.InProgress)
	fmt.Fprintf(&b, "- **To Do:** %d\n", s.Todo)
	fmt.Fprintf(&b, "- **Completion Rate:** %d%%\n", s.CompletionRate)
	fmt.Fprintf(&b, "- **Average Progress:** %d%%\n\n", s.AverageProgress)
	b.WriteString("## Priority\n\n")
	b.WriteString("| Priority | Tasks |\n|---|---|\n")
	for _, p := range domain.Priorities() {
		fmt.Fprintf(&b, "| %s | %d |\n", p, s.ByPriority[p])
	}
	b.WriteString("\n## All Tasks\n\n")
	if len(d.Tasks) == 0 {
		b.WriteString("No tasks yet.\n")
		return b.String()
	}
	b.WriteString("| Title | Priority | Status | Assignee | Progress | Created |\n|---|---|---|---|---|---|\n")
	for _, task := range d.Tasks {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d%% | %s |\n",
			escapeCell(task.Title), task.Priority, statusLabel(task.Status), escapeCell(task.Assignee.Name), task.Progress, d.date(task.CreatedAt))
	}
	return b.String()
}

var lineFolder = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func oneLine(v string) string {
	return lineFolder.Replace(v)
}

// escapeCell keeps a value inside one table cell.
func escapeCell(v string) string {
	return strings.ReplaceAll(oneLine(v), "|", `\|`)
}

// Text renders the plain-text summary.
func (d Document) Text() string {
	s := d.Summary
	var b strings.Builder
	b.WriteString("TASKFLOW PROJECT REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", d.date(d.GeneratedAt))
	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "- Total Tasks: %d\n", s.Total)
	fmt.Fprintf(&b, "- Completed: %d\n", s.Done)
	fmt.Fprintf(&b, "- In Progress: %d\n", s.InProgress)
	fmt.Fprintf(&b, "- To Do: %d\n", s.Todo)
	fmt.Fprintf(&b, "- Completion Rate: %d%%\n\n", s.CompletionRate)
	b.WriteString("TASK DETAILS:\n")
	for _, task := range d.Tasks {
		fmt.Fprintf(&b, "\n• %s\n", oneLine(task.Title))
		fmt.Fprintf(&b, "  Priority: %s\n", strings.ToUpper(string(task.Priority)))
		fmt.Fprintf(&b, "  Status: %s\n", statusLabel(task.Status))
		fmt.Fprintf(&b, "  Assignee: %s\n", task.Assignee.Name)
		fmt.Fprintf(&b, "  Progress: %d%%\n", task.Progress)
		fmt.Fprintf(&b, "  Description: %s\n", task.Description)
		fmt.Fprintf(&b, "  Created: %s\n", d.date(task.CreatedAt))
	}
	b.WriteString("\nGenerated by TaskFlow - Premium Project Management\n")
	return b.String()
}

var htmlShell = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>TaskFlow Project Report</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 40px; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: #333; }
.container { max-width: 800px; margin: 0 auto; background: white; border-radius: 20px; padding: 40px; }
h1, h2 { color: #667eea; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #e1e5f2; padding: 8px; text-align: left; }
.footer { text-align: center; margin-top: 40px; color: #888; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
{{.Body}}
<div class="footer"><p>This report was generated by TaskFlow - Premium Project Management</p></div>
</div>
</body>
</html>
`))

var reportMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the markdown report into a standalone page.
func (d Document) HTML() (string, error) {
	var body bytes.Buffer
	if err := reportMarkdown.Convert([]byte(d.Markdown()), &body); err != nil {
		return "", fmt.Errorf("render report markdown: %w", err)
	}
	safe := bluemonday.UGCPolicy().SanitizeBytes(body.Bytes())

	var out bytes.Buffer
	if err := htmlShell.Execute(&out, struct{ Body template.HTML }{Body: template.HTML(safe)}); err != nil {
		return "", fmt.Errorf("render report page: %w", err)
	}
	return out.String(), nil
}
