// Package report derives summaries, activity feeds and exports from a board snapshot.
package report

import (
	"math"
	"time"

	"github.com/evanschultz/taskflow/internal/domain"
)

// thisWeekWindow is the look-back for the "tasks this week" figure.
const thisWeekWindow = 7 * 24 * time.Hour

// Summary holds the aggregate figures shown on the reports and analytics pages.
type Summary struct {
	Total      int                     `json:"total"`
	Todo       int                     `json:"todo"`
	InProgress int                     `json:"in_progress"`
	Done       int                     `json:"done"`
	ByStatus   map[string]int          `json:"by_status"`
	ByPriority map[domain.Priority]int `json:"by_priority"`

	CompletionRate  int `json:"completion_rate"`
	AverageProgress int `json:"average_progress"`
	ThisWeek        int `json:"this_week"`
	Productivity    int `json:"productivity"`
	CriticalRate    int `json:"critical_rate"`
}

// Summarize aggregates tasks. Statuses outside the built-in columns count toward Total and
// ByStatus only.
func Summarize(tasks []domain.Task, now time.Time) Summary {
	s := Summary{
		Total:      len(tasks),
		ByStatus:   map[string]int{},
		ByPriority: map[domain.Priority]int{},
	}
	for _, p := range domain.Priorities() {
		s.ByPriority[p] = 0
	}
	weekAgo := now.Add(-thisWeekWindow)
	var progressSum, highTotal, highDone int
	for _, task := range tasks {
		s.ByStatus[task.Status]++
		s.ByPriority[task.Priority]++
		progressSum += task.Progress
		switch task.Status {
		case domain.StatusTodo:
			s.Todo++
		case domain.StatusInProgress:
			s.InProgress++
		case domain.StatusDone:
			s.Done++
		}
		if !task.CreatedAt.Before(weekAgo) {
			s.ThisWeek++
		}
		if task.Priority == domain.PriorityHigh {
			highTotal++
			if task.Status == domain.StatusDone {
				highDone++
			}
		}
	}
	s.CompletionRate = percent(s.Done, s.Total)
	s.Productivity = s.CompletionRate
	s.CriticalRate = percent(highDone, highTotal)
	if s.Total > 0 {
		s.AverageProgress = int(math.Round(float64(progressSum) / float64(s.Total)))
	}
	return s
}

// percent returns round(part/whole*100), or 0 when whole is zero.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
