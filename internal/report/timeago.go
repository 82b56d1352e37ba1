package report

import (
	"strconv"
	"time"
)

// DefaultDateLayout matches the US short date used when no preference is set.
const DefaultDateLayout = "1/2/2006"

// TimeAgo renders how long before now the instant at happened.
func TimeAgo(at, now time.Time) string {
	minutes := int(now.Sub(at) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return strconv.Itoa(minutes) + "m ago"
	}
	hours := minutes / 60
	if hours < 24 {
		return strconv.Itoa(hours) + "h ago"
	}
	days := hours / 24
	if days < 7 {
		return strconv.Itoa(days) + "d ago"
	}
	return at.Format(DefaultDateLayout)
}

// DateLayout converts a date format preference into a time layout.
func DateLayout(pref string) string {
	switch pref {
	case "MM/DD/YYYY":
		return "01/02/2006"
	case "DD/MM/YYYY":
		return "02/01/2006"
	case "YYYY-MM-DD":
		return "2006-01-02"
	default:
		return DefaultDateLayout
	}
}
