package emergency

import (
	"fmt"
	"time"
)

// Duration is the elapsed time of an event: until resolution, else until
// all-clear, else until now.
func Duration(e Event, now time.Time) time.Duration {
	end := now
	switch {
	case e.ResolvedAt != nil:
		end = *e.ResolvedAt
	case e.AllClearAt != nil:
		end = *e.AllClearAt
	}
	d := end.Sub(e.InitiatedAt)
	if d < 0 {
		return 0
	}
	return d
}

// FormatDuration renders floor minutes as "45m", "1h5m" or "2h".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, rest)
}

// NextStatusLabel is for display only. The engine re-validates on Advance.
func NextStatusLabel(e Event) (string, bool) {
	next, ok := NextState(e.Status)
	if !ok {
		return "", false
	}
	return next.Label(), true
}

type Summary struct {
	Total      int
	Active     int
	Resolved   int
	Cancelled  int
	ByStatus   map[Status]int
	BySeverity map[Severity]int
}

func Summarize(events []Event) Summary {
	summary := Summary{
		ByStatus:   make(map[Status]int),
		BySeverity: make(map[Severity]int),
	}
	for _, e := range events {
		summary.Total++
		summary.ByStatus[e.Status]++
		summary.BySeverity[e.Severity]++
		switch e.Status {
		case StatusResolved:
			summary.Resolved++
		case StatusCancelled:
			summary.Cancelled++
		default:
			summary.Active++
		}
	}
	return summary
}
