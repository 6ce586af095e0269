package tasks

import (
	"fmt"
	"time"

	"github.com/kuitang/agent-dashboard/internal/errs"
)

// Status selects which tasks a Filter keeps.
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts all, active or completed. Empty means all.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive, StatusCompleted:
		return Status(s), nil
	default:
		return "", errs.Invalidf("unknown task filter %q", s)
	}
}

// Filter keeps tasks matching status, preserving order.
func Filter(tasks []Task, status Status) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		switch status {
		case StatusActive:
			if t.Completed {
				continue
			}
		case StatusCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Stats summarize progress for the dashboard.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

// ComputeStats counts tasks. Percent rounds half up and is 0 for an empty list.
func ComputeStats(tasks []Task) Stats {
	st := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			st.Completed++
		}
	}
	st.Active = st.Total - st.Completed
	if st.Total > 0 {
		st.Percent = (st.Completed*200 + st.Total) / (st.Total * 2)
	}
	return st
}

var dueLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDue reads a stored due date. Zone-less values are taken in loc.
func ParseDue(due string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, due, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// Overdue reports whether an incomplete task's due time is before now.
// Unparseable due dates are never overdue.
func Overdue(t Task, now time.Time) bool {
	if t.Completed {
		return false
	}
	due, ok := ParseDue(t.DueDate, now.Location())
	return ok && due.Before(now)
}

// DueLabel renders the due date relative to now: "Today at 15:04",
// "Tomorrow at 09:00", or "Mon, Jan 2 15:04". Unparseable values are
// returned as stored.
func DueLabel(t Task, now time.Time) string {
	due, ok := ParseDue(t.DueDate, now.Location())
	if !ok {
		return t.DueDate
	}
	switch {
	case sameDay(due, now):
		return fmt.Sprintf("Today at %s", due.Format("15:04"))
	case sameDay(due, now.AddDate(0, 0, 1)):
		return fmt.Sprintf("Tomorrow at %s", due.Format("15:04"))
	default:
		return due.Format("Mon, Jan 2 15:04")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
