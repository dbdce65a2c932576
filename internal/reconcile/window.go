// Package reconcile merges discovered candidates into the store and keeps the rolling
// seven-day retention window.
package reconcile

import (
	"fmt"
	"time"
)

// WindowDays is the number of calendar days a restaurant stays listed, today included.
const WindowDays = 7

// Window is the retention range [Start, End] in a fixed location.
type Window struct {
	// Start is local midnight six days before today.
	Start time.Time
	// End is the last instant of today.
	End time.Time
}

// WindowAt computes the window containing now, using calendar days in loc.
func WindowAt(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{
		Start: today.AddDate(0, 0, -(WindowDays - 1)),
		End:   today.AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
}

// Label renders the window for display, e.g. "31 Dec – 06 Jan 2025".
func (w Window) Label() string {
	return fmt.Sprintf("%s – %s", w.Start.Format("02 Jan"), w.End.Format("02 Jan 2006"))
}
