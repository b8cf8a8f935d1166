// Package timeframe resolves the collection window shared by every source
// adapter in a briefing run.
package timeframe

import (
	"fmt"
	"time"
)

const DefaultCutoffHour = 6

// Window is the inclusive [Start, End] range of timestamps that count as new
// for one run.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Days returns the span rounded up to whole days, never less than one.
func (w Window) Days() int {
	span := w.Duration()
	days := int(span / (24 * time.Hour))
	if span%(24*time.Hour) > 0 {
		days++
	}
	return max(days, 1)
}

func (w Window) String() string {
	return fmt.Sprintf("%s .. %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

type Resolver struct {
	Location   *time.Location
	CutoffHour int
}

func NewResolver(loc *time.Location, cutoffHour int) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if cutoffHour < 0 || cutoffHour > 23 {
		cutoffHour = DefaultCutoffHour
	}
	return &Resolver{Location: loc, CutoffHour: cutoffHour}
}

// Resolve computes the window for the run happening at now. The window ends
// today at the cutoff hour. Runs on Saturday, Sunday or Monday start from the
// most recent Friday so weekend content is not skipped; every other day starts
// from yesterday's cutoff.
func (r *Resolver) Resolve(now time.Time) Window {
	local := now.In(r.Location)
	y, m, d := local.Date()

	end := time.Date(y, m, d, r.CutoffHour, 0, 0, 0, r.Location)

	back := 1
	switch local.Weekday() {
	case time.Saturday:
		back = 1
	case time.Sunday:
		back = 2
	case time.Monday:
		back = 3
	}
	start := time.Date(y, m, d-back, r.CutoffHour, 0, 0, 0, r.Location)

	return Window{Start: start, End: end}
}

// Resolve resolves the window for now in loc with the default cutoff hour.
func Resolve(now time.Time, loc *time.Location) Window {
	return NewResolver(loc, DefaultCutoffHour).Resolve(now)
}
