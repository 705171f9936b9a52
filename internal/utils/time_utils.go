package utils

import (
	"fmt"
	"time"
)

var bangkokLoc *time.Location

func init() {
	var err error
	bangkokLoc, err = time.LoadLocation("Asia/Bangkok")
	if err != nil {
		// Bangkok has no DST, a fixed zone is exact
		bangkokLoc = time.FixedZone("ICT", 7*60*60)
	}
}

// StartOfDay returns 00:00:00 of t's Bangkok calendar day
func StartOfDay(t time.Time) time.Time {
	t = t.In(bangkokLoc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, bangkokLoc)
}

// StartOfMonth returns 00:00:00 of the first day of t's Bangkok month
func StartOfMonth(t time.Time) time.Time {
	t = t.In(bangkokLoc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, bangkokLoc)
}

// GetLocation returns the Bangkok *time.Location
func GetLocation() *time.Location {
	return bangkokLoc
}

// ClockWindow is a daily opening window in Bangkok time. Close before Open
// wraps past midnight.
type ClockWindow struct {
	Open  time.Duration
	Close time.Duration
}

// ParseClockWindow parses "HH:MM" bounds. Two empty bounds mean always open.
func ParseClockWindow(open, closeAt string) (*ClockWindow, error) {
	if open == "" && closeAt == "" {
		return nil, nil
	}
	o, err := parseClock(open)
	if err != nil {
		return nil, err
	}
	c, err := parseClock(closeAt)
	if err != nil {
		return nil, err
	}
	return &ClockWindow{Open: o, Close: c}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether t falls inside the window. A nil window is always open.
func (w *ClockWindow) Contains(t time.Time) bool {
	if w == nil || w.Open == w.Close {
		return true
	}
	since := t.In(bangkokLoc).Sub(StartOfDay(t))
	if w.Open < w.Close {
		return since >= w.Open && since < w.Close
	}
	return since >= w.Open || since < w.Close
}
