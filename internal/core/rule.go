package core

import (
	"fmt"
	"strings"
)

// DuplicateRule reports whether candidate collides with one of existing.
// existing must already be filtered to entries sharing the candidate's
// description; a rule only looks at dates.
type DuplicateRule func(candidate Entry, existing []Entry) bool

// MonthMode selects which notion of "same month" the duplicate rule uses.
type MonthMode int

const (
	// MonthOfYear compares the month number only, so January 2024 and
	// January 2025 collide. This is the legacy behaviour.
	MonthOfYear MonthMode = iota
	// CalendarMonth compares year and month.
	CalendarMonth
)

// IsDuplicateInMonth is the legacy rule: true as soon as an existing entry
// falls in the same month of the year as the candidate. Years are ignored.
func IsDuplicateInMonth(candidate Entry, existing []Entry) bool {
	for _, e := range existing {
		if e.Date.Month() == candidate.Date.Month() {
			return true
		}
	}
	return false
}

// IsDuplicateInCalendarMonth is the corrected rule: year and month must both match.
func IsDuplicateInCalendarMonth(candidate Entry, existing []Entry) bool {
	for _, e := range existing {
		if e.Date.Year() == candidate.Date.Year() && e.Date.Month() == candidate.Date.Month() {
			return true
		}
	}
	return false
}

// ParseMonthMode maps the DUPLICATE_RULE setting to a mode.
func ParseMonthMode(s string) (MonthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy", "month":
		return MonthOfYear, nil
	case "calendar", "year-month":
		return CalendarMonth, nil
	default:
		return MonthOfYear, fmt.Errorf("unknown duplicate rule %q: must be 'legacy' or 'calendar'", s)
	}
}

func (m MonthMode) String() string {
	if m == CalendarMonth {
		return "calendar"
	}
	return "legacy"
}

// Rule returns the duplicate rule for the mode.
func (m MonthMode) Rule() DuplicateRule {
	if m == CalendarMonth {
		return IsDuplicateInCalendarMonth
	}
	return IsDuplicateInMonth
}

// SameMonth compares two dates the way the mode's rule does.
func (m MonthMode) SameMonth(a, b Date) bool {
	if m == CalendarMonth && a.Year() != b.Year() {
		return false
	}
	return a.Month() == b.Month()
}
