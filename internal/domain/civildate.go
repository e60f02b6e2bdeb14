package domain

import (
	"fmt"
	"time"
)

// CivilDate is a calendar day with no clock component. Streak comparisons use
// calendar-day granularity in the user's local timezone; practicing just
// before and after local midnight, or across a timezone change (travel, DST),
// can shift which day an attempt counts toward. Known limitation.
type CivilDate struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// CivilDateOf truncates t to its calendar day in t's location.
func CivilDateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// IsZero reports whether no date has been recorded.
func (d CivilDate) IsZero() bool {
	return d == CivilDate{}
}

// Next returns the following calendar day.
func (d CivilDate) Next() CivilDate {
	t := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return CivilDateOf(t)
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
