package domain

import "time"

// Clock decides what "today" is. The calendar day is read in a single
// configured location (never the caller's) and expressed as UTC midnight so
// it compares directly with stored payment dates.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a clock for loc. A nil loc means UTC, a nil now means time.Now.
func NewClock(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

// FixedClock always reports the given instant. Used by tools and tests.
func FixedClock(t time.Time) *Clock {
	return NewClock(time.UTC, func() time.Time { return t })
}

// Now returns the current instant
func (c *Clock) Now() time.Time {
	return c.now()
}

// Today returns the current calendar day as UTC midnight
func (c *Clock) Today() time.Time {
	y, m, d := c.now().In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
