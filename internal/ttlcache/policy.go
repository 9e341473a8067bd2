package ttlcache

import (
	"fmt"
	"time"
)

// Policy decides whether an entry stored at storedAt is stale at now.
// Each cache instance is built with exactly one policy.
type Policy interface {
	Expired(storedAt, now time.Time) bool
	String() string
}

type durationPolicy struct {
	ttl time.Duration
}

// Duration expires entries once their age exceeds ttl.
func Duration(ttl time.Duration) Policy {
	return durationPolicy{ttl: ttl}
}

func (p durationPolicy) Expired(storedAt, now time.Time) bool {
	return now.Sub(storedAt) > p.ttl
}

func (p durationPolicy) String() string {
	return fmt.Sprintf("duration(%s)", p.ttl)
}

type calendarDayPolicy struct {
	loc *time.Location
}

// CalendarDay expires entries at the first calendar-day boundary after they
// were stored, as observed in loc. A nil loc means time.Local.
func CalendarDay(loc *time.Location) Policy {
	if loc == nil {
		loc = time.Local
	}
	return calendarDayPolicy{loc: loc}
}

func (p calendarDayPolicy) Expired(storedAt, now time.Time) bool {
	sy, sm, sd := storedAt.In(p.loc).Date()
	ny, nm, nd := now.In(p.loc).Date()
	return sy != ny || sm != nm || sd != nd
}

func (p calendarDayPolicy) String() string {
	return fmt.Sprintf("calendar-day(%s)", p.loc)
}
