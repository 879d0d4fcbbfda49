package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// CalendarDaysBetween counts midnight crossings from start to end in loc.
// The result is negative when end falls on an earlier date than start.
func CalendarDaysBetween(start, end time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	s := start.In(loc)
	e := end.In(loc)
	sDate := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	eDate := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return int(eDate.Sub(sDate).Hours() / 24)
}
