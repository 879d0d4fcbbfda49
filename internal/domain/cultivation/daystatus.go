package cultivation

import (
	"fmt"
	"sort"
	"time"

	"github.com/urbansims/microgreens/pkg/util"
)

// DayStatus classifies one day of a crop's timeline.
type DayStatus string

const (
	DayFuture    DayStatus = "future"
	DayCompleted DayStatus = "completed"
	DayMissed    DayStatus = "missed"
	DayCurrent   DayStatus = "current"
	DayPending   DayStatus = "pending"
)

// DaySet is a set of day numbers.
type DaySet map[int]struct{}

// NewDaySet builds a set from day numbers.
func NewDaySet(days ...int) DaySet {
	set := make(DaySet, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s DaySet) Has(day int) bool {
	_, ok := s[day]
	return ok
}

// Classify returns the status of day given the current day and the
// completed and missed sets. Rules are checked in order:
// future, completed, current, missed, pending. The current day is never
// reported as missed while it can still be logged.
func Classify(day, current int, completed, missed DaySet) DayStatus {
	switch {
	case day > current:
		return DayFuture
	case completed.Has(day):
		return DayCompleted
	case day == current:
		return DayCurrent
	case missed.Has(day):
		return DayMissed
	default:
		return DayPending
	}
}

// CurrentDay is the 1-based day of the cycle at now: the start date is
// day 1 and each calendar midnight in loc advances one day. The result
// is 0 before the start date and never exceeds growthDays.
func CurrentDay(start, now time.Time, growthDays int, loc *time.Location) int {
	elapsed := util.CalendarDaysBetween(start, now, loc)
	day := elapsed + 1
	if day < 0 {
		day = 0
	}
	if growthDays >= 0 && day > growthDays {
		day = growthDays
	}
	return day
}

// Progress summarizes which days were logged and which were skipped.
type Progress struct {
	CurrentDay    int   `json:"currentDay"`
	CompletedDays []int `json:"completedDays"`
	MissedDays    []int `json:"missedDays"`
}

// ComputeProgress derives the completed and missed day lists. Completed
// days are the distinct logged days; missed days are the days before the
// current one that have no log.
func ComputeProgress(loggedDays []int, current int) Progress {
	logged := NewDaySet()
	for _, d := range loggedDays {
		if d >= 1 {
			logged[d] = struct{}{}
		}
	}
	completed := make([]int, 0, len(logged))
	for d := range logged {
		completed = append(completed, d)
	}
	sort.Ints(completed)

	missed := make([]int, 0)
	for d := 1; d < current; d++ {
		if !logged.Has(d) {
			missed = append(missed, d)
		}
	}
	return Progress{CurrentDay: current, CompletedDays: completed, MissedDays: missed}
}

// Status classifies day against this progress.
func (p Progress) Status(day int) DayStatus {
	return Classify(day, p.CurrentDay, NewDaySet(p.CompletedDays...), NewDaySet(p.MissedDays...))
}

// ValidateDayNumber rejects day numbers outside the cycle of a crop.
func ValidateDayNumber(day, growthDays int) error {
	if day < 1 {
		return fmt.Errorf("day number must be at least 1, got %d", day)
	}
	if growthDays > 0 && day > growthDays {
		return fmt.Errorf("day number %d is past the %d day cycle", day, growthDays)
	}
	return nil
}
