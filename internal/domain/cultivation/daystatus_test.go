package cultivation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyPrecedence(t *testing.T) {
	completed := NewDaySet(1, 3, 8)
	missed := NewDaySet(2, 5, 9)

	for day := 7; day <= 20; day++ {
		require.Equal(t, DayFuture, Classify(day, 6, completed, missed), day)
	}

	require.Equal(t, DayFuture, Classify(8, 6, completed, missed))
	require.Equal(t, DayFuture, Classify(9, 6, completed, missed))
	require.Equal(t, DayCompleted, Classify(3, 6, completed, missed))
	require.Equal(t, DayMissed, Classify(5, 6, completed, missed))
	require.Equal(t, DayCurrent, Classify(6, 6, completed, missed))
	require.Equal(t, DayPending, Classify(4, 6, completed, missed))
}

func TestClassifyCurrentDay(t *testing.T) {
	require.Equal(t, DayCompleted, Classify(4, 4, NewDaySet(4), NewDaySet()))
	require.Equal(t, DayCurrent, Classify(4, 4, NewDaySet(), NewDaySet(4)))
}

func TestCurrentDayInclusive(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	require.Equal(t, 1, CurrentDay(now, now, 10, time.UTC))
	require.Equal(t, 6, CurrentDay(now.AddDate(0, 0, -5), now, 10, time.UTC))
	require.Equal(t, 10, CurrentDay(now.AddDate(0, 0, -30), now, 10, time.UTC))
	require.Equal(t, 0, CurrentDay(now.AddDate(0, 0, 2), now, 10, time.UTC))
}

func TestCurrentDayUsesCalendarDates(t *testing.T) {
	start := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 0, 15, 0, 0, time.UTC)
	require.Equal(t, 2, CurrentDay(start, now, 10, time.UTC))

	tokyo := time.FixedZone("JST", 9*60*60)
	require.Equal(t, 1, CurrentDay(start, now, 10, tokyo))
}

func TestComputeProgressScenario(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	current := CurrentDay(now.AddDate(0, 0, -5), now, 10, time.UTC)

	progress := ComputeProgress([]int{3, 1, 3}, current)
	require.Equal(t, 6, progress.CurrentDay)
	require.Equal(t, []int{1, 3}, progress.CompletedDays)
	require.Equal(t, []int{2, 4, 5}, progress.MissedDays)

	require.Equal(t, DayCompleted, progress.Status(1))
	require.Equal(t, DayMissed, progress.Status(2))
	require.Equal(t, DayCurrent, progress.Status(6))
	require.Equal(t, DayFuture, progress.Status(7))
}

func TestComputeProgressNotStarted(t *testing.T) {
	progress := ComputeProgress(nil, 0)
	require.Empty(t, progress.CompletedDays)
	require.Empty(t, progress.MissedDays)
}

func TestValidateDayNumber(t *testing.T) {
	require.NoError(t, ValidateDayNumber(1, 10))
	require.NoError(t, ValidateDayNumber(10, 10))
	require.Error(t, ValidateDayNumber(0, 10))
	require.Error(t, ValidateDayNumber(11, 10))
}
