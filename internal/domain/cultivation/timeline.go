package cultivation

// TimelineDay is one cell of the crop lifecycle timeline.
type TimelineDay struct {
	Day    int       `json:"day"`
	Status DayStatus `json:"status"`
	Phase  Phase     `json:"phase"`
	Logged bool      `json:"logged"`
}

// BuildTimeline lays out days 1..growth days with their status and phase.
func BuildTimeline(seed Seed, progress Progress) []TimelineDay {
	growth := seed.GrowthDays()
	completed := NewDaySet(progress.CompletedDays...)
	missed := NewDaySet(progress.MissedDays...)
	days := make([]TimelineDay, 0, growth)
	for d := 1; d <= growth; d++ {
		days = append(days, TimelineDay{
			Day:    d,
			Status: Classify(d, progress.CurrentDay, completed, missed),
			Phase:  PhaseFor(d, seed),
			Logged: completed.Has(d),
		})
	}
	return days
}
