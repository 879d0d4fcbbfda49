package cultivation

// Phase is the cultivation stage a crop is in on a given day.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseBlackout   Phase = "blackout"
	PhaseLight      Phase = "light"
	PhaseHarvest    Phase = "harvest"
)

// Label is the human readable phase name.
func (p Phase) Label() string {
	switch p {
	case PhaseNotStarted:
		return "Not started"
	case PhaseBlackout:
		return "Blackout"
	case PhaseLight:
		return "Under light"
	case PhaseHarvest:
		return "Ready to harvest"
	}
	return string(p)
}

// PhaseFor derives the phase of day for seed.
func PhaseFor(day int, seed Seed) Phase {
	growth := seed.GrowthDays()
	blackout := seed.BlackoutDays()
	if blackout >= growth {
		blackout = growth - 1
	}
	switch {
	case day < 1:
		return PhaseNotStarted
	case day >= growth:
		return PhaseHarvest
	case day <= blackout:
		return PhaseBlackout
	default:
		return PhaseLight
	}
}

// DaysUntilHarvest counts the days left before the harvest phase.
func DaysUntilHarvest(current int, seed Seed) int {
	left := seed.GrowthDays() - current
	if left < 0 {
		return 0
	}
	return left
}
