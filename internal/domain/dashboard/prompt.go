package dashboard

import (
	"fmt"
	"strings"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
)

func buildPrompt(page CropPage, seed cultivation.Seed) string {
	var b strings.Builder
	name := seed.Name
	if name == "" {
		name = "microgreens"
	}
	fmt.Fprintf(&b, "Crop: %s, day %d of %d (%s).\n", name, page.Progress.CurrentDay, page.GrowthDays, page.PhaseLabel)
	fmt.Fprintf(&b, "Ideal conditions: %.1f°C, %.0f%% humidity.\n", seed.IdealTemp, seed.IdealHumidity)
	if n := len(page.Progress.MissedDays); n > 0 {
		fmt.Fprintf(&b, "Days without a log: %v.\n", page.Progress.MissedDays)
	}
	if len(page.Logs) > 0 {
		latest := page.Logs[0]
		for _, log := range page.Logs[1:] {
			if log.DayNumber > latest.DayNumber {
				latest = log
			}
		}
		fmt.Fprintf(&b, "Latest log (day %d): watered=%t", latest.DayNumber, latest.Watered)
		if latest.Temperature != nil {
			fmt.Fprintf(&b, ", temperature=%.1f°C", *latest.Temperature)
		}
		if latest.Humidity != nil {
			fmt.Fprintf(&b, ", humidity=%.0f%%", *latest.Humidity)
		}
		if latest.Notes != "" {
			fmt.Fprintf(&b, ", notes=%q", latest.Notes)
		}
		b.WriteString(".\n")
	}
	if page.Yield != nil {
		p := page.Yield.Prediction
		fmt.Fprintf(&b, "Predicted yield %.0fg of %.0fg base (%s).\n", p.PredictedYield, p.BaseYield, p.Status)
		for _, s := range p.Suggestions {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", s.Type, s.Issue, s.Message)
		}
	}
	b.WriteString("Give one short, practical tip for the grower today.")
	return b.String()
}
