package cultivation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

const (
	defaultTempTolerance     = 3.0
	defaultHumidityTolerance = 15.0

	tempStressPenalty     = 0.04
	humidityStressPenalty = 0.025
	missedWaterPenalty    = 0.07
	minEfficiencyRatio    = 0.3

	heatStressMargin  = 4.0
	aboveIdealMargin  = 2.0
	tooColdMargin     = 4.0
	dryAirHumidity    = 35.0
	humidAirHumidity  = 70.0
	heatLossPerDegree = 8.0
)

// EstimateYield predicts the final yield of a crop from the logs recorded so
// far. base is the yield baseline of the crop, already scaled to its trays.
// Logs may arrive in any order; the latest day drives the suggestions.
func EstimateYield(seed Seed, base float64, logs []DailyLog) Prediction {
	if len(logs) == 0 {
		return Prediction{
			PredictedYield:  base,
			BaseYield:       base,
			YieldEfficiency: 1,
			Status:          YieldExcellent,
			Suggestions: []Suggestion{{
				Type:    SuggestionSuccess,
				Issue:   "Ready to Start!",
				Message: "Everything looks good. Prediction will update once cultivation begins.",
			}},
		}
	}

	ordered := make([]DailyLog, len(logs))
	copy(ordered, logs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DayNumber < ordered[j].DayNumber })

	tempTol := seed.TempTolerance
	if tempTol <= 0 {
		tempTol = defaultTempTolerance
	}
	humTol := seed.HumidityTolerance
	if humTol <= 0 {
		humTol = defaultHumidityTolerance
	}

	ratio := 1.0
	for _, log := range ordered {
		temp := valueOr(log.Temperature, seed.IdealTemp)
		hum := valueOr(log.Humidity, seed.IdealHumidity)
		if math.Abs(temp-seed.IdealTemp) > tempTol {
			ratio -= tempStressPenalty
		}
		if math.Abs(hum-seed.IdealHumidity) > humTol {
			ratio -= humidityStressPenalty
		}
		if !log.Watered {
			ratio -= missedWaterPenalty
		}
	}
	ratio = math.Max(minEfficiencyRatio, math.Min(1, ratio))

	predicted := round1(base * ratio)
	return Prediction{
		PredictedYield:  predicted,
		BaseYield:       base,
		YieldEfficiency: math.Round(ratio*1000) / 1000,
		PotentialLoss:   round1(base - predicted),
		Status:          StatusForRatio(ratio),
		Suggestions:     suggestionsFor(ordered[len(ordered)-1], seed, predicted),
	}
}

func suggestionsFor(latest DailyLog, seed Seed, predicted float64) []Suggestion {
	var out []Suggestion
	ideal := seed.IdealTemp
	temp := valueOr(latest.Temperature, ideal)
	hum := valueOr(latest.Humidity, seed.IdealHumidity)

	switch {
	case temp > ideal+heatStressMargin:
		out = append(out, Suggestion{
			Type:          SuggestionCritical,
			Issue:         "Heat Stress Detected",
			Message:       fmt.Sprintf("Temperature (%s°C) is too high. Move to cooler spot or add fan.", formatNumber(temp)),
			PotentialLoss: formatNumber(round1((temp-ideal)*heatLossPerDegree)) + "g",
		})
	case temp > ideal+aboveIdealMargin:
		out = append(out, Suggestion{
			Type:    SuggestionWarning,
			Issue:   "Above Ideal Temperature",
			Message: fmt.Sprintf("Try to lower temperature closer to %s°C for optimal growth.", formatNumber(ideal)),
		})
	case temp < ideal-tooColdMargin:
		out = append(out, Suggestion{
			Type:    SuggestionWarning,
			Issue:   "Temperature Too Low",
			Message: fmt.Sprintf("Consider moving to warmer location. Ideal: %s°C.", formatNumber(ideal)),
		})
	}

	switch {
	case hum < dryAirHumidity:
		out = append(out, Suggestion{
			Type:    SuggestionWarning,
			Issue:   "Air Too Dry",
			Message: "Mist lightly or add humidity dome to prevent wilting.",
		})
	case hum > humidAirHumidity:
		out = append(out, Suggestion{
			Type:    SuggestionWarning,
			Issue:   "High Humidity",
			Message: "Improve air circulation to prevent mold growth.",
		})
	}

	if !latest.Watered {
		out = append(out, Suggestion{
			Type:          SuggestionCritical,
			Issue:         "Missed Watering!",
			Message:       "Water immediately to prevent wilting and yield loss.",
			PotentialLoss: "25-40g",
		})
	}

	if len(out) == 0 {
		out = append(out, Suggestion{
			Type:    SuggestionSuccess,
			Issue:   "Perfect Conditions!",
			Message: fmt.Sprintf("Keep it up! You're on track for %sg yield.", formatNumber(math.Round(predicted))),
		})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
