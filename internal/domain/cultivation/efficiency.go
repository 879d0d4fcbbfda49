package cultivation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrZeroBaseYield is returned when efficiency is requested against a
	// zero yield baseline.
	ErrZeroBaseYield = errors.New("base yield must be non-zero")
	// ErrUnknownYieldStatus is returned when a status string names no
	// known yield status.
	ErrUnknownYieldStatus = errors.New("unknown yield status")
)

// Efficiency is predicted yield as a percentage of the base yield.
func Efficiency(predicted, base float64) (float64, error) {
	if base == 0 {
		return 0, ErrZeroBaseYield
	}
	if math.IsNaN(predicted) || math.IsNaN(base) || math.IsInf(predicted, 0) || math.IsInf(base, 0) {
		return 0, fmt.Errorf("efficiency of %v over %v is undefined", predicted, base)
	}
	return predicted / base * 100, nil
}

// YieldStatus is the qualitative grade attached to a prediction.
type YieldStatus string

const (
	YieldExcellent YieldStatus = "excellent"
	YieldGood      YieldStatus = "good"
	YieldFair      YieldStatus = "fair"
	YieldPoor      YieldStatus = "poor"
)

// YieldStatuses lists every status in grade order.
var YieldStatuses = []YieldStatus{YieldExcellent, YieldGood, YieldFair, YieldPoor}

// ParseYieldStatus accepts exactly the known statuses, case-insensitively.
func ParseYieldStatus(raw string) (YieldStatus, error) {
	status := YieldStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range YieldStatuses {
		if status == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownYieldStatus, raw)
}

// UnmarshalText rejects unknown statuses while decoding.
func (s *YieldStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseYieldStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText refuses to encode a status outside the known set.
func (s YieldStatus) MarshalText() ([]byte, error) {
	if _, err := ParseYieldStatus(string(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// StatusPresentation is how a status is rendered on the yield gauge.
type StatusPresentation struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// Presentation returns the gauge color and label for the status.
func (s YieldStatus) Presentation() (StatusPresentation, error) {
	switch s {
	case YieldExcellent:
		return StatusPresentation{Color: "green", Label: "Excellent"}, nil
	case YieldGood:
		return StatusPresentation{Color: "blue", Label: "Good"}, nil
	case YieldFair:
		return StatusPresentation{Color: "yellow", Label: "Fair"}, nil
	case YieldPoor:
		return StatusPresentation{Color: "red", Label: "Needs attention"}, nil
	}
	return StatusPresentation{}, fmt.Errorf("%w: %q", ErrUnknownYieldStatus, string(s))
}

// StatusForRatio grades a predicted/base ratio.
func StatusForRatio(ratio float64) YieldStatus {
	switch {
	case ratio >= 0.95:
		return YieldExcellent
	case ratio >= 0.85:
		return YieldGood
	case ratio >= 0.70:
		return YieldFair
	default:
		return YieldPoor
	}
}
