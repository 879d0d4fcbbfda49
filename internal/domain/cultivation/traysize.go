package cultivation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownTraySize is returned for labels that name no supported tray.
	ErrUnknownTraySize = errors.New("unknown tray size")
	// ErrInvalidTrayCount is returned when fewer than one tray is requested.
	ErrInvalidTrayCount = errors.New("tray count must be at least 1")
)

// TraySize is a supported growing-tray footprint.
type TraySize string

const (
	Tray5x5   TraySize = "5x5"
	Tray10x10 TraySize = "10x10"
	Tray10x20 TraySize = "10x20"
)

// DefaultTrayLabel is stored for crops created without an explicit size.
const DefaultTrayLabel = "10x20 inch"

// Multiplier returns the area of the tray relative to a full 10x20 flat.
func (t TraySize) Multiplier() float64 {
	switch t {
	case Tray5x5:
		return 0.125
	case Tray10x10:
		return 0.5
	default:
		return 1.0
	}
}

// Label is the display form persisted on crops.
func (t TraySize) Label() string {
	return string(t) + " inch"
}

// normalizeTrayLabel folds case and drops spaces so "5 X 5 Inch" and
// "5x5 inch" resolve to the same tray.
func normalizeTrayLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), ""))
}

// Multiplier maps a free-form tray label to its area multiplier.
// Labels naming neither a 5x5 nor a 10x10 tray count as a full flat.
func Multiplier(label string) float64 {
	normalized := normalizeTrayLabel(label)
	switch {
	case strings.Contains(normalized, "5x5"):
		return Tray5x5.Multiplier()
	case strings.Contains(normalized, "10x10"):
		return Tray10x10.Multiplier()
	default:
		return Tray10x20.Multiplier()
	}
}

// ParseTraySize resolves a label to a supported tray. An empty label is the
// default full flat; anything else must name one of the supported sizes.
func ParseTraySize(label string) (TraySize, error) {
	normalized := normalizeTrayLabel(label)
	switch {
	case normalized == "":
		return Tray10x20, nil
	case strings.Contains(normalized, "5x5"):
		return Tray5x5, nil
	case strings.Contains(normalized, "10x10"):
		return Tray10x10, nil
	case strings.Contains(normalized, "10x20"):
		return Tray10x20, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTraySize, label)
	}
}

// ScaleQuantity scales a per-flat figure (seed weight, yield) to the
// footprint and number of trays of a crop.
func ScaleQuantity(base float64, label string, trays int) (float64, error) {
	if trays < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTrayCount, trays)
	}
	size, err := ParseTraySize(label)
	if err != nil {
		return 0, err
	}
	return base * size.Multiplier() * float64(trays), nil
}

// ScaledQuantities are the per-crop figures shown on the crop page.
type ScaledQuantities struct {
	TraySize      TraySize `json:"traySize"`
	Trays         int      `json:"trays"`
	Multiplier    float64  `json:"multiplier"`
	SeedWeight    float64  `json:"seedWeightGrams"`
	ExpectedYield float64  `json:"expectedYieldGrams"`
}

// ScaleForCrop applies ScaleQuantity to the seed weight and yield baseline.
func ScaleForCrop(seed Seed, label string, trays int) (ScaledQuantities, error) {
	size, err := ParseTraySize(label)
	if err != nil {
		return ScaledQuantities{}, err
	}
	weight, err := ScaleQuantity(seed.SuggestedSeedWeight, label, trays)
	if err != nil {
		return ScaledQuantities{}, err
	}
	yield, err := ScaleQuantity(seed.AvgYieldGrams, label, trays)
	if err != nil {
		return ScaledQuantities{}, err
	}
	return ScaledQuantities{
		TraySize:      size,
		Trays:         trays,
		Multiplier:    size.Multiplier(),
		SeedWeight:    weight,
		ExpectedYield: yield,
	}, nil
}
