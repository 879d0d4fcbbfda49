package cultivation

import (
	"fmt"
	"strings"
)

// SuggestionType is the severity of an improvement suggestion.
type SuggestionType string

const (
	SuggestionSuccess  SuggestionType = "success"
	SuggestionWarning  SuggestionType = "warning"
	SuggestionCritical SuggestionType = "critical"
)

// UnmarshalText rejects unknown suggestion types while decoding.
func (t *SuggestionType) UnmarshalText(text []byte) error {
	switch v := SuggestionType(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case SuggestionSuccess, SuggestionWarning, SuggestionCritical:
		*t = v
		return nil
	default:
		return fmt.Errorf("unknown suggestion type %q", string(text))
	}
}

// Suggestion is one actionable recommendation attached to a prediction.
type Suggestion struct {
	Type          SuggestionType `json:"type"`
	Issue         string         `json:"issue"`
	Message       string         `json:"message"`
	PotentialLoss string         `json:"potential_loss,omitempty"`
}

// Prediction is the yield estimate of a crop at its current progress.
type Prediction struct {
	PredictedYield  float64      `json:"predicted_yield"`
	BaseYield       float64      `json:"base_yield"`
	YieldEfficiency float64      `json:"yield_efficiency"`
	PotentialLoss   float64      `json:"potential_loss"`
	Status          YieldStatus  `json:"status"`
	Suggestions     []Suggestion `json:"suggestions"`
}
