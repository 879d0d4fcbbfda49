package backendapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
)

// flexNumber decodes fields the backend may send as a number, a numeric
// string or a range such as "3-4" (averaged).
type flexNumber struct {
	value *float64
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		n.value = nil
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if v, ok := cultivation.ParseRangeAverage(raw); ok {
			n.value = &v
		} else {
			n.value = nil
		}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	n.value = &v
	return nil
}

func (n flexNumber) ptr() *float64 {
	return n.value
}

func (n flexNumber) or(fallback float64) float64 {
	if n.value == nil {
		return fallback
	}
	return *n.value
}

// flexText accepts either a string or a bare number.
type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*t = flexText(strings.TrimSpace(raw))
		return nil
	}
	*t = flexText(data)
	return nil
}

type wireSeed struct {
	ID                   int64      `json:"id"`
	SeedType             string     `json:"seed_type"`
	Name                 string     `json:"name"`
	LatinName            string     `json:"latin_name"`
	Difficulty           string     `json:"difficulty"`
	SeedCountPerGram     flexText   `json:"seed_count_per_gram"`
	SoakingDurationHours flexNumber `json:"soaking_duration_hours"`
	BlackoutTimeDays     flexNumber `json:"blackout_time_days"`
	GerminationDays      flexNumber `json:"germination_days"`
	HarvestDays          flexNumber `json:"harvest_days"`
	SoakingReq           flexText   `json:"soaking_req"`
	WateringReq          string     `json:"watering_req"`
	SuggestedSeedWeight  flexNumber `json:"suggested_seed_weight"`
	AvgYieldGrams        flexNumber `json:"avg_yield_grams"`
	IdealTemp            flexNumber `json:"ideal_temp"`
	IdealHumidity        flexNumber `json:"ideal_humidity"`
	TempTolerance        flexNumber `json:"temp_tolerance"`
	HumidityTolerance    flexNumber `json:"humidity_tolerance"`
	Description          string     `json:"description"`
	Taste                string     `json:"taste"`
	Nutrition            string     `json:"nutrition"`
	CareInstructions     string     `json:"care_instructions"`
	SourceURL            string     `json:"source_url"`
}

func (w wireSeed) toDomain() cultivation.Seed {
	return cultivation.Seed{
		ID:                   w.ID,
		SeedType:             w.SeedType,
		Name:                 w.Name,
		LatinName:            w.LatinName,
		Difficulty:           w.Difficulty,
		SeedCountPerGram:     string(w.SeedCountPerGram),
		SoakingDurationHours: w.SoakingDurationHours.ptr(),
		BlackoutTimeDays:     w.BlackoutTimeDays.ptr(),
		GerminationDays:      w.GerminationDays.ptr(),
		HarvestDays:          w.HarvestDays.ptr(),
		SoakingReq:           string(w.SoakingReq),
		WateringReq:          w.WateringReq,
		SuggestedSeedWeight:  w.SuggestedSeedWeight.or(0),
		AvgYieldGrams:        w.AvgYieldGrams.or(0),
		IdealTemp:            w.IdealTemp.or(0),
		IdealHumidity:        w.IdealHumidity.or(0),
		TempTolerance:        w.TempTolerance.or(0),
		HumidityTolerance:    w.HumidityTolerance.or(0),
		Description:          w.Description,
		Taste:                w.Taste,
		Nutrition:            w.Nutrition,
		CareInstructions:     w.CareInstructions,
		SourceURL:            w.SourceURL,
	}
}

// wireCrop shadows the embedded crop's seed with the lenient decoder.
type wireCrop struct {
	cultivation.Crop
	Seed *wireSeed `json:"seed"`
}

func (w wireCrop) toDomain() cultivation.Crop {
	crop := w.Crop
	crop.Seed = nil
	if w.Seed != nil {
		seed := w.Seed.toDomain()
		crop.Seed = &seed
		if crop.SeedID == 0 {
			crop.SeedID = seed.ID
		}
	}
	return crop
}
