package cultivation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SeedReference is the cultivation reference card rendered next to a crop.
type SeedReference struct {
	Name            string  `json:"name"`
	LatinName       string  `json:"latinName,omitempty"`
	Difficulty      string  `json:"difficulty"`
	SoakTime        string  `json:"soakTime"`
	GerminationDays float64 `json:"germinationDays"`
	BlackoutDays    float64 `json:"blackoutDays"`
	HarvestDays     int     `json:"harvestDays"`
	Watering        string  `json:"watering"`
	IdealTemp       float64 `json:"idealTemp"`
	IdealHumidity   float64 `json:"idealHumidity"`
	Taste           string  `json:"taste,omitempty"`
	Nutrition       string  `json:"nutrition,omitempty"`
	Care            string  `json:"care,omitempty"`
}

// Reference builds the reference card for a seed.
func (s Seed) Reference() SeedReference {
	return SeedReference{
		Name:            s.Name,
		LatinName:       s.LatinName,
		Difficulty:      s.Difficulty,
		SoakTime:        soakLabel(s),
		GerminationDays: valueOr(s.GerminationDays, 0),
		BlackoutDays:    float64(s.BlackoutDays()),
		HarvestDays:     s.GrowthDays(),
		Watering:        wateringLabel(s.WateringReq),
		IdealTemp:       s.IdealTemp,
		IdealHumidity:   s.IdealHumidity,
		Taste:           s.Taste,
		Nutrition:       s.Nutrition,
		Care:            s.CareInstructions,
	}
}

// BlackoutDays is the length of the dark germination phase in whole days.
// Falls back to the germination window, then to three days.
func (s Seed) BlackoutDays() int {
	for _, v := range []*float64{s.BlackoutTimeDays, s.GerminationDays} {
		if v != nil && *v > 0 {
			return int(math.Ceil(*v))
		}
	}
	return 3
}

func soakLabel(s Seed) string {
	if s.SoakingDurationHours != nil && *s.SoakingDurationHours > 0 {
		return strconv.FormatFloat(*s.SoakingDurationHours, 'f', -1, 64) + "h"
	}
	req := strings.TrimSpace(s.SoakingReq)
	if req == "" || strings.EqualFold(req, "no") {
		return "No soak"
	}
	return req
}

func wateringLabel(req string) string {
	if strings.TrimSpace(req) == "" {
		return "Bottom water daily"
	}
	return strings.TrimSpace(req)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseRangeAverage turns catalog figures like "3-4", "10" or
// "Yes, 8-12 hours" into the average of the numbers they mention.
func ParseRangeAverage(raw string) (float64, bool) {
	matches := numberPattern.FindAllString(raw, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var sum float64
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		sum += v
	}
	return sum / float64(len(matches)), true
}

// Slugify derives the seed_type slug from a variety name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.NewReplacer(",", "", `"`, "", "'", "").Replace(slug)
	return strings.Join(strings.Fields(slug), "-")
}

// Validate checks the invariants a catalog entry must satisfy.
func (s Seed) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("seed name cannot be empty")
	}
	if s.AvgYieldGrams < 0 || s.SuggestedSeedWeight < 0 {
		return fmt.Errorf("seed %q has negative weights", s.Name)
	}
	for label, v := range map[string]*float64{
		"soaking_duration_hours": s.SoakingDurationHours,
		"blackout_time_days":     s.BlackoutTimeDays,
		"germination_days":       s.GerminationDays,
		"harvest_days":           s.HarvestDays,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("seed %q has negative %s", s.Name, label)
		}
	}
	return nil
}

// DefaultSeeds is the built-in catalog used when no CSV import is configured.
func DefaultSeeds() []Seed {
	return []Seed{
		{
			SeedType: "sunflower", Name: "Sunflower", LatinName: "Helianthus annuus", Difficulty: "Medium",
			SoakingDurationHours: Float(10), BlackoutTimeDays: Float(3), GerminationDays: Float(2), HarvestDays: Float(10),
			SoakingReq: "Yes, 8-12 hours", WateringReq: "Bottom water twice daily",
			SuggestedSeedWeight: 200, AvgYieldGrams: 600, IdealTemp: 22.5, IdealHumidity: 50,
			TempTolerance: 3, HumidityTolerance: 10, Taste: "Nutty, crunchy",
		},
		{
			SeedType: "pea-shoots", Name: "Pea Shoots", LatinName: "Pisum sativum", Difficulty: "Easy",
			SoakingDurationHours: Float(10), BlackoutTimeDays: Float(3), GerminationDays: Float(2), HarvestDays: Float(12),
			SoakingReq: "Yes, 8-12 hours", WateringReq: "Bottom water daily",
			SuggestedSeedWeight: 250, AvgYieldGrams: 550, IdealTemp: 20, IdealHumidity: 50,
			TempTolerance: 3, HumidityTolerance: 10, Taste: "Sweet, fresh pea",
		},
		{
			SeedType: "radish", Name: "Radish", LatinName: "Raphanus sativus", Difficulty: "Easy",
			BlackoutTimeDays: Float(3), GerminationDays: Float(1.5), HarvestDays: Float(8),
			SoakingReq: "No", WateringReq: "Bottom water daily",
			SuggestedSeedWeight: 30, AvgYieldGrams: 400, IdealTemp: 21, IdealHumidity: 50,
			TempTolerance: 3, HumidityTolerance: 10, Taste: "Spicy",
		},
		{
			SeedType: "broccoli", Name: "Broccoli", LatinName: "Brassica oleracea", Difficulty: "Easy",
			BlackoutTimeDays: Float(3.5), GerminationDays: Float(2.5), HarvestDays: Float(10),
			SoakingReq: "No", WateringReq: "Bottom water daily",
			SuggestedSeedWeight: 25, AvgYieldGrams: 350, IdealTemp: 21, IdealHumidity: 50,
			TempTolerance: 3, HumidityTolerance: 10, Taste: "Mild, slightly bitter",
		},
		{
			SeedType: "basil", Name: "Basil", LatinName: "Ocimum basilicum", Difficulty: "Hard",
			BlackoutTimeDays: Float(5), GerminationDays: Float(4), HarvestDays: Float(18),
			SoakingReq: "No", WateringReq: "Mist until germination, then bottom water",
			SuggestedSeedWeight: 15, AvgYieldGrams: 200, IdealTemp: 24, IdealHumidity: 55,
			TempTolerance: 2.5, HumidityTolerance: 10, Taste: "Aromatic",
		},
	}
}
