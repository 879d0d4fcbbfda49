package cultivation

import (
	"fmt"
	"strings"
	"time"
)

// DefaultGrowthDays applies when a seed has no harvest window on record.
const DefaultGrowthDays = 10

// Seed is the immutable per-species reference entity.
type Seed struct {
	ID                   int64    `json:"id"`
	SeedType             string   `json:"seed_type"`
	Name                 string   `json:"name"`
	LatinName            string   `json:"latin_name,omitempty"`
	Difficulty           string   `json:"difficulty"`
	SeedCountPerGram     string   `json:"seed_count_per_gram,omitempty"`
	SoakingDurationHours *float64 `json:"soaking_duration_hours,omitempty"`
	BlackoutTimeDays     *float64 `json:"blackout_time_days,omitempty"`
	GerminationDays      *float64 `json:"germination_days,omitempty"`
	HarvestDays          *float64 `json:"harvest_days,omitempty"`
	SoakingReq           string   `json:"soaking_req,omitempty"`
	WateringReq          string   `json:"watering_req,omitempty"`
	SuggestedSeedWeight  float64  `json:"suggested_seed_weight"`
	AvgYieldGrams        float64  `json:"avg_yield_grams"`
	IdealTemp            float64  `json:"ideal_temp"`
	IdealHumidity        float64  `json:"ideal_humidity"`
	TempTolerance        float64  `json:"temp_tolerance"`
	HumidityTolerance    float64  `json:"humidity_tolerance"`
	Description          string   `json:"description,omitempty"`
	Taste                string   `json:"taste,omitempty"`
	Nutrition            string   `json:"nutrition,omitempty"`
	CareInstructions     string   `json:"care_instructions,omitempty"`
	SourceURL            string   `json:"source_url,omitempty"`
}

// GrowthDays is the whole-day length of the cultivation cycle.
func (s Seed) GrowthDays() int {
	if s.HarvestDays != nil && *s.HarvestDays >= 1 {
		return int(*s.HarvestDays)
	}
	return DefaultGrowthDays
}

// CropStatus tracks the lifecycle of a crop.
type CropStatus string

const (
	CropActive    CropStatus = "active"
	CropHarvested CropStatus = "harvested"
	CropFailed    CropStatus = "failed"
)

// ParseCropStatus validates a status filter or payload value.
func ParseCropStatus(raw string) (CropStatus, error) {
	switch CropStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case CropActive:
		return CropActive, nil
	case CropHarvested:
		return CropHarvested, nil
	case CropFailed:
		return CropFailed, nil
	default:
		return "", fmt.Errorf("unknown crop status %q", raw)
	}
}

// Crop is one cultivation instance of a seed.
type Crop struct {
	ID                   int64          `json:"id"`
	UserID               int64          `json:"user_id"`
	SeedID               int64          `json:"seed_id"`
	Seed                 *Seed          `json:"seed,omitempty"`
	StartDatetime        time.Time      `json:"start_datetime"`
	TraySize             string         `json:"tray_size"`
	NumberOfTrays        int            `json:"number_of_trays"`
	Status               CropStatus     `json:"status"`
	Cost                 *float64       `json:"cost,omitempty"`
	LightHours           *float64       `json:"light_hours,omitempty"`
	CustomSettings       map[string]any `json:"custom_settings"`
	NotificationSettings map[string]any `json:"notification_settings"`
	HarvestedAt          *time.Time     `json:"harvested_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// Trays returns the tray count, treating unset legacy rows as one tray.
func (c Crop) Trays() int {
	if c.NumberOfTrays < 1 {
		return 1
	}
	return c.NumberOfTrays
}

// DailyLog is the observation entry for one day of a crop.
type DailyLog struct {
	ID              int64     `json:"id"`
	CropID          int64     `json:"crop_id"`
	DayNumber       int       `json:"day_number"`
	Watered         bool      `json:"watered"`
	ActionsRecorded []string  `json:"actions_recorded"`
	Temperature     *float64  `json:"temperature"`
	Humidity        *float64  `json:"humidity"`
	PhotoPath       string    `json:"photo_path,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	PredictedYield  *float64  `json:"predicted_yield,omitempty"`
	LoggedAt        time.Time `json:"logged_at"`
}

// Harvest records the outcome of a finished crop.
type Harvest struct {
	ID              int64     `json:"id"`
	CropID          int64     `json:"crop_id"`
	ActualWeight    float64   `json:"actual_weight"`
	PredictedWeight float64   `json:"predicted_weight"`
	AccuracyPercent float64   `json:"accuracy_percent"`
	Notes           string    `json:"notes,omitempty"`
	HarvestedAt     time.Time `json:"harvested_at"`
}

// TrainingData aggregates a finished crop for later model fitting.
type TrainingData struct {
	ID         int64      `json:"id"`
	CropID     int64      `json:"crop_id"`
	SeedType   string     `json:"seed_type"`
	DailyLogs  []DailyLog `json:"daily_logs"`
	FinalYield float64    `json:"final_yield"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LoggedDays extracts the day numbers of a log list.
func LoggedDays(logs []DailyLog) []int {
	days := make([]int, 0, len(logs))
	for _, log := range logs {
		days = append(days, log.DayNumber)
	}
	return days
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
