package dashboard

import (
	"context"
	"time"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
)

// Config holds runtime knobs for the dashboard controller.
type Config struct {
	Location        *time.Location
	SyncConcurrency int
	RelatedLimit    int
	ListPath        string
	Assistant       AssistantConfig
}

// AssistantConfig shapes the optional AI enrichment call.
type AssistantConfig struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Backend is the crops API the dashboard renders.
type Backend interface {
	GetCrop(ctx context.Context, id int64) (cultivation.Crop, error)
	ListCrops(ctx context.Context, query CropQuery) ([]cultivation.Crop, error)
	DeleteCrop(ctx context.Context, id int64) error
	ListLogs(ctx context.Context, cropID int64) ([]cultivation.DailyLog, error)
	CreateLog(ctx context.Context, cropID int64, input LogInput) (cultivation.DailyLog, error)
	Prediction(ctx context.Context, cropID int64) (cultivation.Prediction, error)
}

// Assistant is an optional chat capability used to enrich crop pages.
type Assistant interface {
	Chat(ctx context.Context, prompt string, opts ChatOptions) (string, error)
}

// ChatOptions tune a single assistant call.
type ChatOptions struct {
	System      string
	Temperature float32
	MaxTokens   int
}

// CropQuery filters crop listings.
type CropQuery struct {
	Status string
	SeedID int64
}

// LogInput is one daily observation submitted from the dashboard.
type LogInput struct {
	DayNumber       int      `json:"day_number"`
	Watered         bool     `json:"watered"`
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	Notes           string   `json:"notes"`
	ActionsRecorded []string `json:"actions_recorded"`
}

// CropPage is everything the crop detail view renders.
type CropPage struct {
	Crop             cultivation.Crop              `json:"crop"`
	Seed             *cultivation.SeedReference    `json:"seed,omitempty"`
	Logs             []cultivation.DailyLog        `json:"logs"`
	Progress         cultivation.Progress          `json:"progress"`
	Phase            cultivation.Phase             `json:"phase"`
	PhaseLabel       string                        `json:"phaseLabel"`
	GrowthDays       int                           `json:"growthDays"`
	DaysUntilHarvest int                           `json:"daysUntilHarvest"`
	Timeline         []cultivation.TimelineDay     `json:"timeline"`
	Scaled           *cultivation.ScaledQuantities `json:"scaled,omitempty"`
	Yield            *YieldView                    `json:"yield,omitempty"`
	AISuggestion     string                        `json:"aiSuggestion,omitempty"`
	RelatedCrops     []CropCard                    `json:"relatedCrops"`
}

// YieldView pairs a prediction with its gauge rendering.
type YieldView struct {
	Prediction        cultivation.Prediction         `json:"prediction"`
	EfficiencyPercent *float64                       `json:"efficiencyPercent,omitempty"`
	Presentation      cultivation.StatusPresentation `json:"presentation"`
}

// CropCard is the compact crop summary used by lists.
type CropCard struct {
	ID              int64                  `json:"id"`
	SeedName        string                 `json:"seedName"`
	Status          cultivation.CropStatus `json:"status"`
	StartDatetime   time.Time              `json:"startDatetime"`
	TraySize        string                 `json:"traySize"`
	Trays           int                    `json:"trays"`
	CurrentDay      int                    `json:"currentDay"`
	GrowthDays      int                    `json:"growthDays"`
	Phase           cultivation.Phase      `json:"phase"`
	ProgressPercent float64                `json:"progressPercent"`
}

// Navigation tells the view where to go after an action.
type Navigation struct {
	Redirect string `json:"redirect"`
}

// SyncFailure reports one log that could not be created.
// Cancelled marks a create that was in flight when the batch was cancelled.
type SyncFailure struct {
	Day       int    `json:"day"`
	Error     string `json:"error"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// SyncResult lists the committed state after a batch sync. Created logs
// are persisted even when other days failed.
type SyncResult struct {
	Created  []cultivation.DailyLog `json:"created"`
	Failed   []SyncFailure          `json:"failed"`
	Skipped  []int                  `json:"skipped"`
	Complete bool                   `json:"complete"`
}
