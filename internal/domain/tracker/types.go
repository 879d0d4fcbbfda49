package tracker

import (
	"io"
	"time"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
)

// Config holds runtime knobs for the tracker backend.
type Config struct {
	Location      *time.Location
	PredictionTTL time.Duration
	MaxPhotoBytes int64
	// LogGraceDays accepts logs this many days past the growth cycle, for
	// crops harvested late.
	LogGraceDays int
}

// Actor is the authenticated caller of a tracker operation.
type Actor struct {
	UserID int64
	Admin  bool
}

// CropFilter narrows ListCrops.
type CropFilter struct {
	Status string
	SeedID int64
}

// CropQuery is the repository form of a crop listing.
type CropQuery struct {
	UserID int64
	Status cultivation.CropStatus
	SeedID int64
}

// CreateCropRequest is the payload for starting a crop.
type CreateCropRequest struct {
	SeedID               int64          `json:"seed_id"`
	StartDatetime        time.Time      `json:"start_datetime"`
	TraySize             string         `json:"tray_size"`
	NumberOfTrays        int            `json:"number_of_trays"`
	Cost                 *float64       `json:"cost,omitempty"`
	LightHours           *float64       `json:"light_hours,omitempty"`
	CustomSettings       map[string]any `json:"custom_settings"`
	NotificationSettings map[string]any `json:"notification_settings"`
}

// CreateLogRequest is a manual full log entry for one day.
type CreateLogRequest struct {
	DayNumber       int      `json:"day_number"`
	Watered         bool     `json:"watered"`
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	Notes           string   `json:"notes"`
	ActionsRecorded []string `json:"actions_recorded"`
}

// ActionRequest records a single action against today's log.
type ActionRequest struct {
	ActionType  string   `json:"action_type"`
	Notes       string   `json:"notes"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// ActionResult reports which day an action landed on.
type ActionResult struct {
	Status string               `json:"status"`
	Day    int                  `json:"day"`
	Action string               `json:"action"`
	Log    cultivation.DailyLog `json:"log"`
}

// PhotoUpload is an image attached to a day's log.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PhotoResult returns the public path of a stored photo.
type PhotoResult struct {
	PhotoURL string `json:"photo_url"`
}

// HarvestRequest closes a crop with its measured yield.
type HarvestRequest struct {
	ActualWeight float64 `json:"actual_weight"`
	Notes        string  `json:"notes"`
}

// Stats summarizes the crops of one grower.
type Stats struct {
	TotalCrops      int      `json:"total_crops"`
	ActiveCrops     int      `json:"active_crops"`
	HarvestedCrops  int      `json:"harvested_crops"`
	FailedCrops     int      `json:"failed_crops"`
	TotalYieldGrams float64  `json:"total_yield_grams"`
	AverageAccuracy *float64 `json:"average_accuracy_percent,omitempty"`
}

// StoredPhoto is the blob storage result for a photo.
type StoredPhoto struct {
	Key      string
	Size     int64
	MimeType string
}

// PhotoContent is a stored photo streamed back to a client. The caller
// closes Body.
type PhotoContent struct {
	Body     io.ReadCloser
	MimeType string
}
