package tracker

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
)

// ErrDuplicateLog is returned by repositories when a crop already has a log
// for the requested day.
var ErrDuplicateLog = errors.New("daily log already exists for this day")

// ErrCropNotActive is returned by HarvestCrop when the crop is missing or
// no longer active.
var ErrCropNotActive = errors.New("crop is not active")

// SeedRepository persists the seed catalog.
type SeedRepository interface {
	ListSeeds(ctx context.Context) ([]cultivation.Seed, error)
	GetSeed(ctx context.Context, id int64) (cultivation.Seed, bool, error)
	UpsertSeed(ctx context.Context, seed cultivation.Seed) (cultivation.Seed, error)
}

// CropRepository persists crops and everything recorded against them.
type CropRepository interface {
	CreateCrop(ctx context.Context, crop cultivation.Crop) (cultivation.Crop, error)
	GetCrop(ctx context.Context, id int64) (cultivation.Crop, bool, error)
	ListCrops(ctx context.Context, query CropQuery) ([]cultivation.Crop, error)
	// DeleteCrop removes the crop with its logs, harvest and training data.
	DeleteCrop(ctx context.Context, id int64) error

	ListLogs(ctx context.Context, cropID int64) ([]cultivation.DailyLog, error)
	GetLog(ctx context.Context, cropID int64, day int) (cultivation.DailyLog, bool, error)
	// CreateLog fails with ErrDuplicateLog when the day is already logged.
	CreateLog(ctx context.Context, log cultivation.DailyLog) (cultivation.DailyLog, error)
	UpdateLog(ctx context.Context, log cultivation.DailyLog) (cultivation.DailyLog, error)

	// HarvestCrop stores the harvest and marks the crop harvested in one
	// step. Neither write happens when the crop is not active.
	HarvestCrop(ctx context.Context, harvest cultivation.Harvest) (cultivation.Harvest, error)
	GetHarvest(ctx context.Context, cropID int64) (cultivation.Harvest, bool, error)
	SaveTrainingData(ctx context.Context, data cultivation.TrainingData) (cultivation.TrainingData, error)
}

// PredictionCache memoizes predictions between log writes.
type PredictionCache interface {
	Get(ctx context.Context, cropID int64) (cultivation.Prediction, bool, error)
	Set(ctx context.Context, cropID int64, prediction cultivation.Prediction, ttl time.Duration) error
	Invalidate(ctx context.Context, cropID int64) error
}

// PhotoStorage stores log photos.
type PhotoStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredPhoto, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// JobQueue enqueues background work.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}
