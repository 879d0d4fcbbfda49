package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
	"github.com/urbansims/microgreens/pkg/util"
)

// JobTrainingData snapshots a harvested crop into training data.
const JobTrainingData = "training_data"

// PhotoRoutePrefix is the public path under which stored photos are served.
const PhotoRoutePrefix = "/api/photos/"

var wateringActions = map[string]bool{
	"water":         true,
	"water_morning": true,
	"water_evening": true,
}

// Service exposes the crop tracking backend.
type Service interface {
	ListSeeds(ctx context.Context) ([]cultivation.Seed, error)
	GetSeed(ctx context.Context, id int64) (cultivation.Seed, error)
	CreateCrop(ctx context.Context, actor Actor, req CreateCropRequest) (cultivation.Crop, error)
	ListCrops(ctx context.Context, actor Actor, filter CropFilter) ([]cultivation.Crop, error)
	GetCrop(ctx context.Context, actor Actor, id int64) (cultivation.Crop, error)
	DeleteCrop(ctx context.Context, actor Actor, id int64) error
	ListLogs(ctx context.Context, actor Actor, cropID int64) ([]cultivation.DailyLog, error)
	CreateLog(ctx context.Context, actor Actor, cropID int64, req CreateLogRequest) (cultivation.DailyLog, error)
	RecordAction(ctx context.Context, actor Actor, cropID int64, req ActionRequest) (ActionResult, error)
	AttachPhoto(ctx context.Context, actor Actor, cropID int64, day int, upload PhotoUpload) (PhotoResult, error)
	Photo(ctx context.Context, key string) (PhotoContent, error)
	Harvest(ctx context.Context, actor Actor, cropID int64, req HarvestRequest) (cultivation.Harvest, error)
	GetHarvest(ctx context.Context, actor Actor, cropID int64) (cultivation.Harvest, error)
	Prediction(ctx context.Context, actor Actor, cropID int64) (cultivation.Prediction, error)
	Stats(ctx context.Context, actor Actor) (Stats, error)
	HandleJob(ctx context.Context, name string, payload map[string]any) error
}

type service struct {
	cfg    Config
	seeds  SeedRepository
	crops  CropRepository
	cache  PredictionCache
	photos PhotoStorage
	queue  JobQueue
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg Config, seeds SeedRepository, crops CropRepository, cache PredictionCache, photos PhotoStorage, queue JobQueue, logger *slog.Logger) Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PredictionTTL <= 0 {
		cfg.PredictionTTL = 10 * time.Minute
	}
	if cfg.MaxPhotoBytes <= 0 {
		cfg.MaxPhotoBytes = 10 << 20
	}
	if cfg.LogGraceDays < 0 {
		cfg.LogGraceDays = 0
	}
	return &service{
		cfg:    cfg,
		seeds:  seeds,
		crops:  crops,
		cache:  cache,
		photos: photos,
		queue:  queue,
		logger: logger.With("component", "tracker.service"),
		now:    util.NowUTC,
	}
}

func (s *service) ListSeeds(ctx context.Context) ([]cultivation.Seed, error) {
	seeds, err := s.seeds.ListSeeds(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to list seeds", err)
	}
	return seeds, nil
}

func (s *service) GetSeed(ctx context.Context, id int64) (cultivation.Seed, error) {
	seed, found, err := s.seeds.GetSeed(ctx, id)
	if err != nil {
		return cultivation.Seed{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load seed", err)
	}
	if !found {
		return cultivation.Seed{}, apperrors.Wrap(apperrors.CodeNotFound, "seed not found", nil)
	}
	return seed, nil
}

func (s *service) CreateCrop(ctx context.Context, actor Actor, req CreateCropRequest) (cultivation.Crop, error) {
	if req.SeedID <= 0 {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeInvalidInput, "seed_id is required", nil)
	}
	seed, err := s.GetSeed(ctx, req.SeedID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeInvalidInput, "seed does not exist", nil)
		}
		return cultivation.Crop{}, err
	}
	size, err := cultivation.ParseTraySize(req.TraySize)
	if err != nil {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeInvalidInput, "unsupported tray size", err)
	}
	trays := req.NumberOfTrays
	if trays == 0 {
		trays = 1
	}
	if _, err := cultivation.ScaleQuantity(seed.SuggestedSeedWeight, size.Label(), trays); err != nil {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid tray count", err)
	}
	if req.Cost != nil && *req.Cost < 0 {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeInvalidInput, "cost cannot be negative", nil)
	}
	if req.LightHours != nil && (*req.LightHours < 0 || *req.LightHours > 24) {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeInvalidInput, "light_hours must be between 0 and 24", nil)
	}
	now := s.now()
	start := req.StartDatetime
	if start.IsZero() {
		start = now
	}
	crop := cultivation.Crop{
		UserID:               actor.UserID,
		SeedID:               seed.ID,
		StartDatetime:        start,
		TraySize:             size.Label(),
		NumberOfTrays:        trays,
		Status:               cultivation.CropActive,
		Cost:                 req.Cost,
		LightHours:           req.LightHours,
		CustomSettings:       orEmpty(req.CustomSettings),
		NotificationSettings: orEmpty(req.NotificationSettings),
		CreatedAt:            now,
	}
	created, err := s.crops.CreateCrop(ctx, crop)
	if err != nil {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeStorage, "failed to create crop", err)
	}
	created.Seed = &seed
	s.logger.Info("crop created", "crop_id", created.ID, "seed", seed.SeedType, "user_id", actor.UserID)
	return created, nil
}

func (s *service) ListCrops(ctx context.Context, actor Actor, filter CropFilter) ([]cultivation.Crop, error) {
	query := CropQuery{UserID: actor.UserID, SeedID: filter.SeedID}
	if strings.TrimSpace(filter.Status) != "" {
		status, err := cultivation.ParseCropStatus(filter.Status)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
		}
		query.Status = status
	}
	crops, err := s.crops.ListCrops(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to list crops", err)
	}
	seeds, err := s.seedIndex(ctx)
	if err != nil {
		return nil, err
	}
	for i := range crops {
		if seed, ok := seeds[crops[i].SeedID]; ok {
			crops[i].Seed = &seed
		}
	}
	return crops, nil
}

func (s *service) GetCrop(ctx context.Context, actor Actor, id int64) (cultivation.Crop, error) {
	crop, err := s.authorizedCrop(ctx, actor, id)
	if err != nil {
		return cultivation.Crop{}, err
	}
	return crop, nil
}

func (s *service) DeleteCrop(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.authorizedCrop(ctx, actor, id); err != nil {
		return err
	}
	logs, err := s.crops.ListLogs(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to load logs", err)
	}
	if err := s.crops.DeleteCrop(ctx, id); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to delete crop", err)
	}
	for _, log := range logs {
		key := strings.TrimPrefix(log.PhotoPath, PhotoRoutePrefix)
		if key == "" || key == log.PhotoPath {
			continue
		}
		if err := s.photos.Delete(ctx, key); err != nil {
			s.logger.Warn("photo cleanup failed", "crop_id", id, "key", key, "error", err)
		}
	}
	s.invalidate(ctx, id)
	s.logger.Info("crop deleted", "crop_id", id, "user_id", actor.UserID)
	return nil
}

func (s *service) ListLogs(ctx context.Context, actor Actor, cropID int64) ([]cultivation.DailyLog, error) {
	if _, err := s.authorizedCrop(ctx, actor, cropID); err != nil {
		return nil, err
	}
	return s.orderedLogs(ctx, cropID)
}

func (s *service) CreateLog(ctx context.Context, actor Actor, cropID int64, req CreateLogRequest) (cultivation.DailyLog, error) {
	crop, err := s.authorizedCrop(ctx, actor, cropID)
	if err != nil {
		return cultivation.DailyLog{}, err
	}
	if err := cultivation.ValidateDayNumber(req.DayNumber, s.maxDay(crop)); err != nil {
		return cultivation.DailyLog{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}
	if err := validateReadings(req.Temperature, req.Humidity); err != nil {
		return cultivation.DailyLog{}, err
	}
	logs, err := s.orderedLogs(ctx, cropID)
	if err != nil {
		return cultivation.DailyLog{}, err
	}
	log := cultivation.DailyLog{
		CropID:          cropID,
		DayNumber:       req.DayNumber,
		Watered:         req.Watered,
		ActionsRecorded: dedupeActions(req.ActionsRecorded),
		Temperature:     req.Temperature,
		Humidity:        req.Humidity,
		Notes:           strings.TrimSpace(req.Notes),
		LoggedAt:        s.now(),
	}
	predicted := cultivation.EstimateYield(seedOf(crop), baseYield(crop), append(logs, log)).PredictedYield
	log.PredictedYield = &predicted

	created, err := s.crops.CreateLog(ctx, log)
	if err != nil {
		if errors.Is(err, ErrDuplicateLog) {
			return cultivation.DailyLog{}, apperrors.Wrap(apperrors.CodeConflict, "log for this day already exists, use action logging to update", err)
		}
		return cultivation.DailyLog{}, apperrors.Wrap(apperrors.CodeStorage, "failed to create log", err)
	}
	s.invalidate(ctx, cropID)
	return created, nil
}

func (s *service) RecordAction(ctx context.Context, actor Actor, cropID int64, req ActionRequest) (ActionResult, error) {
	action := strings.TrimSpace(req.ActionType)
	if action == "" {
		return ActionResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, "action_type is required", nil)
	}
	if err := validateReadings(req.Temperature, req.Humidity); err != nil {
		return ActionResult{}, err
	}
	crop, err := s.authorizedCrop(ctx, actor, cropID)
	if err != nil {
		return ActionResult{}, err
	}
	day := util.CalendarDaysBetween(crop.StartDatetime, s.now(), s.cfg.Location) + 1
	if day < 1 {
		day = 1
	}
	if limit := s.maxDay(crop); day > limit {
		day = limit
	}

	log, found, err := s.crops.GetLog(ctx, cropID, day)
	if err != nil {
		return ActionResult{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load log", err)
	}
	notes := strings.TrimSpace(req.Notes)
	if !found {
		log = cultivation.DailyLog{
			CropID:          cropID,
			DayNumber:       day,
			ActionsRecorded: []string{action},
			Watered:         wateringActions[action],
			Temperature:     req.Temperature,
			Humidity:        req.Humidity,
			Notes:           notes,
			LoggedAt:        s.now(),
		}
		log, err = s.crops.CreateLog(ctx, log)
	} else {
		log.ActionsRecorded = dedupeActions(append(log.ActionsRecorded, action))
		if wateringActions[action] {
			log.Watered = true
		}
		if notes != "" {
			if log.Notes == "" {
				log.Notes = notes
			} else {
				log.Notes += "\n" + notes
			}
		}
		if req.Temperature != nil {
			log.Temperature = req.Temperature
		}
		if req.Humidity != nil {
			log.Humidity = req.Humidity
		}
		log, err = s.crops.UpdateLog(ctx, log)
	}
	if err != nil {
		if errors.Is(err, ErrDuplicateLog) {
			return ActionResult{}, apperrors.Wrap(apperrors.CodeConflict, "log was created concurrently, retry the action", err)
		}
		return ActionResult{}, apperrors.Wrap(apperrors.CodeStorage, "failed to record action", err)
	}
	s.invalidate(ctx, cropID)
	return ActionResult{Status: "success", Day: day, Action: action, Log: log}, nil
}

func (s *service) AttachPhoto(ctx context.Context, actor Actor, cropID int64, day int, upload PhotoUpload) (PhotoResult, error) {
	crop, err := s.authorizedCrop(ctx, actor, cropID)
	if err != nil {
		return PhotoResult{}, err
	}
	if err := cultivation.ValidateDayNumber(day, s.maxDay(crop)); err != nil {
		return PhotoResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}
	if !strings.HasPrefix(strings.ToLower(upload.ContentType), "image/") {
		return PhotoResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, "file must be an image", nil)
	}
	if len(upload.Content) == 0 {
		return PhotoResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, "photo cannot be empty", nil)
	}
	if int64(len(upload.Content)) > s.cfg.MaxPhotoBytes {
		return PhotoResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, "photo exceeds maximum allowed size", nil)
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(upload.Filename)), ".")
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(upload.ContentType), "image/")
	}
	key := fmt.Sprintf("crops/%d/day_%d_%s.%s", cropID, day, uuid.NewString(), ext)
	stored, err := s.photos.Put(ctx, key, upload.Content, upload.ContentType)
	if err != nil {
		return PhotoResult{}, apperrors.Wrap(apperrors.CodeStorage, "failed to store photo", err)
	}

	log, found, err := s.crops.GetLog(ctx, cropID, day)
	if err != nil {
		return PhotoResult{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load log", err)
	}
	photoPath := PhotoRoutePrefix + stored.Key
	if found {
		log.PhotoPath = photoPath
		_, err = s.crops.UpdateLog(ctx, log)
	} else {
		_, err = s.crops.CreateLog(ctx, cultivation.DailyLog{
			CropID:          cropID,
			DayNumber:       day,
			ActionsRecorded: []string{},
			PhotoPath:       photoPath,
			LoggedAt:        s.now(),
		})
	}
	if err != nil {
		if delErr := s.photos.Delete(ctx, stored.Key); delErr != nil {
			s.logger.Warn("orphan photo cleanup failed", "key", stored.Key, "error", delErr)
		}
		return PhotoResult{}, apperrors.Wrap(apperrors.CodeStorage, "failed to attach photo", err)
	}
	s.invalidate(ctx, cropID)
	return PhotoResult{PhotoURL: photoPath}, nil
}

func (s *service) Photo(ctx context.Context, key string) (PhotoContent, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return PhotoContent{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid photo key", nil)
	}
	body, mimeType, err := s.photos.Get(ctx, key)
	if err != nil {
		return PhotoContent{}, apperrors.Wrap(apperrors.CodeNotFound, "photo not found", err)
	}
	return PhotoContent{Body: body, MimeType: mimeType}, nil
}

func (s *service) Harvest(ctx context.Context, actor Actor, cropID int64, req HarvestRequest) (cultivation.Harvest, error) {
	if req.ActualWeight < 0 || math.IsNaN(req.ActualWeight) {
		return cultivation.Harvest{}, apperrors.Wrap(apperrors.CodeInvalidInput, "actual_weight cannot be negative", nil)
	}
	crop, err := s.authorizedCrop(ctx, actor, cropID)
	if err != nil {
		return cultivation.Harvest{}, err
	}
	if crop.Status != cultivation.CropActive {
		return cultivation.Harvest{}, apperrors.Wrap(apperrors.CodeConflict, "crop is already "+string(crop.Status), nil)
	}
	prediction, err := s.predict(ctx, crop)
	if err != nil {
		return cultivation.Harvest{}, err
	}
	now := s.now()
	harvest, err := s.crops.HarvestCrop(ctx, cultivation.Harvest{
		CropID:          cropID,
		ActualWeight:    req.ActualWeight,
		PredictedWeight: prediction.PredictedYield,
		AccuracyPercent: accuracy(req.ActualWeight, prediction.PredictedYield),
		Notes:           strings.TrimSpace(req.Notes),
		HarvestedAt:     now,
	})
	if errors.Is(err, ErrCropNotActive) {
		return cultivation.Harvest{}, apperrors.Wrap(apperrors.CodeConflict, "crop is no longer active", err)
	}
	if err != nil {
		return cultivation.Harvest{}, apperrors.Wrap(apperrors.CodeStorage, "failed to record harvest", err)
	}
	s.invalidate(ctx, cropID)
	if err := s.queue.Enqueue(ctx, JobTrainingData, map[string]any{"crop_id": cropID}); err != nil {
		s.logger.Warn("training data enqueue failed", "crop_id", cropID, "error", err)
	}
	s.logger.Info("crop harvested", "crop_id", cropID, "actual", req.ActualWeight, "predicted", prediction.PredictedYield)
	return harvest, nil
}

func (s *service) GetHarvest(ctx context.Context, actor Actor, cropID int64) (cultivation.Harvest, error) {
	if _, err := s.authorizedCrop(ctx, actor, cropID); err != nil {
		return cultivation.Harvest{}, err
	}
	harvest, found, err := s.crops.GetHarvest(ctx, cropID)
	if err != nil {
		return cultivation.Harvest{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load harvest", err)
	}
	if !found {
		return cultivation.Harvest{}, apperrors.Wrap(apperrors.CodeNotFound, "harvest not found", nil)
	}
	return harvest, nil
}

func (s *service) Prediction(ctx context.Context, actor Actor, cropID int64) (cultivation.Prediction, error) {
	crop, err := s.authorizedCrop(ctx, actor, cropID)
	if err != nil {
		return cultivation.Prediction{}, err
	}
	return s.predict(ctx, crop)
}

func (s *service) predict(ctx context.Context, crop cultivation.Crop) (cultivation.Prediction, error) {
	cached, found, err := s.cache.Get(ctx, crop.ID)
	if err != nil {
		s.logger.Warn("prediction cache read failed", "crop_id", crop.ID, "error", err)
	}
	if found {
		return cached, nil
	}
	logs, err := s.orderedLogs(ctx, crop.ID)
	if err != nil {
		return cultivation.Prediction{}, err
	}
	prediction := cultivation.EstimateYield(seedOf(crop), baseYield(crop), logs)
	if err := s.cache.Set(ctx, crop.ID, prediction, s.cfg.PredictionTTL); err != nil {
		s.logger.Warn("prediction cache write failed", "crop_id", crop.ID, "error", err)
	}
	return prediction, nil
}

func (s *service) Stats(ctx context.Context, actor Actor) (Stats, error) {
	crops, err := s.crops.ListCrops(ctx, CropQuery{UserID: actor.UserID})
	if err != nil {
		return Stats{}, apperrors.Wrap(apperrors.CodeStorage, "failed to list crops", err)
	}
	stats := Stats{TotalCrops: len(crops)}
	var accuracySum float64
	var harvests int
	for _, crop := range crops {
		switch crop.Status {
		case cultivation.CropActive:
			stats.ActiveCrops++
		case cultivation.CropFailed:
			stats.FailedCrops++
		case cultivation.CropHarvested:
			stats.HarvestedCrops++
			harvest, found, err := s.crops.GetHarvest(ctx, crop.ID)
			if err != nil {
				return Stats{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load harvest", err)
			}
			if found {
				stats.TotalYieldGrams += harvest.ActualWeight
				accuracySum += harvest.AccuracyPercent
				harvests++
			}
		}
	}
	if harvests > 0 {
		avg := math.Round(accuracySum/float64(harvests)*10) / 10
		stats.AverageAccuracy = &avg
	}
	return stats, nil
}

// HandleJob runs a queued background job.
func (s *service) HandleJob(ctx context.Context, name string, payload map[string]any) error {
	switch name {
	case JobTrainingData:
		cropID, ok := int64Field(payload, "crop_id")
		if !ok {
			return fmt.Errorf("training job missing crop_id")
		}
		return s.snapshotTrainingData(ctx, cropID)
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

func (s *service) snapshotTrainingData(ctx context.Context, cropID int64) error {
	crop, found, err := s.crops.GetCrop(ctx, cropID)
	if err != nil {
		return fmt.Errorf("load crop %d: %w", cropID, err)
	}
	if !found {
		s.logger.Info("training job skipped, crop gone", "crop_id", cropID)
		return nil
	}
	harvest, found, err := s.crops.GetHarvest(ctx, cropID)
	if err != nil {
		return fmt.Errorf("load harvest %d: %w", cropID, err)
	}
	if !found {
		return fmt.Errorf("crop %d has no harvest", cropID)
	}
	logs, err := s.crops.ListLogs(ctx, cropID)
	if err != nil {
		return fmt.Errorf("load logs %d: %w", cropID, err)
	}
	seed, _, err := s.seeds.GetSeed(ctx, crop.SeedID)
	if err != nil {
		return fmt.Errorf("load seed %d: %w", crop.SeedID, err)
	}
	_, err = s.crops.SaveTrainingData(ctx, cultivation.TrainingData{
		CropID:     cropID,
		SeedType:   seed.SeedType,
		DailyLogs:  logs,
		FinalYield: harvest.ActualWeight,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("save training data %d: %w", cropID, err)
	}
	s.logger.Info("training data recorded", "crop_id", cropID, "logs", len(logs))
	return nil
}

func (s *service) authorizedCrop(ctx context.Context, actor Actor, id int64) (cultivation.Crop, error) {
	crop, found, err := s.crops.GetCrop(ctx, id)
	if err != nil {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load crop", err)
	}
	if !found {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeNotFound, "crop not found", nil)
	}
	if crop.UserID != actor.UserID && !actor.Admin {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeForbidden, "not authorized", nil)
	}
	seed, found, err := s.seeds.GetSeed(ctx, crop.SeedID)
	if err != nil {
		return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load seed", err)
	}
	if found {
		crop.Seed = &seed
	}
	return crop, nil
}

func (s *service) orderedLogs(ctx context.Context, cropID int64) ([]cultivation.DailyLog, error) {
	logs, err := s.crops.ListLogs(ctx, cropID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to list logs", err)
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].DayNumber < logs[j].DayNumber })
	return logs, nil
}

func (s *service) seedIndex(ctx context.Context) (map[int64]cultivation.Seed, error) {
	seeds, err := s.seeds.ListSeeds(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to list seeds", err)
	}
	index := make(map[int64]cultivation.Seed, len(seeds))
	for _, seed := range seeds {
		index[seed.ID] = seed
	}
	return index, nil
}

func (s *service) maxDay(crop cultivation.Crop) int {
	return seedOf(crop).GrowthDays() + s.cfg.LogGraceDays
}

func (s *service) invalidate(ctx context.Context, cropID int64) {
	if err := s.cache.Invalidate(ctx, cropID); err != nil {
		s.logger.Warn("prediction cache invalidate failed", "crop_id", cropID, "error", err)
	}
}

func seedOf(crop cultivation.Crop) cultivation.Seed {
	if crop.Seed == nil {
		return cultivation.Seed{}
	}
	return *crop.Seed
}

// baseYield scales the seed baseline to the crop's trays. Rows written
// before tray validation fall back to the lenient label match.
func baseYield(crop cultivation.Crop) float64 {
	seed := seedOf(crop)
	base, err := cultivation.ScaleQuantity(seed.AvgYieldGrams, crop.TraySize, crop.Trays())
	if err != nil {
		return seed.AvgYieldGrams * cultivation.Multiplier(crop.TraySize) * float64(crop.Trays())
	}
	return base
}

func accuracy(actual, predicted float64) float64 {
	if predicted <= 0 {
		return 0
	}
	pct := 100 - math.Abs(actual-predicted)/predicted*100
	if pct < 0 {
		pct = 0
	}
	return math.Round(pct*10) / 10
}

func validateReadings(temperature, humidity *float64) error {
	if temperature != nil && (*temperature < -20 || *temperature > 60) {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "temperature out of range", nil)
	}
	if humidity != nil && (*humidity < 0 || *humidity > 100) {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "humidity must be between 0 and 100", nil)
	}
	return nil
}

func dedupeActions(actions []string) []string {
	seen := make(map[string]struct{}, len(actions))
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func int64Field(payload map[string]any, key string) (int64, bool) {
	switch v := payload[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), v == math.Trunc(v)
	default:
		return 0, false
	}
}
