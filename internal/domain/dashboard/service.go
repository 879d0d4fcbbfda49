package dashboard

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
	"github.com/urbansims/microgreens/pkg/util"
)

// Service drives the dashboard views.
type Service interface {
	CropPage(ctx context.Context, cropID int64) (CropPage, error)
	DeleteCrop(ctx context.Context, cropID int64) (Navigation, error)
	SubmitLog(ctx context.Context, cropID int64, input LogInput) (cultivation.DailyLog, error)
	SyncLogs(ctx context.Context, cropID int64, inputs []LogInput) (SyncResult, error)
	Overview(ctx context.Context, status string) ([]CropCard, error)
}

type service struct {
	cfg       Config
	backend   Backend
	assistant Assistant
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service. assistant may be nil.
func NewService(cfg Config, backend Backend, assistant Assistant, logger *slog.Logger) Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SyncConcurrency <= 0 {
		cfg.SyncConcurrency = 4
	}
	if cfg.RelatedLimit <= 0 {
		cfg.RelatedLimit = 6
	}
	if strings.TrimSpace(cfg.ListPath) == "" {
		cfg.ListPath = "/dashboard"
	}
	return &service{
		cfg:       cfg,
		backend:   backend,
		assistant: assistant,
		logger:    logger.With("component", "dashboard.service"),
		now:       util.NowUTC,
	}
}

// CropPage loads crop, logs and prediction in order, then the best-effort
// AI suggestion and related crops. A primary failure is returned as a
// *LoadError together with the partially filled page.
func (s *service) CropPage(ctx context.Context, cropID int64) (CropPage, error) {
	var page CropPage
	if err := ctx.Err(); err != nil {
		return page, &LoadError{Stage: StageCrop, Err: err}
	}
	crop, err := s.backend.GetCrop(ctx, cropID)
	if err != nil {
		return page, &LoadError{Stage: StageCrop, Err: err}
	}
	page.Crop = crop
	seed := cultivation.Seed{}
	if crop.Seed != nil {
		seed = *crop.Seed
		ref := seed.Reference()
		page.Seed = &ref
	}
	current := cultivation.CurrentDay(crop.StartDatetime, s.now(), seed.GrowthDays(), s.cfg.Location)
	page.GrowthDays = seed.GrowthDays()
	page.Phase = cultivation.PhaseFor(current, seed)
	page.PhaseLabel = page.Phase.Label()
	page.DaysUntilHarvest = cultivation.DaysUntilHarvest(current, seed)
	page.Progress = cultivation.Progress{CurrentDay: current, CompletedDays: []int{}, MissedDays: []int{}}
	if scaled, err := cultivation.ScaleForCrop(seed, crop.TraySize, crop.Trays()); err != nil {
		s.logger.Warn("crop scaling skipped", "crop_id", cropID, "tray_size", crop.TraySize, "error", err)
	} else {
		page.Scaled = &scaled
	}

	loadErr := s.loadLogsAndPrediction(ctx, &page, seed)

	if page.Yield != nil {
		page.AISuggestion = s.suggest(ctx, page, seed)
	}
	if crop.SeedID != 0 {
		page.RelatedCrops = s.related(ctx, crop)
	}
	if page.RelatedCrops == nil {
		page.RelatedCrops = []CropCard{}
	}
	if loadErr != nil {
		return page, loadErr
	}
	return page, nil
}

func (s *service) loadLogsAndPrediction(ctx context.Context, page *CropPage, seed cultivation.Seed) error {
	if err := ctx.Err(); err != nil {
		return &LoadError{Stage: StageLogs, Err: err}
	}
	logs, err := s.backend.ListLogs(ctx, page.Crop.ID)
	if err != nil {
		return &LoadError{Stage: StageLogs, Err: err}
	}
	page.Logs = logs
	page.Progress = cultivation.ComputeProgress(cultivation.LoggedDays(logs), page.Progress.CurrentDay)
	page.Timeline = cultivation.BuildTimeline(seed, page.Progress)

	if err := ctx.Err(); err != nil {
		return &LoadError{Stage: StagePrediction, Err: err}
	}
	prediction, err := s.backend.Prediction(ctx, page.Crop.ID)
	if err != nil {
		return &LoadError{Stage: StagePrediction, Err: err}
	}
	view, err := yieldView(prediction)
	if err != nil {
		return &LoadError{Stage: StagePrediction, Err: err}
	}
	if view.EfficiencyPercent == nil {
		s.logger.Warn("yield efficiency undefined", "crop_id", page.Crop.ID, "base_yield", prediction.BaseYield)
	}
	page.Yield = &view
	return nil
}

func yieldView(prediction cultivation.Prediction) (YieldView, error) {
	presentation, err := prediction.Status.Presentation()
	if err != nil {
		return YieldView{}, apperrors.Wrap(apperrors.CodeUpstream, "prediction has unknown status", err)
	}
	view := YieldView{Prediction: prediction, Presentation: presentation}
	efficiency, err := cultivation.Efficiency(prediction.PredictedYield, prediction.BaseYield)
	if err == nil {
		rounded := math.Round(efficiency*10) / 10
		view.EfficiencyPercent = &rounded
	}
	return view, nil
}

func (s *service) suggest(ctx context.Context, page CropPage, seed cultivation.Seed) string {
	if s.assistant == nil || ctx.Err() != nil {
		return ""
	}
	text, err := s.assistant.Chat(ctx, buildPrompt(page, seed), ChatOptions{
		System:      s.cfg.Assistant.Prompt,
		Temperature: s.cfg.Assistant.Temperature,
		MaxTokens:   s.cfg.Assistant.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("ai suggestion failed", "crop_id", page.Crop.ID, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *service) related(ctx context.Context, crop cultivation.Crop) []CropCard {
	if ctx.Err() != nil {
		return nil
	}
	crops, err := s.backend.ListCrops(ctx, CropQuery{SeedID: crop.SeedID})
	if err != nil {
		s.logger.Warn("related crops fetch failed", "crop_id", crop.ID, "seed_id", crop.SeedID, "error", err)
		return nil
	}
	cards := make([]CropCard, 0, s.cfg.RelatedLimit)
	for _, other := range crops {
		if other.ID == crop.ID || other.SeedID != crop.SeedID {
			continue
		}
		if other.Seed == nil {
			other.Seed = crop.Seed
		}
		cards = append(cards, s.card(other))
		if len(cards) == s.cfg.RelatedLimit {
			break
		}
	}
	return cards
}

func (s *service) DeleteCrop(ctx context.Context, cropID int64) (Navigation, error) {
	if err := s.backend.DeleteCrop(ctx, cropID); err != nil {
		return Navigation{}, err
	}
	s.logger.Info("crop deleted from dashboard", "crop_id", cropID)
	return Navigation{Redirect: s.cfg.ListPath}, nil
}

func (s *service) SubmitLog(ctx context.Context, cropID int64, input LogInput) (cultivation.DailyLog, error) {
	if input.DayNumber < 1 {
		return cultivation.DailyLog{}, apperrors.Wrap(apperrors.CodeInvalidInput, "day_number must be at least 1", nil)
	}
	return s.backend.CreateLog(ctx, cropID, input)
}

func (s *service) Overview(ctx context.Context, status string) ([]CropCard, error) {
	crops, err := s.backend.ListCrops(ctx, CropQuery{Status: strings.TrimSpace(status)})
	if err != nil {
		return nil, err
	}
	cards := make([]CropCard, 0, len(crops))
	for _, crop := range crops {
		cards = append(cards, s.card(crop))
	}
	return cards, nil
}

func (s *service) card(crop cultivation.Crop) CropCard {
	seed := cultivation.Seed{}
	if crop.Seed != nil {
		seed = *crop.Seed
	}
	growth := seed.GrowthDays()
	current := cultivation.CurrentDay(crop.StartDatetime, s.now(), growth, s.cfg.Location)
	return CropCard{
		ID:              crop.ID,
		SeedName:        seed.Name,
		Status:          crop.Status,
		StartDatetime:   crop.StartDatetime,
		TraySize:        crop.TraySize,
		Trays:           crop.Trays(),
		CurrentDay:      current,
		GrowthDays:      growth,
		Phase:           cultivation.PhaseFor(current, seed),
		ProgressPercent: math.Round(float64(current)/float64(growth)*1000) / 10,
	}
}
