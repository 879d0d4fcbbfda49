package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
)

var testNow = time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)

func sunflowerSeed() *cultivation.Seed {
	return &cultivation.Seed{
		ID: 1, SeedType: "sunflower", Name: "Sunflower",
		BlackoutTimeDays: cultivation.Float(3), HarvestDays: cultivation.Float(10),
		SuggestedSeedWeight: 200, AvgYieldGrams: 600, IdealTemp: 22.5, IdealHumidity: 50,
	}
}

func scenarioBackend() *stubBackend {
	seed := sunflowerSeed()
	crop := cultivation.Crop{
		ID: 42, SeedID: 1, Seed: seed, TraySize: "10x10 inch", NumberOfTrays: 2,
		Status: cultivation.CropActive, StartDatetime: testNow.AddDate(0, 0, -5),
	}
	return &stubBackend{
		crops: []cultivation.Crop{
			crop,
			{ID: 43, SeedID: 1, Status: cultivation.CropHarvested, StartDatetime: testNow.AddDate(0, 0, -20), TraySize: "10x20 inch"},
			{ID: 44, SeedID: 2, Status: cultivation.CropActive, StartDatetime: testNow},
		},
		logs: []cultivation.DailyLog{
			{CropID: 42, DayNumber: 1, Watered: true},
			{CropID: 42, DayNumber: 3, Watered: true, Temperature: cultivation.Float(24)},
		},
		prediction: cultivation.Prediction{
			PredictedYield: 270, BaseYield: 300, Status: cultivation.YieldGood,
			Suggestions: []cultivation.Suggestion{{Type: cultivation.SuggestionWarning, Issue: "Above Ideal Temperature"}},
		},
	}
}

func newTestService(backend Backend, assistant Assistant, cfg Config) *service {
	svc := NewService(cfg, backend, assistant, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCropPageScenario(t *testing.T) {
	backend := scenarioBackend()
	assistant := &stubAssistant{reply: "  Add a fan for airflow.  "}
	svc := newTestService(backend, assistant, Config{Assistant: AssistantConfig{Prompt: "You are a grower", MaxTokens: 80}})

	page, err := svc.CropPage(context.Background(), 42)
	require.NoError(t, err)

	require.Equal(t, 6, page.Progress.CurrentDay)
	require.Equal(t, []int{1, 3}, page.Progress.CompletedDays)
	require.Equal(t, []int{2, 4, 5}, page.Progress.MissedDays)
	require.Equal(t, cultivation.PhaseLight, page.Phase)
	require.Equal(t, 4, page.DaysUntilHarvest)
	require.Len(t, page.Timeline, 10)
	require.Equal(t, cultivation.DayCurrent, page.Timeline[5].Status)
	require.Equal(t, cultivation.DayFuture, page.Timeline[6].Status)

	require.NotNil(t, page.Scaled)
	require.Equal(t, 200.0, page.Scaled.SeedWeight)
	require.Equal(t, 600.0, page.Scaled.ExpectedYield)

	require.NotNil(t, page.Yield)
	require.Equal(t, 90.0, *page.Yield.EfficiencyPercent)
	require.Equal(t, "blue", page.Yield.Presentation.Color)

	require.Equal(t, "Add a fan for airflow.", page.AISuggestion)
	require.Equal(t, "You are a grower", assistant.opts.System)
	require.Contains(t, assistant.prompt, "Sunflower, day 6 of 10")
	require.Contains(t, assistant.prompt, "Latest log (day 3)")

	require.Len(t, page.RelatedCrops, 1)
	require.Equal(t, int64(43), page.RelatedCrops[0].ID)
	require.Equal(t, 10, page.RelatedCrops[0].CurrentDay)
	require.Equal(t, cultivation.PhaseHarvest, page.RelatedCrops[0].Phase)

	require.Equal(t, []string{"crop", "logs", "prediction", "list"}, backend.callOrder())
	require.Equal(t, "10h", page.Seed.SoakTime)
}

func TestCropPageCropFailure(t *testing.T) {
	backend := scenarioBackend()
	backend.cropErr = apperrors.Wrap(apperrors.CodeNotFound, "crop not found", nil)
	svc := newTestService(backend, nil, Config{})

	_, err := svc.CropPage(context.Background(), 42)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, StageCrop, loadErr.Stage)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	require.Equal(t, []string{"crop"}, backend.callOrder())
}

func TestCropPageLogsFailureStillLoadsRelated(t *testing.T) {
	backend := scenarioBackend()
	backend.logsErr = errors.New("connection reset")
	assistant := &stubAssistant{reply: "tip"}
	svc := newTestService(backend, assistant, Config{})

	page, err := svc.CropPage(context.Background(), 42)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, StageLogs, loadErr.Stage)

	require.Equal(t, []string{"crop", "logs", "list"}, backend.callOrder())
	require.Equal(t, int64(42), page.Crop.ID)
	require.Equal(t, 6, page.Progress.CurrentDay)
	require.Nil(t, page.Yield)
	require.Empty(t, page.AISuggestion)
	require.Zero(t, assistant.calls)
	require.Len(t, page.RelatedCrops, 1)
}

func TestCropPagePredictionFailure(t *testing.T) {
	backend := scenarioBackend()
	backend.predictionErr = errors.New("bad gateway")
	svc := newTestService(backend, nil, Config{})

	page, err := svc.CropPage(context.Background(), 42)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, StagePrediction, loadErr.Stage)
	require.Equal(t, []int{2, 4, 5}, page.Progress.MissedDays)
	require.Len(t, page.RelatedCrops, 1)
}

func TestCropPageBestEffortFailuresAreSilent(t *testing.T) {
	backend := scenarioBackend()
	backend.listErr = errors.New("timeout")
	svc := newTestService(backend, &stubAssistant{err: errors.New("quota exceeded")}, Config{})

	page, err := svc.CropPage(context.Background(), 42)
	require.NoError(t, err)
	require.Empty(t, page.AISuggestion)
	require.NotNil(t, page.RelatedCrops)
	require.Empty(t, page.RelatedCrops)
}

func TestCropPageZeroBaseYield(t *testing.T) {
	backend := scenarioBackend()
	backend.prediction = cultivation.Prediction{PredictedYield: 0, BaseYield: 0, Status: cultivation.YieldPoor}
	svc := newTestService(backend, nil, Config{})

	page, err := svc.CropPage(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, page.Yield)
	require.Nil(t, page.Yield.EfficiencyPercent)
	require.Equal(t, "red", page.Yield.Presentation.Color)
}

func TestCropPageUnknownStatusFails(t *testing.T) {
	backend := scenarioBackend()
	backend.prediction.Status = "stellar"
	svc := newTestService(backend, nil, Config{})

	_, err := svc.CropPage(context.Background(), 42)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, StagePrediction, loadErr.Stage)
	require.ErrorIs(t, err, cultivation.ErrUnknownYieldStatus)
}

func TestCropPageCanceledContext(t *testing.T) {
	backend := scenarioBackend()
	svc := newTestService(backend, nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CropPage(ctx, 42)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, backend.callOrder())
}

func TestCropPageCancelBetweenStages(t *testing.T) {
	backend := scenarioBackend()
	ctx, cancel := context.WithCancel(context.Background())
	backend.afterLogs = cancel
	svc := newTestService(backend, nil, Config{})

	_, err := svc.CropPage(ctx, 42)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, StagePrediction, loadErr.Stage)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"crop", "logs"}, backend.callOrder())
}

func TestDeleteCropNavigatesToList(t *testing.T) {
	backend := scenarioBackend()
	svc := newTestService(backend, nil, Config{ListPath: "/dashboard/crops"})

	nav, err := svc.DeleteCrop(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "/dashboard/crops", nav.Redirect)
	require.Equal(t, []int64{42}, backend.deleted)

	backend.deleteErr = errors.New("forbidden")
	_, err = svc.DeleteCrop(context.Background(), 42)
	require.Error(t, err)
}

func TestSubmitLog(t *testing.T) {
	backend := scenarioBackend()
	svc := newTestService(backend, nil, Config{})

	log, err := svc.SubmitLog(context.Background(), 42, LogInput{DayNumber: 4, Watered: true})
	require.NoError(t, err)
	require.Equal(t, 4, log.DayNumber)

	_, err = svc.SubmitLog(context.Background(), 42, LogInput{DayNumber: 0})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestOverview(t *testing.T) {
	backend := scenarioBackend()
	svc := newTestService(backend, nil, Config{})

	cards, err := svc.Overview(context.Background(), " active ")
	require.NoError(t, err)
	require.Equal(t, "active", backend.lastQuery.Status)
	require.Len(t, cards, 3)
	require.Equal(t, 60.0, cards[0].ProgressPercent)
	require.Equal(t, "Sunflower", cards[0].SeedName)
}

type stubBackend struct {
	mu            sync.Mutex
	calls         []string
	crops         []cultivation.Crop
	logs          []cultivation.DailyLog
	prediction    cultivation.Prediction
	cropErr       error
	logsErr       error
	predictionErr error
	listErr       error
	deleteErr     error
	createErr     map[int]error
	createBlock   map[int]bool
	afterLogs     func()
	deleted       []int64
	created       []int
	lastQuery     CropQuery
}

func (b *stubBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *stubBackend) callOrder() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *stubBackend) GetCrop(ctx context.Context, id int64) (cultivation.Crop, error) {
	b.record("crop")
	if b.cropErr != nil {
		return cultivation.Crop{}, b.cropErr
	}
	for _, c := range b.crops {
		if c.ID == id {
			return c, nil
		}
	}
	return cultivation.Crop{}, apperrors.Wrap(apperrors.CodeNotFound, "crop not found", nil)
}

func (b *stubBackend) ListCrops(ctx context.Context, query CropQuery) ([]cultivation.Crop, error) {
	b.record("list")
	b.lastQuery = query
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.crops, nil
}

func (b *stubBackend) DeleteCrop(ctx context.Context, id int64) error {
	b.record("delete")
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *stubBackend) ListLogs(ctx context.Context, cropID int64) ([]cultivation.DailyLog, error) {
	b.record("logs")
	if b.afterLogs != nil {
		b.afterLogs()
	}
	if b.logsErr != nil {
		return nil, b.logsErr
	}
	return b.logs, nil
}

func (b *stubBackend) CreateLog(ctx context.Context, cropID int64, input LogInput) (cultivation.DailyLog, error) {
	b.record("create")
	if b.createBlock[input.DayNumber] {
		<-ctx.Done()
		return cultivation.DailyLog{}, apperrors.Wrap(apperrors.CodeUpstream, "backend unreachable", ctx.Err())
	}
	if err := b.createErr[input.DayNumber]; err != nil {
		return cultivation.DailyLog{}, err
	}
	b.mu.Lock()
	b.created = append(b.created, input.DayNumber)
	b.mu.Unlock()
	return cultivation.DailyLog{CropID: cropID, DayNumber: input.DayNumber, Watered: input.Watered}, nil
}

func (b *stubBackend) Prediction(ctx context.Context, cropID int64) (cultivation.Prediction, error) {
	b.record("prediction")
	if b.predictionErr != nil {
		return cultivation.Prediction{}, b.predictionErr
	}
	return b.prediction, nil
}

type stubAssistant struct {
	reply  string
	err    error
	calls  int
	prompt string
	opts   ChatOptions
}

func (a *stubAssistant) Chat(ctx context.Context, prompt string, opts ChatOptions) (string, error) {
	a.calls++
	a.prompt = prompt
	a.opts = opts
	return a.reply, a.err
}
