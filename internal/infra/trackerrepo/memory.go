package trackerrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/tracker"
)

// MemoryRepository keeps seeds, crops and their records in memory. Useful for tests and local dev.
type MemoryRepository struct {
	mu       sync.RWMutex
	seeds    map[int64]cultivation.Seed
	seedKeys map[string]int64
	crops    map[int64]cultivation.Crop
	logs     map[int64]map[int]cultivation.DailyLog
	harvests map[int64]cultivation.Harvest
	training map[int64]cultivation.TrainingData
	seq      int64
	seedSeq  int64
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		seeds:    make(map[int64]cultivation.Seed),
		seedKeys: make(map[string]int64),
		crops:    make(map[int64]cultivation.Crop),
		logs:     make(map[int64]map[int]cultivation.DailyLog),
		harvests: make(map[int64]cultivation.Harvest),
		training: make(map[int64]cultivation.TrainingData),
	}
}

func (r *MemoryRepository) nextID() int64 {
	r.seq++
	return r.seq
}

func (r *MemoryRepository) ListSeeds(_ context.Context) ([]cultivation.Seed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]cultivation.Seed, 0, len(r.seeds))
	for _, seed := range r.seeds {
		out = append(out, seed)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) GetSeed(_ context.Context, id int64) (cultivation.Seed, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seed, ok := r.seeds[id]
	return seed, ok, nil
}

// UpsertSeed inserts or replaces a seed keyed by its seed_type slug.
func (r *MemoryRepository) UpsertSeed(_ context.Context, seed cultivation.Seed) (cultivation.Seed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seed.SeedType == "" {
		seed.SeedType = cultivation.Slugify(seed.Name)
	}
	if id, ok := r.seedKeys[seed.SeedType]; ok {
		seed.ID = id
	} else {
		r.seedSeq++
		seed.ID = r.seedSeq
		r.seedKeys[seed.SeedType] = seed.ID
	}
	r.seeds[seed.ID] = seed
	return seed, nil
}

func (r *MemoryRepository) CreateCrop(_ context.Context, crop cultivation.Crop) (cultivation.Crop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	crop.ID = r.nextID()
	if crop.CreatedAt.IsZero() {
		crop.CreatedAt = time.Now().UTC()
	}
	crop.Seed = nil
	r.crops[crop.ID] = crop
	return crop, nil
}

func (r *MemoryRepository) GetCrop(_ context.Context, id int64) (cultivation.Crop, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	crop, ok := r.crops[id]
	return crop, ok, nil
}

// ListCrops returns matching crops newest first. A zero UserID lists every owner.
func (r *MemoryRepository) ListCrops(_ context.Context, query tracker.CropQuery) ([]cultivation.Crop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]cultivation.Crop, 0)
	for _, crop := range r.crops {
		if query.UserID != 0 && crop.UserID != query.UserID {
			continue
		}
		if query.Status != "" && crop.Status != query.Status {
			continue
		}
		if query.SeedID != 0 && crop.SeedID != query.SeedID {
			continue
		}
		out = append(out, crop)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDatetime.Equal(out[j].StartDatetime) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartDatetime.After(out[j].StartDatetime)
	})
	return out, nil
}

func (r *MemoryRepository) DeleteCrop(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.crops, id)
	delete(r.logs, id)
	delete(r.harvests, id)
	delete(r.training, id)
	return nil
}

func (r *MemoryRepository) ListLogs(_ context.Context, cropID int64) ([]cultivation.DailyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]cultivation.DailyLog, 0, len(r.logs[cropID]))
	for _, log := range r.logs[cropID] {
		out = append(out, log)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

func (r *MemoryRepository) GetLog(_ context.Context, cropID int64, day int) (cultivation.DailyLog, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log, ok := r.logs[cropID][day]
	return log, ok, nil
}

func (r *MemoryRepository) CreateLog(_ context.Context, log cultivation.DailyLog) (cultivation.DailyLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	days := r.logs[log.CropID]
	if days == nil {
		days = make(map[int]cultivation.DailyLog)
		r.logs[log.CropID] = days
	}
	if _, exists := days[log.DayNumber]; exists {
		return cultivation.DailyLog{}, tracker.ErrDuplicateLog
	}
	log.ID = r.nextID()
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now().UTC()
	}
	days[log.DayNumber] = log
	return log, nil
}

func (r *MemoryRepository) UpdateLog(_ context.Context, log cultivation.DailyLog) (cultivation.DailyLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	days := r.logs[log.CropID]
	if days == nil {
		days = make(map[int]cultivation.DailyLog)
		r.logs[log.CropID] = days
	}
	days[log.DayNumber] = log
	return log, nil
}

func (r *MemoryRepository) HarvestCrop(_ context.Context, harvest cultivation.Harvest) (cultivation.Harvest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	crop, ok := r.crops[harvest.CropID]
	if !ok || crop.Status != cultivation.CropActive {
		return cultivation.Harvest{}, tracker.ErrCropNotActive
	}
	harvest.ID = r.nextID()
	if harvest.HarvestedAt.IsZero() {
		harvest.HarvestedAt = time.Now().UTC()
	}
	at := harvest.HarvestedAt
	crop.Status = cultivation.CropHarvested
	crop.HarvestedAt = &at
	r.crops[crop.ID] = crop
	r.harvests[harvest.CropID] = harvest
	return harvest, nil
}

func (r *MemoryRepository) GetHarvest(_ context.Context, cropID int64) (cultivation.Harvest, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	harvest, ok := r.harvests[cropID]
	return harvest, ok, nil
}

// SaveTrainingData keeps the latest snapshot per crop.
func (r *MemoryRepository) SaveTrainingData(_ context.Context, data cultivation.TrainingData) (cultivation.TrainingData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.training[data.CropID]; ok {
		data.ID = existing.ID
	} else {
		data.ID = r.nextID()
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	r.training[data.CropID] = data
	return data, nil
}

// TrainingData returns the stored snapshot for a crop.
func (r *MemoryRepository) TrainingData(cropID int64) (cultivation.TrainingData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.training[cropID]
	return data, ok
}

var (
	_ tracker.SeedRepository = (*MemoryRepository)(nil)
	_ tracker.CropRepository = (*MemoryRepository)(nil)
)
