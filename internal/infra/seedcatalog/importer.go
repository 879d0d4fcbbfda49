package seedcatalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/tracker"
)

// Catalog defaults applied to imported rows, which carry no growing conditions.
const (
	defaultYieldGrams        = 500
	defaultIdealTemp         = 22.0
	defaultIdealHumidity     = 50.0
	defaultTempTolerance     = 3.0
	defaultHumidityTolerance = 10.0
)

// Result counts what an import changed.
type Result struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Importer loads seed reference data into a SeedRepository.
type Importer struct {
	repo   tracker.SeedRepository
	logger *slog.Logger
}

// NewImporter constructs an Importer.
func NewImporter(repo tracker.SeedRepository, logger *slog.Logger) *Importer {
	return &Importer{repo: repo, logger: logger.With("component", "seedcatalog.importer")}
}

// ImportFile reads a catalog CSV from disk.
func (i *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open seed catalog: %w", err)
	}
	defer f.Close()
	return i.Import(ctx, f)
}

// Import upserts every row keyed by the slug of its variety name. Rows
// without a variety are skipped.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	existing, err := i.knownTypes(ctx)
	if err != nil {
		return Result{}, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read seed catalog header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = idx
	}
	if _, ok := columns["variety"]; !ok {
		return Result{}, errors.New("seed catalog is missing the variety column")
	}

	var result Result
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read seed catalog line %d: %w", line, err)
		}
		row := catalogRow{columns: columns, record: record}
		seed, ok := row.seed()
		if !ok {
			result.Skipped++
			continue
		}
		if err := seed.Validate(); err != nil {
			i.logger.Warn("seed row rejected", "line", line, "error", err)
			result.Skipped++
			continue
		}
		if _, err := i.repo.UpsertSeed(ctx, seed); err != nil {
			return result, fmt.Errorf("upsert seed %q: %w", seed.Name, err)
		}
		if _, seen := existing[seed.SeedType]; seen {
			result.Updated++
		} else {
			existing[seed.SeedType] = struct{}{}
			result.Added++
		}
	}
	i.logger.Info("seed import complete", "added", result.Added, "updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

// EnsureDefaults installs the built-in catalog when the repository is empty.
func (i *Importer) EnsureDefaults(ctx context.Context) (int, error) {
	seeds, err := i.repo.ListSeeds(ctx)
	if err != nil {
		return 0, err
	}
	if len(seeds) > 0 {
		return 0, nil
	}
	defaults := cultivation.DefaultSeeds()
	for _, seed := range defaults {
		if _, err := i.repo.UpsertSeed(ctx, seed); err != nil {
			return 0, fmt.Errorf("seed default %q: %w", seed.Name, err)
		}
	}
	i.logger.Info("default seed catalog installed", "count", len(defaults))
	return len(defaults), nil
}

func (i *Importer) knownTypes(ctx context.Context) (map[string]struct{}, error) {
	seeds, err := i.repo.ListSeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}
	known := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		known[seed.SeedType] = struct{}{}
	}
	return known, nil
}

type catalogRow struct {
	columns map[string]int
	record  []string
}

func (r catalogRow) get(name string) string {
	idx, ok := r.columns[name]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

func (r catalogRow) number(name string) *float64 {
	if v, ok := cultivation.ParseRangeAverage(r.get(name)); ok {
		return &v
	}
	return nil
}

func (r catalogRow) seed() (cultivation.Seed, bool) {
	name := r.get("variety")
	if name == "" {
		return cultivation.Seed{}, false
	}
	difficulty := r.get("difficulty_level")
	if difficulty == "" {
		difficulty = "Medium"
	}
	soaking := r.get("soaking")
	var soakHours *float64
	if strings.Contains(strings.ToLower(soaking), "hour") {
		soakHours = r.number("soaking")
	}
	seed := cultivation.Seed{
		SeedType:             cultivation.Slugify(name),
		Name:                 name,
		LatinName:            r.get("latin_name"),
		Difficulty:           difficulty,
		SeedCountPerGram:     r.get("seed_count_per_gram"),
		SoakingDurationHours: soakHours,
		BlackoutTimeDays:     r.number("blackout_time_days"),
		GerminationDays:      r.number("germination_days"),
		HarvestDays:          r.number("growth_period_days"),
		SoakingReq:           soaking,
		WateringReq:          r.get("watering"),
		Taste:                r.get("taste"),
		Nutrition:            r.get("nutrition_benefits"),
		SourceURL:            r.get("source_url"),
		AvgYieldGrams:        defaultYieldGrams,
		IdealTemp:            defaultIdealTemp,
		IdealHumidity:        defaultIdealHumidity,
		TempTolerance:        defaultTempTolerance,
		HumidityTolerance:    defaultHumidityTolerance,
	}
	if density := r.number("sow_density_10x20_tray_g"); density != nil {
		seed.SuggestedSeedWeight = *density
	}
	seed.Description = strings.TrimSpace(fmt.Sprintf("A %s microgreen. %s", strings.ToLower(difficulty), seed.Taste))
	seed.CareInstructions = fmt.Sprintf("Blackout: %s days. Harvest: %s days. Soak: %s.",
		orDash(r.get("blackout_time_days")), orDash(r.get("growth_period_days")), orDash(soaking))
	return seed, true
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
