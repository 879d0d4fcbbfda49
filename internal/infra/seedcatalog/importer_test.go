package seedcatalog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/urbansims/microgreens/internal/infra/trackerrepo"
)

const catalogCSV = `variety,latin_name,difficulty_level,seed_count_per_gram,sow_density_10x20_tray_g,soaking,blackout_time_days,germination_days,growth_period_days,watering,taste,nutrition_benefits,source_url
Sunflower,Helianthus annuus,Easy,25,200,"Yes, 8-12 hours",3-4,2,8-12,Bottom water,Nutty,Vitamin E,https://example.com/sunflower
"Radish, Daikon",Raphanus sativus,Easy,80,30,No,2,1-2,6-8,Top mist,Spicy,Vitamin C,
,,,,,,,,,,,,
Broccoli,Brassica oleracea,Medium,300,25,No,3,2-3,10,,Mild,Sulforaphane,
`

func newImporter() (*Importer, *trackerrepo.MemoryRepository) {
	repo := trackerrepo.NewMemoryRepository()
	return NewImporter(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestImporter_ParsesRangesAndSlugs(t *testing.T) {
	importer, repo := newImporter()

	result, err := importer.Import(context.Background(), strings.NewReader(catalogCSV))
	require.NoError(t, err)
	require.Equal(t, Result{Added: 3, Skipped: 1}, result)

	seeds, err := repo.ListSeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, seeds, 3)

	byType := map[string]int{}
	for i, seed := range seeds {
		byType[seed.SeedType] = i
	}
	sunflower := seeds[byType["sunflower"]]
	require.InDelta(t, 10.0, *sunflower.SoakingDurationHours, 1e-9)
	require.InDelta(t, 3.5, *sunflower.BlackoutTimeDays, 1e-9)
	require.Equal(t, 10, sunflower.GrowthDays())
	require.Equal(t, 200.0, sunflower.SuggestedSeedWeight)
	require.Equal(t, 500.0, sunflower.AvgYieldGrams)

	radish := seeds[byType["radish-daikon"]]
	require.Nil(t, radish.SoakingDurationHours)
	require.Equal(t, 7, radish.GrowthDays())
}

func TestImporter_ReimportUpdates(t *testing.T) {
	importer, _ := newImporter()
	ctx := context.Background()

	_, err := importer.Import(ctx, strings.NewReader(catalogCSV))
	require.NoError(t, err)
	result, err := importer.Import(ctx, strings.NewReader(catalogCSV))
	require.NoError(t, err)
	require.Equal(t, Result{Updated: 3, Skipped: 1}, result)
}

func TestImporter_RequiresVarietyColumn(t *testing.T) {
	importer, _ := newImporter()
	_, err := importer.Import(context.Background(), strings.NewReader("name,taste\nPea,Sweet\n"))
	require.ErrorContains(t, err, "variety")
}

func TestImporter_EnsureDefaultsOnlyWhenEmpty(t *testing.T) {
	importer, repo := newImporter()
	ctx := context.Background()

	n, err := importer.EnsureDefaults(ctx)
	require.NoError(t, err)
	require.Positive(t, n)

	n, err = importer.EnsureDefaults(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	seeds, err := repo.ListSeeds(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
}
