package cultivation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiplierDefaultsToFullFlat(t *testing.T) {
	for _, label := range []string{"", "10x20 inch", "1020", "huge", "5 by 5"} {
		require.Equal(t, 1.0, Multiplier(label), label)
	}
	require.Equal(t, 0.125, Multiplier("5x5 inch"))
	require.Equal(t, 0.5, Multiplier("10x10 inch"))
}

func TestMultiplierAgreesWithParseTraySize(t *testing.T) {
	for _, label := range []string{"5X5 inch", "5 x 5", " 10 X 10 Inch", "10x20", "\t5x5\n"} {
		size, err := ParseTraySize(label)
		require.NoError(t, err, label)
		require.Equal(t, size.Multiplier(), Multiplier(label), label)
	}
	require.Equal(t, 0.125, Multiplier("5X5 inch"))
}

func TestParseTraySize(t *testing.T) {
	size, err := ParseTraySize("")
	require.NoError(t, err)
	require.Equal(t, Tray10x20, size)
	require.Equal(t, DefaultTrayLabel, size.Label())

	size, err = ParseTraySize(" 10 x 10 Inch ")
	require.NoError(t, err)
	require.Equal(t, Tray10x10, size)

	_, err = ParseTraySize("12x24")
	require.ErrorIs(t, err, ErrUnknownTraySize)
}

func TestScaleQuantity(t *testing.T) {
	got, err := ScaleQuantity(200, "5x5 inch", 4)
	require.NoError(t, err)
	require.Equal(t, 100.0, got)

	got, err = ScaleQuantity(0, "10x10 inch", 3)
	require.NoError(t, err)
	require.Zero(t, got)

	_, err = ScaleQuantity(200, "10x20 inch", 0)
	require.ErrorIs(t, err, ErrInvalidTrayCount)

	_, err = ScaleQuantity(200, "round", 1)
	require.ErrorIs(t, err, ErrUnknownTraySize)
}

func TestScaleQuantityMatchesMultiplier(t *testing.T) {
	for _, label := range []string{"5x5 inch", "10x10 inch", "10x20 inch", ""} {
		for trays := 1; trays <= 4; trays++ {
			got, err := ScaleQuantity(250, label, trays)
			require.NoError(t, err)
			require.InDelta(t, 250*Multiplier(label)*float64(trays), got, 1e-9)
		}
	}
}

func TestScaleForCrop(t *testing.T) {
	seed := Seed{SuggestedSeedWeight: 200, AvgYieldGrams: 600}
	q, err := ScaleForCrop(seed, "10x10 inch", 2)
	require.NoError(t, err)
	require.Equal(t, ScaledQuantities{
		TraySize:      Tray10x10,
		Trays:         2,
		Multiplier:    0.5,
		SeedWeight:    200,
		ExpectedYield: 600,
	}, q)
}
