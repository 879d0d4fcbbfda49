package cultivation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEfficiency(t *testing.T) {
	got, err := Efficiency(45, 50)
	require.NoError(t, err)
	require.InDelta(t, 90.0, got, 1e-9)

	got, err = Efficiency(0, 50)
	require.NoError(t, err)
	require.Zero(t, got)

	_, err = Efficiency(45, 0)
	require.ErrorIs(t, err, ErrZeroBaseYield)

	_, err = Efficiency(math.NaN(), 50)
	require.Error(t, err)
}

func TestStatusForRatio(t *testing.T) {
	require.Equal(t, YieldExcellent, StatusForRatio(0.95))
	require.Equal(t, YieldGood, StatusForRatio(0.9))
	require.Equal(t, YieldFair, StatusForRatio(0.70))
	require.Equal(t, YieldPoor, StatusForRatio(0.69))
}

func TestYieldStatusDecoding(t *testing.T) {
	var payload struct {
		Status YieldStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"Good"}`), &payload))
	require.Equal(t, YieldGood, payload.Status)

	err := json.Unmarshal([]byte(`{"status":"stellar"}`), &payload)
	require.ErrorIs(t, err, ErrUnknownYieldStatus)

	_, err = json.Marshal(struct {
		Status YieldStatus `json:"status"`
	}{Status: "stellar"})
	require.Error(t, err)
}

func TestYieldStatusPresentation(t *testing.T) {
	for _, status := range YieldStatuses {
		p, err := status.Presentation()
		require.NoError(t, err)
		require.NotEmpty(t, p.Color)
		require.NotEmpty(t, p.Label)
	}
	_, err := YieldStatus("unknown").Presentation()
	require.ErrorIs(t, err, ErrUnknownYieldStatus)
}
