package backendapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/dashboard"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
)

func TestClient_GetCropNormalizesSeedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/crops/42", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "203.0.113.9", r.Header.Get("X-Forwarded-For"))
		_, _ = io.WriteString(w, `{
			"id": 42, "seed_id": 7, "tray_size": "10x20 inch", "number_of_trays": 2, "status": "active",
			"start_datetime": "2024-05-01T08:00:00Z",
			"seed": {"id": 7, "name": "Sunflower", "harvest_days": "10", "germination_days": "3-4",
			         "blackout_time_days": null, "avg_yield_grams": 600, "ideal_temp": "22",
			         "seed_count_per_gram": 25}
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	ctx := WithClientIP(WithBearer(context.Background(), "tok"), "203.0.113.9")
	crop, err := client.GetCrop(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), crop.ID)
	require.Equal(t, 2, crop.NumberOfTrays)
	require.NotNil(t, crop.Seed)
	require.Equal(t, 10, crop.Seed.GrowthDays())
	require.InDelta(t, 3.5, *crop.Seed.GerminationDays, 1e-9)
	require.Nil(t, crop.Seed.BlackoutTimeDays)
	require.Equal(t, 22.0, crop.Seed.IdealTemp)
	require.Equal(t, "25", crop.Seed.SeedCountPerGram)
}

func TestClient_ListCropsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "active", r.URL.Query().Get("status"))
		require.Equal(t, "7", r.URL.Query().Get("seed_id"))
		require.Empty(t, r.Header.Get("Authorization"))
		require.Empty(t, r.Header.Get("X-Forwarded-For"))
		_, _ = io.WriteString(w, `[{"id":1,"seed_id":7},{"id":2,"seed_id":7}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	crops, err := client.ListCrops(context.Background(), dashboard.CropQuery{Status: "active", SeedID: 7})
	require.NoError(t, err)
	require.Len(t, crops, 2)
}

func TestClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusNotFound, apperrors.CodeNotFound},
		{http.StatusForbidden, apperrors.CodeForbidden},
		{http.StatusUnauthorized, apperrors.CodeUnauthenticated},
		{http.StatusUnprocessableEntity, apperrors.CodeInvalidInput},
		{http.StatusConflict, apperrors.CodeConflict},
		{http.StatusBadGateway, apperrors.CodeUpstream},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, `{"error":{"code":"x","message":"went wrong"}}`)
		}))
		client := NewClient(server.URL, time.Second, server.Client())
		_, err := client.Prediction(context.Background(), 1)
		server.Close()

		require.True(t, apperrors.IsCode(err, tc.code), "status %d", tc.status)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, tc.status, statusErr.StatusCode)
		require.Contains(t, err.Error(), "went wrong")
	}
}

func TestClient_CreateLogPostsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var input dashboard.LogInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		require.Equal(t, 3, input.DayNumber)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(cultivation.DailyLog{ID: 9, CropID: 5, DayNumber: input.DayNumber, Watered: input.Watered})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	log, err := client.CreateLog(context.Background(), 5, dashboard.LogInput{DayNumber: 3, Watered: true})
	require.NoError(t, err)
	require.Equal(t, int64(9), log.ID)
	require.True(t, log.Watered)
}

func TestClient_RejectsUnknownPredictionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"predicted_yield":500,"base_yield":600,"status":"mediocre"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	_, err := client.Prediction(context.Background(), 1)
	require.ErrorIs(t, err, cultivation.ErrUnknownYieldStatus)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))
}

func TestClient_TimeoutIsPerRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond, server.Client())
	err := client.DeleteCrop(context.Background(), 1)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
