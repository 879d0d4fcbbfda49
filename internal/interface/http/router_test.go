package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/urbansims/microgreens/internal/domain/auth"
	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/dashboard"
	"github.com/urbansims/microgreens/internal/domain/tracker"
	"github.com/urbansims/microgreens/internal/infra/backendapi"
	"github.com/urbansims/microgreens/internal/infra/config"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
	"github.com/urbansims/microgreens/pkg/metrics"
)

const testToken = "good-token"

func TestRouter_Health(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})
	recorder := performRequest(http.MethodGet, "/healthz", "", nil, server)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_CropsRequireToken(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})

	recorder := performRequest(http.MethodGet, "/api/crops", "", nil, server)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "unauthorized", errBody["error"]["code"])

	recorder = performRequest(http.MethodGet, "/api/crops", "", bearer("expired"), server)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	errBody = decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, apperrors.CodeInvalidToken, errBody["error"]["code"])
}

func TestRouter_CreateCropPassesActor(t *testing.T) {
	trackerSvc := &stubTracker{
		createCropFn: func(ctx context.Context, actor tracker.Actor, req tracker.CreateCropRequest) (cultivation.Crop, error) {
			require.Equal(t, tracker.Actor{UserID: 7, Admin: true}, actor)
			require.Equal(t, int64(3), req.SeedID)
			require.Equal(t, "5x5 inch", req.TraySize)
			return cultivation.Crop{ID: 11, SeedID: 3, TraySize: req.TraySize, Status: cultivation.CropActive}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{tracker: trackerSvc})

	recorder := performRequest(http.MethodPost, "/api/crops", `{"seed_id":3,"tray_size":"5x5 inch","number_of_trays":2}`, bearer(testToken), server)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var got cultivation.Crop
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, int64(11), got.ID)
}

func TestRouter_DomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperrors.Wrap(apperrors.CodeNotFound, "crop not found", nil), http.StatusNotFound, apperrors.CodeNotFound},
		{"forbidden", apperrors.Wrap(apperrors.CodeForbidden, "not your crop", nil), http.StatusForbidden, apperrors.CodeForbidden},
		{"storage", apperrors.Wrap(apperrors.CodeStorage, "db down", errors.New("boom")), http.StatusInternalServerError, apperrors.CodeStorage},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "fetch_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trackerSvc := &stubTracker{
				getCropFn: func(ctx context.Context, actor tracker.Actor, id int64) (cultivation.Crop, error) {
					return cultivation.Crop{}, tc.err
				},
			}
			server := newRouterUnderTest(t, routerDeps{tracker: trackerSvc})
			recorder := performRequest(http.MethodGet, "/api/crops/5", "", bearer(testToken), server)
			require.Equal(t, tc.status, recorder.Code)
			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tc.code, errBody["error"]["code"])
		})
	}
}

func TestRouter_InvalidCropID(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})
	recorder := performRequest(http.MethodGet, "/api/crops/abc", "", bearer(testToken), server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_UploadPhoto(t *testing.T) {
	trackerSvc := &stubTracker{
		attachPhotoFn: func(ctx context.Context, actor tracker.Actor, cropID int64, day int, upload tracker.PhotoUpload) (tracker.PhotoResult, error) {
			require.Equal(t, int64(4), cropID)
			require.Equal(t, 2, day)
			require.Equal(t, "sprouts.png", upload.Filename)
			require.Equal(t, "image/png", upload.ContentType)
			require.Equal(t, []byte("png-bytes"), upload.Content)
			return tracker.PhotoResult{PhotoURL: tracker.PhotoRoutePrefix + "crops/4/day_2.png"}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{tracker: trackerSvc})

	body, contentType := multipartPhoto(t, "photo", "sprouts.png", "image/png", []byte("png-bytes"))
	headers := bearer(testToken)
	headers["Content-Type"] = contentType
	recorder := performRequest(http.MethodPost, "/api/crops/4/logs/2/photo", body.String(), headers, server)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got tracker.PhotoResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "/api/photos/crops/4/day_2.png", got.PhotoURL)
}

func TestRouter_UploadPhotoTooLarge(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{maxPhotoBytes: 4})

	body, contentType := multipartPhoto(t, "photo", "big.png", "image/png", []byte("way too many bytes"))
	headers := bearer(testToken)
	headers["Content-Type"] = contentType
	recorder := performRequest(http.MethodPost, "/api/crops/4/logs/2/photo", body.String(), headers, server)
	require.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
}

func TestRouter_ServePhoto(t *testing.T) {
	trackerSvc := &stubTracker{
		photoFn: func(ctx context.Context, key string) (tracker.PhotoContent, error) {
			require.Equal(t, "/crops/4/day_2.png", key)
			return tracker.PhotoContent{Body: io.NopCloser(strings.NewReader("png-bytes")), MimeType: "image/png"}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{tracker: trackerSvc})

	recorder := performRequest(http.MethodGet, "/api/photos/crops/4/day_2.png", "", nil, server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "image/png", recorder.Header().Get("Content-Type"))
	require.Equal(t, "png-bytes", recorder.Body.String())
}

func TestRouter_DashboardCropPageForwardsToken(t *testing.T) {
	dash := &stubDashboard{
		cropPageFn: func(ctx context.Context, id int64) (dashboard.CropPage, error) {
			require.Equal(t, int64(9), id)
			return dashboard.CropPage{Crop: cultivation.Crop{ID: 9}, GrowthDays: 10}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{dashboard: dash})

	recorder := performRequest(http.MethodGet, "/api/dashboard/crops/9", "", bearer(testToken), server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, testToken, dash.lastToken)
}

func TestRouter_DashboardCropPagePartial(t *testing.T) {
	dash := &stubDashboard{
		cropPageFn: func(ctx context.Context, id int64) (dashboard.CropPage, error) {
			page := dashboard.CropPage{Crop: cultivation.Crop{ID: id}, Logs: []cultivation.DailyLog{{DayNumber: 1}}}
			return page, &dashboard.LoadError{
				Stage: dashboard.StagePrediction,
				Err:   apperrors.Wrap(apperrors.CodeUpstream, "prediction unavailable", nil),
			}
		},
	}
	server := newRouterUnderTest(t, routerDeps{dashboard: dash})

	recorder := performRequest(http.MethodGet, "/api/dashboard/crops/9", "", bearer(testToken), server)
	require.Equal(t, http.StatusBadGateway, recorder.Code)

	var body struct {
		Error struct {
			Code  string `json:"code"`
			Stage string `json:"stage"`
		} `json:"error"`
		Page dashboard.CropPage `json:"page"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, apperrors.CodeUpstream, body.Error.Code)
	require.Equal(t, "prediction", body.Error.Stage)
	require.Equal(t, int64(9), body.Page.Crop.ID)
	require.Len(t, body.Page.Logs, 1)
}

func TestRouter_DashboardCropStageFailure(t *testing.T) {
	dash := &stubDashboard{
		cropPageFn: func(ctx context.Context, id int64) (dashboard.CropPage, error) {
			return dashboard.CropPage{}, &dashboard.LoadError{
				Stage: dashboard.StageCrop,
				Err:   apperrors.Wrap(apperrors.CodeNotFound, "crop not found", nil),
			}
		},
	}
	server := newRouterUnderTest(t, routerDeps{dashboard: dash})

	recorder := performRequest(http.MethodGet, "/api/dashboard/crops/9", "", bearer(testToken), server)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, apperrors.CodeNotFound, errBody["error"]["code"])
}

func TestRouter_DashboardSyncPartial(t *testing.T) {
	dash := &stubDashboard{
		syncLogsFn: func(ctx context.Context, id int64, inputs []dashboard.LogInput) (dashboard.SyncResult, error) {
			require.Len(t, inputs, 2)
			return dashboard.SyncResult{
				Created: []cultivation.DailyLog{{DayNumber: 1}},
				Failed:  []dashboard.SyncFailure{{Day: 2, Error: "conflict"}},
				Skipped: []int{},
			}, dashboard.ErrPartialSync
		},
	}
	server := newRouterUnderTest(t, routerDeps{dashboard: dash})

	recorder := performRequest(http.MethodPost, "/api/dashboard/crops/9/logs/sync",
		`{"logs":[{"day_number":1,"watered":true},{"day_number":2}]}`, bearer(testToken), server)
	require.Equal(t, http.StatusMultiStatus, recorder.Code)

	var got dashboard.SyncResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.False(t, got.Complete)
	require.Equal(t, 2, got.Failed[0].Day)
}

func TestRouter_CropPageViewUsesCookieAndShowsBanner(t *testing.T) {
	dash := &stubDashboard{
		cropPageFn: func(ctx context.Context, id int64) (dashboard.CropPage, error) {
			page := dashboard.CropPage{
				Crop:       cultivation.Crop{ID: id},
				Seed:       &cultivation.SeedReference{Name: "Radish"},
				GrowthDays: 8,
				Timeline: []cultivation.TimelineDay{
					{Day: 1, Status: cultivation.DayCompleted},
					{Day: 2, Status: cultivation.DayCurrent},
				},
			}
			return page, &dashboard.LoadError{Stage: dashboard.StagePrediction, Err: errors.New("timeout")}
		},
	}
	server := newRouterUnderTest(t, routerDeps{dashboard: dash})

	req := httptest.NewRequest(http.MethodGet, "/dashboard/crops/3", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: testToken})
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Contains(t, recorder.Header().Get("Content-Type"), "text/html")
	html := recorder.Body.String()
	require.Contains(t, html, "Radish")
	require.Contains(t, html, "Could not load prediction")
	require.Contains(t, html, `class="day current"`)
	require.Equal(t, testToken, dash.lastToken)
}

func TestRouter_DeleteCropViewRedirects(t *testing.T) {
	dash := &stubDashboard{
		deleteCropFn: func(ctx context.Context, id int64) (dashboard.Navigation, error) {
			return dashboard.Navigation{Redirect: "/dashboard"}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{dashboard: dash})

	recorder := performRequest(http.MethodPost, "/dashboard/crops/3/delete", "", bearer(testToken), server)
	require.Equal(t, http.StatusSeeOther, recorder.Code)
	require.Equal(t, "/dashboard", recorder.Header().Get("Location"))
}

func TestRouter_LoginSetsSessionCookie(t *testing.T) {
	authSvc := &stubAuth{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
			require.Equal(t, "grower", req.Username)
			return auth.LoginResponse{Token: "issued", TokenType: "bearer"}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{auth: authSvc})

	recorder := performRequest(http.MethodPost, "/api/auth/login", `{"username":"grower","password":"secret123"}`, nil, server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Header().Get("Set-Cookie"), sessionCookie+"=issued")
}

func TestRouter_RegisterConflict(t *testing.T) {
	authSvc := &stubAuth{
		registerFn: func(ctx context.Context, req auth.RegisterRequest) (auth.UserView, error) {
			return auth.UserView{}, apperrors.Wrap(apperrors.CodeUsernameTaken, "username already exists", nil)
		},
	}
	server := newRouterUnderTest(t, routerDeps{auth: authSvc})

	recorder := performRequest(http.MethodPost, "/api/auth/register", `{"username":"grower","email":"g@example.com","password":"secret123"}`, nil, server)
	require.Equal(t, http.StatusConflict, recorder.Code)
	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, apperrors.CodeUsernameTaken, errBody["error"]["code"])
}

func TestRouter_RetriesTransientPostFailures(t *testing.T) {
	attempts := 0
	authSvc := &stubAuth{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
			attempts++
			if attempts == 1 {
				return auth.LoginResponse{}, apperrors.Wrap(apperrors.CodeAuth, "db hiccup", nil)
			}
			return auth.LoginResponse{Token: "issued", TokenType: "bearer"}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{auth: authSvc, retry: true})

	recorder := performRequest(http.MethodPost, "/api/auth/login", `{"username":"grower","password":"secret123"}`, nil, server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, attempts)
}

func TestRouter_RetryLeavesWritesAlone(t *testing.T) {
	logAttempts, harvestAttempts := 0, 0
	trackerSvc := &stubTracker{
		createLogFn: func(ctx context.Context, actor tracker.Actor, cropID int64, req tracker.CreateLogRequest) (cultivation.DailyLog, error) {
			logAttempts++
			return cultivation.DailyLog{}, apperrors.Wrap(apperrors.CodeStorage, "commit outcome unknown", nil)
		},
		harvestFn: func(ctx context.Context, actor tracker.Actor, cropID int64, req tracker.HarvestRequest) (cultivation.Harvest, error) {
			harvestAttempts++
			return cultivation.Harvest{}, apperrors.Wrap(apperrors.CodeStorage, "commit outcome unknown", nil)
		},
	}
	server := newRouterUnderTest(t, routerDeps{tracker: trackerSvc, retry: true})

	recorder := performRequest(http.MethodPost, "/api/crops/2/logs", `{"day_number":3}`, bearer(testToken), server)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, logAttempts)

	recorder = performRequest(http.MethodPost, "/api/crops/2/harvest", `{"actual_weight":500}`, bearer(testToken), server)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, harvestAttempts)
}

func TestRouter_RetryStopsWhenClientLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	authSvc := &stubAuth{
		loginFn: func(context.Context, auth.LoginRequest) (auth.LoginResponse, error) {
			attempts++
			cancel()
			return auth.LoginResponse{}, apperrors.Wrap(apperrors.CodeAuth, "db hiccup", nil)
		},
	}
	server := newRouterUnderTest(t, routerDeps{auth: authSvc, retry: true})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"grower","password":"secret123"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, attempts)
}

func TestRouter_RetrySkipsExcludedRoutes(t *testing.T) {
	attempts := 0
	dash := &stubDashboard{
		syncLogsFn: func(ctx context.Context, id int64, inputs []dashboard.LogInput) (dashboard.SyncResult, error) {
			attempts++
			return dashboard.SyncResult{}, apperrors.Wrap(apperrors.CodeStorage, "down", nil)
		},
	}
	server := newRouterUnderTest(t, routerDeps{dashboard: dash, retry: true})

	recorder := performRequest(http.MethodPost, "/api/dashboard/crops/2/logs/sync", `{"logs":[]}`, bearer(testToken), server)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, attempts)
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{rateLimitBurst: 1})

	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/healthz", "", nil, server).Code)
	recorder := performRequest(http.MethodGet, "/healthz", "", nil, server)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "60", recorder.Header().Get("Retry-After"))
	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "rate_limit_exceeded", errBody["error"]["code"])
}

func TestRouter_RateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{rateLimitBurst: 1})

	first := performRequest(http.MethodGet, "/healthz", "", map[string]string{"X-Forwarded-For": "198.51.100.1"}, server)
	require.Equal(t, http.StatusOK, first.Code)
	spoofed := performRequest(http.MethodGet, "/healthz", "", map[string]string{"X-Forwarded-For": "198.51.100.2"}, server)
	require.Equal(t, http.StatusTooManyRequests, spoofed.Code)
}

// Page loads and syncs call the crops API over loopback; each user must
// still draw from their own bucket.
func TestRouter_DashboardBackendCallsChargeTheUser(t *testing.T) {
	var mu sync.Mutex
	created := map[int64][]int{}
	trackerSvc := &stubTracker{
		createLogFn: func(ctx context.Context, actor tracker.Actor, cropID int64, req tracker.CreateLogRequest) (cultivation.DailyLog, error) {
			mu.Lock()
			defer mu.Unlock()
			created[cropID] = append(created[cropID], req.DayNumber)
			return cultivation.DailyLog{CropID: cropID, DayNumber: req.DayNumber}, nil
		},
	}

	backend := httptest.NewUnstartedServer(nil)
	client := backendapi.NewClient("http://"+backend.Listener.Addr().String(), 5*time.Second, nil)
	dash := dashboard.NewService(dashboard.Config{SyncConcurrency: 4}, client, nil, newTestLogger())
	server := newRouterUnderTest(t, routerDeps{
		tracker:        trackerSvc,
		dashboard:      dash,
		rateLimitBurst: 13,
		trustedProxies: []string{"127.0.0.1", "::1"},
	})
	backend.Config.Handler = server.Handler
	backend.Start()
	defer backend.Close()

	logs := make([]string, 0, 12)
	for day := 1; day <= 12; day++ {
		logs = append(logs, fmt.Sprintf(`{"day_number":%d}`, day))
	}
	payload := `{"logs":[` + strings.Join(logs, ",") + `]}`

	runSync := func(user int, cropID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/dashboard/crops/%d/logs/sync", cropID), strings.NewReader(payload))
		req.RemoteAddr = fmt.Sprintf("203.0.113.%d:40000", user)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+testToken)
		recorder := httptest.NewRecorder()
		server.Handler.ServeHTTP(recorder, req)
		return recorder
	}

	for user := 1; user <= 3; user++ {
		recorder := runSync(user, int64(user))
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
		var result dashboard.SyncResult
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		require.True(t, result.Complete)
		require.Len(t, result.Created, 12)
	}
	for cropID := int64(1); cropID <= 3; cropID++ {
		require.Len(t, created[cropID], 12)
	}

	// One sync spends the first user's whole budget: the request itself plus twelve creates.
	require.Equal(t, http.StatusTooManyRequests, runSync(1, 1).Code)
}

func TestClientRateLimiterRefills(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	limiter := newClientRateLimiter(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 2}, func() time.Time { return now })

	require.True(t, limiter.allow("a"))
	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))
	require.True(t, limiter.allow("b"))
	require.Equal(t, 1, limiter.refillSeconds())

	now = now.Add(time.Second)
	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))

	now = now.Add(10 * time.Minute)
	require.True(t, limiter.allow("a"))
	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))
	require.NotContains(t, limiter.buckets, "b")
}

func TestRouter_MetricsCountsRoutePatterns(t *testing.T) {
	usage := stubUsage{usage: metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	server := newRouterUnderTest(t, routerDeps{usage: usage})

	performRequest(http.MethodGet, "/api/crops/1", "", bearer(testToken), server)
	performRequest(http.MethodGet, "/api/crops/2", "", bearer(testToken), server)

	recorder := performRequest(http.MethodGet, "/api/metrics", "", nil, server)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Requests   metrics.RequestSnapshot `json:"requests"`
		TokenUsage metrics.TokenUsage      `json:"tokenUsage"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, uint64(2), body.Requests.RequestsByEndpoint["GET /api/crops/:id"])
	require.Equal(t, 15, body.TokenUsage.TotalTokens)
}

func TestRouteMatcher(t *testing.T) {
	m := newRouteMatcher([]string{"/api/crops/:id/logs/:day/photo", "/static/*file"})
	require.True(t, m.match("/api/crops/4/logs/2/photo"))
	require.False(t, m.match("/api/crops/4/logs"))
	require.False(t, m.match("/api/crops/4/logs/2/photo/extra"))
	require.True(t, m.match("/static/css/site.css"))
	require.False(t, m.match("/api/seeds"))
}

type routerDeps struct {
	tracker        tracker.Service
	dashboard      dashboard.Service
	auth           auth.Service
	usage          UsageReporter
	retry          bool
	rateLimitBurst int
	maxPhotoBytes  int64
	trustedProxies []string
}

func newRouterUnderTest(t *testing.T, deps routerDeps) *http.Server {
	t.Helper()
	if deps.tracker == nil {
		deps.tracker = &stubTracker{}
	}
	if deps.dashboard == nil {
		deps.dashboard = &stubDashboard{}
	}
	if deps.auth == nil {
		deps.auth = &stubAuth{}
	}
	if deps.maxPhotoBytes == 0 {
		deps.maxPhotoBytes = 1 << 20
	}
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:        ":0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			TrustedProxies: deps.trustedProxies,
			Retry: config.RetryConfig{
				Enabled:     deps.retry,
				MaxAttempts: 3,
				Exclude:     config.NonIdempotentRoutes,
			},
		},
		Tracker: config.TrackerConfig{MaxPhotoBytes: deps.maxPhotoBytes},
	}
	if deps.rateLimitBurst > 0 {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: deps.rateLimitBurst}
	}
	logger := newTestLogger()
	handler := NewHandler(cfg, deps.tracker, deps.dashboard, deps.auth, metrics.NewRequestCounter(), deps.usage, logger)
	return NewRouter(cfg, handler, deps.auth, logger)
}

func performRequest(method, path, body string, headers map[string]string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func multipartPhoto(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubUsage struct {
	usage metrics.TokenUsage
}

func (s stubUsage) Usage() metrics.TokenUsage { return s.usage }

type stubAuth struct {
	registerFn func(ctx context.Context, req auth.RegisterRequest) (auth.UserView, error)
	loginFn    func(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error)
}

func (s *stubAuth) Register(ctx context.Context, req auth.RegisterRequest) (auth.UserView, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, req)
	}
	return auth.UserView{}, nil
}

func (s *stubAuth) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) ValidateToken(_ context.Context, token string) (auth.Claims, error) {
	if token != testToken {
		return auth.Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token expired", nil)
	}
	return auth.Claims{UserID: 7, Username: "grower", Role: auth.RoleAdmin, TokenType: "access"}, nil
}

func (s *stubAuth) Refresh(context.Context, string) (auth.LoginResponse, error) {
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) Profile(_ context.Context, userID int64) (auth.UserView, error) {
	return auth.UserView{ID: userID}, nil
}

func (s *stubAuth) UpdatePreferences(_ context.Context, userID int64, req auth.PreferencesRequest) (auth.UserView, error) {
	return auth.UserView{ID: userID, PreferenceMode: req.PreferenceMode}, nil
}

type stubTracker struct {
	createCropFn  func(ctx context.Context, actor tracker.Actor, req tracker.CreateCropRequest) (cultivation.Crop, error)
	getCropFn     func(ctx context.Context, actor tracker.Actor, id int64) (cultivation.Crop, error)
	createLogFn   func(ctx context.Context, actor tracker.Actor, cropID int64, req tracker.CreateLogRequest) (cultivation.DailyLog, error)
	attachPhotoFn func(ctx context.Context, actor tracker.Actor, cropID int64, day int, upload tracker.PhotoUpload) (tracker.PhotoResult, error)
	photoFn       func(ctx context.Context, key string) (tracker.PhotoContent, error)
	harvestFn     func(ctx context.Context, actor tracker.Actor, cropID int64, req tracker.HarvestRequest) (cultivation.Harvest, error)
}

func (s *stubTracker) ListSeeds(context.Context) ([]cultivation.Seed, error) {
	return []cultivation.Seed{}, nil
}

func (s *stubTracker) GetSeed(_ context.Context, id int64) (cultivation.Seed, error) {
	return cultivation.Seed{ID: id}, nil
}

func (s *stubTracker) CreateCrop(ctx context.Context, actor tracker.Actor, req tracker.CreateCropRequest) (cultivation.Crop, error) {
	if s.createCropFn != nil {
		return s.createCropFn(ctx, actor, req)
	}
	return cultivation.Crop{}, nil
}

func (s *stubTracker) ListCrops(context.Context, tracker.Actor, tracker.CropFilter) ([]cultivation.Crop, error) {
	return []cultivation.Crop{}, nil
}

func (s *stubTracker) GetCrop(ctx context.Context, actor tracker.Actor, id int64) (cultivation.Crop, error) {
	if s.getCropFn != nil {
		return s.getCropFn(ctx, actor, id)
	}
	return cultivation.Crop{ID: id}, nil
}

func (s *stubTracker) DeleteCrop(context.Context, tracker.Actor, int64) error {
	return nil
}

func (s *stubTracker) ListLogs(context.Context, tracker.Actor, int64) ([]cultivation.DailyLog, error) {
	return []cultivation.DailyLog{}, nil
}

func (s *stubTracker) CreateLog(ctx context.Context, actor tracker.Actor, cropID int64, req tracker.CreateLogRequest) (cultivation.DailyLog, error) {
	if s.createLogFn != nil {
		return s.createLogFn(ctx, actor, cropID, req)
	}
	return cultivation.DailyLog{}, nil
}

func (s *stubTracker) RecordAction(context.Context, tracker.Actor, int64, tracker.ActionRequest) (tracker.ActionResult, error) {
	return tracker.ActionResult{}, nil
}

func (s *stubTracker) AttachPhoto(ctx context.Context, actor tracker.Actor, cropID int64, day int, upload tracker.PhotoUpload) (tracker.PhotoResult, error) {
	if s.attachPhotoFn != nil {
		return s.attachPhotoFn(ctx, actor, cropID, day, upload)
	}
	return tracker.PhotoResult{}, nil
}

func (s *stubTracker) Photo(ctx context.Context, key string) (tracker.PhotoContent, error) {
	if s.photoFn != nil {
		return s.photoFn(ctx, key)
	}
	return tracker.PhotoContent{}, apperrors.Wrap(apperrors.CodeNotFound, "photo not found", nil)
}

func (s *stubTracker) Harvest(ctx context.Context, actor tracker.Actor, cropID int64, req tracker.HarvestRequest) (cultivation.Harvest, error) {
	if s.harvestFn != nil {
		return s.harvestFn(ctx, actor, cropID, req)
	}
	return cultivation.Harvest{}, nil
}

func (s *stubTracker) GetHarvest(context.Context, tracker.Actor, int64) (cultivation.Harvest, error) {
	return cultivation.Harvest{}, nil
}

func (s *stubTracker) Prediction(context.Context, tracker.Actor, int64) (cultivation.Prediction, error) {
	return cultivation.Prediction{}, nil
}

func (s *stubTracker) Stats(context.Context, tracker.Actor) (tracker.Stats, error) {
	return tracker.Stats{}, nil
}

func (s *stubTracker) HandleJob(context.Context, string, map[string]any) error {
	return nil
}

type stubDashboard struct {
	cropPageFn   func(ctx context.Context, id int64) (dashboard.CropPage, error)
	deleteCropFn func(ctx context.Context, id int64) (dashboard.Navigation, error)
	syncLogsFn   func(ctx context.Context, id int64, inputs []dashboard.LogInput) (dashboard.SyncResult, error)
	lastToken    string
}

func (s *stubDashboard) remember(ctx context.Context) {
	s.lastToken = backendapi.BearerFrom(ctx)
}

func (s *stubDashboard) CropPage(ctx context.Context, id int64) (dashboard.CropPage, error) {
	s.remember(ctx)
	if s.cropPageFn != nil {
		return s.cropPageFn(ctx, id)
	}
	return dashboard.CropPage{}, nil
}

func (s *stubDashboard) DeleteCrop(ctx context.Context, id int64) (dashboard.Navigation, error) {
	s.remember(ctx)
	if s.deleteCropFn != nil {
		return s.deleteCropFn(ctx, id)
	}
	return dashboard.Navigation{Redirect: "/dashboard"}, nil
}

func (s *stubDashboard) SubmitLog(ctx context.Context, id int64, input dashboard.LogInput) (cultivation.DailyLog, error) {
	s.remember(ctx)
	return cultivation.DailyLog{CropID: id, DayNumber: input.DayNumber}, nil
}

func (s *stubDashboard) SyncLogs(ctx context.Context, id int64, inputs []dashboard.LogInput) (dashboard.SyncResult, error) {
	s.remember(ctx)
	if s.syncLogsFn != nil {
		return s.syncLogsFn(ctx, id, inputs)
	}
	return dashboard.SyncResult{Complete: true}, nil
}

func (s *stubDashboard) Overview(ctx context.Context, status string) ([]dashboard.CropCard, error) {
	s.remember(ctx)
	return []dashboard.CropCard{}, nil
}
