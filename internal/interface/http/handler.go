package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/domain/auth"
	"github.com/urbansims/microgreens/internal/domain/dashboard"
	"github.com/urbansims/microgreens/internal/domain/tracker"
	"github.com/urbansims/microgreens/internal/infra/config"
	"github.com/urbansims/microgreens/pkg/metrics"
)

// UsageReporter exposes accumulated LLM token usage.
type UsageReporter interface {
	Usage() metrics.TokenUsage
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	trackerSvc    tracker.Service
	dashboardSvc  dashboard.Service
	authSvc       auth.Service
	requests      *metrics.RequestCounter
	usage         UsageReporter
	maxPhotoBytes int64
	logger        *slog.Logger
}

// NewHandler constructs the root HTTP handler. usage may be nil when no
// assistant is configured.
func NewHandler(cfg *config.Config, trackerSvc tracker.Service, dashboardSvc dashboard.Service, authSvc auth.Service, requests *metrics.RequestCounter, usage UsageReporter, logger *slog.Logger) *Handler {
	if requests == nil {
		requests = metrics.NewRequestCounter()
	}
	return &Handler{
		trackerSvc:    trackerSvc,
		dashboardSvc:  dashboardSvc,
		authSvc:       authSvc,
		requests:      requests,
		usage:         usage,
		maxPhotoBytes: cfg.Tracker.MaxPhotoBytes,
		logger:        logger.With("component", "http.handler"),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics returns request counters and LLM token usage.
func (h *Handler) Metrics(c *gin.Context) {
	body := gin.H{"requests": h.requests.Snapshot()}
	if h.usage != nil {
		body["tokenUsage"] = h.usage.Usage()
	}
	c.JSON(http.StatusOK, body)
}

func currentActor(c *gin.Context) (tracker.Actor, bool) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return tracker.Actor{}, false
	}
	return tracker.Actor{UserID: claims.UserID, Admin: claims.IsAdmin()}, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid "+name, err))
		return 0, false
	}
	return id, true
}

func dayParam(c *gin.Context) (int, bool) {
	day, err := strconv.Atoi(strings.TrimSpace(c.Param("day")))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid day", err))
		return 0, false
	}
	return day, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return false
	}
	return true
}
