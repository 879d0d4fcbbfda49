package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/domain/dashboard"
	"github.com/urbansims/microgreens/internal/infra/backendapi"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
}).ParseFS(templateFS, "templates/*.html"))

type syncPayload struct {
	Logs []dashboard.LogInput `json:"logs"`
}

// cropPageView is the template model of the crop detail page.
type cropPageView struct {
	Page  dashboard.CropPage
	Error string
	Stage dashboard.Stage
}

type overviewView struct {
	Cards  []dashboard.CropCard
	Status string
	Error  string
}

// DashboardCropPage returns the aggregated crop page as JSON. When the logs
// or prediction stage fails, the partial page is returned with the error.
func (h *Handler) DashboardCropPage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, err := h.dashboardSvc.CropPage(h.backendContext(c), id)
	if err == nil {
		c.JSON(http.StatusOK, page)
		return
	}
	var loadErr *dashboard.LoadError
	if !errors.As(err, &loadErr) || loadErr.Stage == dashboard.StageCrop {
		abortWithError(c, fromAppError(err, "dashboard_failed"))
		return
	}
	httpErr := fromAppError(err, "dashboard_failed")
	h.logger.Warn("crop page incomplete", "crop_id", id, "stage", loadErr.Stage, "error", err)
	c.JSON(httpErr.Status, gin.H{
		"error": gin.H{
			"code":    httpErr.Code,
			"message": httpErr.Message,
			"stage":   loadErr.Stage,
		},
		"page": page,
	})
}

// DashboardOverview lists crop cards, optionally filtered by status.
func (h *Handler) DashboardOverview(c *gin.Context) {
	cards, err := h.dashboardSvc.Overview(h.backendContext(c), c.Query("status"))
	if err != nil {
		abortWithError(c, fromAppError(err, "dashboard_failed"))
		return
	}
	c.JSON(http.StatusOK, cards)
}

// DashboardDeleteCrop deletes a crop and tells the client where to go next.
func (h *Handler) DashboardDeleteCrop(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	nav, err := h.dashboardSvc.DeleteCrop(h.backendContext(c), id)
	if err != nil {
		abortWithError(c, fromAppError(err, "delete_failed"))
		return
	}
	c.JSON(http.StatusOK, nav)
}

// DashboardSubmitLog creates one daily log through the backend.
func (h *Handler) DashboardSubmitLog(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input dashboard.LogInput
	if !bindJSON(c, &input) {
		return
	}
	log, err := h.dashboardSvc.SubmitLog(h.backendContext(c), id, input)
	if err != nil {
		abortWithError(c, fromAppError(err, "create_failed"))
		return
	}
	c.JSON(http.StatusCreated, log)
}

// DashboardSyncLogs creates several logs at once. A partial sync answers
// 207 with the created, failed and skipped days.
func (h *Handler) DashboardSyncLogs(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payload syncPayload
	if !bindJSON(c, &payload) {
		return
	}
	result, err := h.dashboardSvc.SyncLogs(h.backendContext(c), id, payload.Logs)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, dashboard.ErrPartialSync):
		c.JSON(http.StatusMultiStatus, result)
	default:
		abortWithError(c, fromAppError(err, "sync_failed"))
	}
}

// CropPageView renders the crop detail page as HTML.
func (h *Handler) CropPageView(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, err := h.dashboardSvc.CropPage(h.backendContext(c), id)
	view := cropPageView{Page: page}
	status := http.StatusOK
	if err != nil {
		httpErr := fromAppError(err, "dashboard_failed")
		status = httpErr.Status
		view.Error = httpErr.Message
		var loadErr *dashboard.LoadError
		if errors.As(err, &loadErr) {
			view.Stage = loadErr.Stage
		}
		h.logger.Warn("crop page render with error", "crop_id", id, "stage", view.Stage, "error", err)
	}
	h.render(c, status, "crop_page.html", view)
}

// OverviewView renders the crop list as HTML.
func (h *Handler) OverviewView(c *gin.Context) {
	status := c.Query("status")
	cards, err := h.dashboardSvc.Overview(h.backendContext(c), status)
	view := overviewView{Cards: cards, Status: status}
	code := http.StatusOK
	if err != nil {
		httpErr := fromAppError(err, "dashboard_failed")
		code = httpErr.Status
		view.Error = httpErr.Message
	}
	h.render(c, code, "overview.html", view)
}

// DeleteCropView deletes a crop from the HTML page and redirects to the list.
func (h *Handler) DeleteCropView(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	nav, err := h.dashboardSvc.DeleteCrop(h.backendContext(c), id)
	if err != nil {
		abortWithError(c, fromAppError(err, "delete_failed"))
		return
	}
	c.Redirect(http.StatusSeeOther, nav.Redirect)
}

func (h *Handler) render(c *gin.Context, status int, name string, data any) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := pageTemplates.ExecuteTemplate(c.Writer, name, data); err != nil {
		h.logger.Error("template render failed", "template", name, "error", err)
	}
}

// backendContext forwards the caller's token and address to the crops API.
func (h *Handler) backendContext(c *gin.Context) context.Context {
	ctx := backendapi.WithBearer(c.Request.Context(), getToken(c))
	return backendapi.WithClientIP(ctx, c.ClientIP())
}
