package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/domain/auth"
	"github.com/urbansims/microgreens/internal/domain/tracker"
	"github.com/urbansims/microgreens/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		metricsMiddleware(handler.requests),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET(tracker.PhotoRoutePrefix+"*key", handler.Photo)

	api := router.Group("/api")
	{
		api.GET("/metrics", handler.Metrics)
		api.GET("/seeds", handler.ListSeeds)
		api.GET("/seeds/:id", handler.GetSeed)
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/refresh", handler.Refresh)
	}

	secured := api.Group("")
	secured.Use(authMiddleware(authSvc))
	{
		secured.GET("/users/me", handler.Profile)
		secured.PATCH("/users/me/preferences", handler.UpdatePreferences)

		secured.GET("/crops", handler.ListCrops)
		secured.POST("/crops", handler.CreateCrop)
		secured.GET("/crops/stats", handler.Stats)
		secured.GET("/crops/:id", handler.GetCrop)
		secured.DELETE("/crops/:id", handler.DeleteCrop)
		secured.GET("/crops/:id/logs", handler.ListLogs)
		secured.POST("/crops/:id/logs", handler.CreateLog)
		secured.POST("/crops/:id/actions", handler.RecordAction)
		secured.POST("/crops/:id/logs/:day/photo", handler.UploadPhoto)
		secured.POST("/crops/:id/harvest", handler.Harvest)
		secured.GET("/crops/:id/harvest", handler.GetHarvest)
		secured.GET("/crops/:id/prediction", handler.Prediction)

		secured.GET("/dashboard/crops", handler.DashboardOverview)
		secured.GET("/dashboard/crops/:id", handler.DashboardCropPage)
		secured.DELETE("/dashboard/crops/:id", handler.DashboardDeleteCrop)
		secured.POST("/dashboard/crops/:id/logs", handler.DashboardSubmitLog)
		secured.POST("/dashboard/crops/:id/logs/sync", handler.DashboardSyncLogs)
	}

	pages := router.Group("/dashboard")
	pages.Use(authMiddleware(authSvc))
	{
		pages.GET("", handler.OverviewView)
		pages.GET("/crops/:id", handler.CropPageView)
		pages.POST("/crops/:id/delete", handler.DeleteCropView)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
