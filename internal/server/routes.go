package server

import (
	"net/http"

	"github.com/emnt/spacesync/internal/config"
	"github.com/emnt/spacesync/internal/server/handlers/api"
	"github.com/emnt/spacesync/internal/server/handlers/assets"
	settingsH "github.com/emnt/spacesync/internal/server/handlers/settings"
	syncH "github.com/emnt/spacesync/internal/server/handlers/sync"
	"github.com/emnt/spacesync/internal/server/middlewares"
	"github.com/emnt/spacesync/internal/version"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg config.HTTPConfig, svc *Services) http.Handler {
	r := gin.New()

	syncHandler := syncH.New(svc.Sync)
	settingsHandler := settingsH.New(svc.Settings, svc.Storage, svc.UploadsDir)
	assetsHandler := assets.New(svc.Catalog, svc.Uploader, svc.URLs)

	r.Use(middlewares.Logger())
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.GZIP())
	r.Use(middlewares.CORS())

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	v1 := r.Group("/v1")
	v1.Use(middlewares.RateLimiter(cfg.Rate))
	v1.Use(middlewares.TokenAuth(cfg.Token))
	{
		// sync
		v1.POST("/sync/enable", syncHandler.Enable)
		v1.POST("/sync/disable", syncHandler.Disable)
		v1.POST("/sync/cancel", syncHandler.Cancel)
		v1.GET("/sync/progress", syncHandler.Progress)

		// settings
		v1.GET("/settings", settingsHandler.Get)
		v1.PUT("/settings", settingsHandler.Update)
		v1.POST("/settings/check", settingsHandler.Check)

		// assets
		v1.POST("/assets", assetsHandler.Create)
		v1.GET("/assets/:id", assetsHandler.Get)
		v1.GET("/assets/:id/url", assetsHandler.URL)
	}

	r.NoRoute(func(c *gin.Context) {
		c.PureJSON(http.StatusNotFound, api.APIError{Code: api.CodeNotFound, Message: "not found"})
	})

	r.NoMethod(func(c *gin.Context) {
		c.PureJSON(http.StatusMethodNotAllowed, api.APIError{Code: api.CodeBadRequest, Message: "method not allowed"})
	})

	return r.Handler()
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
