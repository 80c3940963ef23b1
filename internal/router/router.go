package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Oxyrus/virtualtourist/internal/http/handlers"
	"github.com/Oxyrus/virtualtourist/internal/http/middleware"
	"github.com/Oxyrus/virtualtourist/internal/storage"
)

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Store     storage.Store
	Albums    handlers.AlbumService
	Locations handlers.LocationStore
}

func New(logger *slog.Logger, deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))

	pinHandler := handlers.NewPinHandler(logger, deps.Store.Pins())
	albumHandler := handlers.NewAlbumHandler(logger, deps.Albums, deps.Locations)
	photoHandler := handlers.NewPhotoHandler(logger, deps.Store.Photos())
	locationHandler := handlers.NewLocationHandler(logger, deps.Locations)
	pageHandler := handlers.NewPageHandler(logger, deps.Store.Pins(), deps.Albums, deps.Locations)

	r.GET("/", pageHandler.Map)
	r.GET("/pins/:id", pageHandler.Album)

	api := r.Group("/api")
	api.GET("/pins", pinHandler.List)
	api.POST("/pins", pinHandler.Create)
	api.GET("/pins/:id", pinHandler.Get)
	api.DELETE("/pins/:id", pinHandler.Delete)

	pinAlbum := api.Group("/pins/:id/album")
	pinAlbum.GET("", albumHandler.Show)
	pinAlbum.POST("/open", albumHandler.Open)
	pinAlbum.POST("/refresh", albumHandler.Refresh)
	pinAlbum.POST("/new-collection", albumHandler.NewCollection)
	pinAlbum.GET("/stream", albumHandler.Stream)
	pinAlbum.DELETE("/:index", albumHandler.RemovePhoto)

	api.GET("/photos/:id/image", photoHandler.Image)
	api.GET("/photos/:id/thumbnail", photoHandler.Thumbnail)
	api.GET("/location", locationHandler.Show)

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			logger.Error("healthcheck failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})

	return r
}
