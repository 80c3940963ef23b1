package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Oxyrus/virtualtourist/internal/media"
	"github.com/Oxyrus/virtualtourist/internal/storage"
)

type PhotoHandler struct {
	logger *slog.Logger
	photos storage.Photos
}

func NewPhotoHandler(logger *slog.Logger, photos storage.Photos) *PhotoHandler {
	return &PhotoHandler{
		logger: logger,
		photos: photos,
	}
}

func (h *PhotoHandler) Image(c *gin.Context) {
	photo, ok := h.load(c)
	if !ok {
		return
	}
	h.write(c, photo.Image)
}

// Thumbnail serves the stored thumbnail, or the full image when none was
// generated.
func (h *PhotoHandler) Thumbnail(c *gin.Context) {
	photo, ok := h.load(c)
	if !ok {
		return
	}
	if len(photo.Thumbnail) == 0 {
		h.write(c, photo.Image)
		return
	}
	h.write(c, photo.Thumbnail)
}

func (h *PhotoHandler) load(c *gin.Context) (storage.Photo, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return storage.Photo{}, false
	}

	photo, err := h.photos.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "photo not found")
			return storage.Photo{}, false
		}
		h.logger.Error("failed to load photo", "photoID", id, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to load photo")
		return storage.Photo{}, false
	}
	return photo, true
}

func (h *PhotoHandler) write(c *gin.Context, data []byte) {
	// Stored bytes never change for a given photo id.
	c.Header("Cache-Control", "private, max-age=86400, immutable")
	c.Data(http.StatusOK, media.ContentType(data), data)
}
