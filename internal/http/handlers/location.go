package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	logger    *slog.Logger
	locations LocationStore
}

func NewLocationHandler(logger *slog.Logger, locations LocationStore) *LocationHandler {
	return &LocationHandler{
		logger:    logger,
		locations: locations,
	}
}

// Show returns the last opened location, or 404 when nothing was opened yet.
func (h *LocationHandler) Show(c *gin.Context) {
	loc, ok, err := h.locations.LastOpenedLocation()
	if err != nil {
		h.logger.Error("failed to read last opened location", "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to read location")
		return
	}
	if !ok {
		abortWithError(c, http.StatusNotFound, "no location saved")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
	})
}
