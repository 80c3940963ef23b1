package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Oxyrus/virtualtourist/internal/storage"
)

type PinHandler struct {
	logger *slog.Logger
	pins   storage.Pins
}

func NewPinHandler(logger *slog.Logger, pins storage.Pins) *PinHandler {
	return &PinHandler{
		logger: logger,
		pins:   pins,
	}
}

type createPinRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (h *PinHandler) List(c *gin.Context) {
	pins, err := h.pins.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list pins", "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to load pins")
		return
	}

	out := make([]pinResponse, 0, len(pins))
	for _, pin := range pins {
		out = append(out, toPinResponse(pin))
	}
	c.JSON(http.StatusOK, out)
}

func (h *PinHandler) Create(c *gin.Context) {
	var req createPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	lat, lon := *req.Latitude, *req.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		abortWithError(c, http.StatusUnprocessableEntity, "coordinates out of range")
		return
	}

	pin, err := h.pins.Create(c.Request.Context(), storage.PinCreate{Latitude: lat, Longitude: lon})
	if err != nil {
		h.logger.Error("failed to create pin", "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to create pin")
		return
	}

	h.logger.Info("pin dropped", "pinID", pin.ID, "lat", pin.Latitude, "lon", pin.Longitude)
	c.JSON(http.StatusCreated, toPinResponse(pin))
}

func (h *PinHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	pin, err := h.pins.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "pin not found")
			return
		}
		h.logger.Error("failed to load pin", "pinID", id, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to load pin")
		return
	}

	c.JSON(http.StatusOK, toPinResponse(pin))
}

func (h *PinHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.pins.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "pin not found")
			return
		}
		h.logger.Error("failed to delete pin", "pinID", id, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to delete pin")
		return
	}

	h.logger.Info("pin removed", "pinID", id)
	c.Status(http.StatusNoContent)
}
