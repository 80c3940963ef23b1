package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Oxyrus/virtualtourist/internal/http/render"
	"github.com/Oxyrus/virtualtourist/internal/storage"
	"github.com/Oxyrus/virtualtourist/web/pages"
)

type PageHandler struct {
	logger    *slog.Logger
	pins      storage.Pins
	albums    AlbumService
	locations LocationStore
}

func NewPageHandler(logger *slog.Logger, pins storage.Pins, albums AlbumService, locations LocationStore) *PageHandler {
	return &PageHandler{
		logger:    logger,
		pins:      pins,
		albums:    albums,
		locations: locations,
	}
}

func (h *PageHandler) Map(c *gin.Context) {
	pins, err := h.pins.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list pins", "error", err)
		c.String(http.StatusInternalServerError, "failed to load pins")
		return
	}

	data := pages.MapData{Pins: make([]pages.PinItem, 0, len(pins))}
	for _, pin := range pins {
		meta := ""
		if ts := formatTimestamp(pin.CreatedAt); ts != "" {
			meta = fmt.Sprintf("Dropped %s", ts)
		}
		data.Pins = append(data.Pins, pages.PinItem{
			ID:        pin.ID,
			Latitude:  pin.Latitude,
			Longitude: pin.Longitude,
			Page:      pin.CurrentPage,
			Href:      fmt.Sprintf("/pins/%d", pin.ID),
			Meta:      meta,
		})
	}

	if loc, ok, err := h.locations.LastOpenedLocation(); err != nil {
		h.logger.Warn("failed to read last opened location", "error", err)
	} else if ok {
		data.Center = &pages.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude}
	}

	render.HTML(c, http.StatusOK, pages.TravelMap(data))
}

func (h *PageHandler) Album(c *gin.Context) {
	id, err := parsePageID(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "pin not found")
		return
	}

	pin, err := h.pins.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.String(http.StatusNotFound, "pin not found")
			return
		}
		h.logger.Error("failed to load pin", "pinID", id, "error", err)
		c.String(http.StatusInternalServerError, "failed to load pin")
		return
	}

	data := pages.AlbumPageData{
		PinID:     pin.ID,
		Latitude:  pin.Latitude,
		Longitude: pin.Longitude,
		Page:      pin.CurrentPage,
	}

	if current, open := h.albums.Current(); open && current.ID == pin.ID {
		snap := toSnapshotResponse(h.albums.State().Snapshot())
		if snap.PinID == pin.ID {
			for _, e := range snap.Entries {
				data.Tiles = append(data.Tiles, pages.PhotoTile{
					Index:        e.Index,
					Status:       e.Status.String(),
					ThumbnailURL: e.ThumbnailURL,
					Error:        e.Error,
				})
			}
		}
	}

	render.HTML(c, http.StatusOK, pages.PhotoAlbum(data))
}

func parsePageID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
