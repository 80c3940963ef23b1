package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Oxyrus/virtualtourist/internal/album"
	"github.com/Oxyrus/virtualtourist/internal/storage"
)

type pinResponse struct {
	ID          int64     `json:"id"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CurrentPage int       `json:"currentPage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type entryResponse struct {
	Index        int          `json:"index"`
	Key          string       `json:"key"`
	PhotoID      int64        `json:"photoId,omitempty"`
	Status       album.Status `json:"status"`
	Error        string       `json:"error,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	ThumbnailURL string       `json:"thumbnailUrl,omitempty"`
}

type snapshotResponse struct {
	PinID   int64           `json:"pinId"`
	Version uint64          `json:"version"`
	Entries []entryResponse `json:"entries"`
}

func toPinResponse(pin storage.Pin) pinResponse {
	return pinResponse{
		ID:          pin.ID,
		Latitude:    pin.Latitude,
		Longitude:   pin.Longitude,
		CurrentPage: pin.CurrentPage,
		CreatedAt:   pin.CreatedAt,
		UpdatedAt:   pin.UpdatedAt,
	}
}

func toSnapshotResponse(snap album.Snapshot) snapshotResponse {
	entries := make([]entryResponse, len(snap.Entries))
	for i, e := range snap.Entries {
		entries[i] = entryResponse{
			Index:   i,
			Key:     e.Key,
			PhotoID: e.PhotoID,
			Status:  e.Status,
			Error:   e.Err,
		}
		if e.Status == album.StatusLoaded && e.PhotoID != 0 {
			entries[i].ImageURL = fmt.Sprintf("/api/photos/%d/image", e.PhotoID)
			entries[i].ThumbnailURL = fmt.Sprintf("/api/photos/%d/thumbnail", e.PhotoID)
		}
	}
	return snapshotResponse{PinID: snap.PinID, Version: snap.Version, Entries: entries}
}

// statusFor maps domain errors to HTTP status codes. Not found is checked
// first because store errors may wrap it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, album.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, album.ErrInvalidPin):
		return http.StatusUnprocessableEntity
	case errors.Is(err, album.ErrSuperseded), errors.Is(err, album.ErrNotOpen):
		return http.StatusConflict
	case errors.Is(err, album.ErrNetwork), errors.Is(err, album.ErrDecode):
		return http.StatusBadGateway
	case errors.Is(err, album.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 15:04 MST")
}
