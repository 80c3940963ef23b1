package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Oxyrus/virtualtourist/internal/album"
	"github.com/Oxyrus/virtualtourist/internal/prefs"
	"github.com/Oxyrus/virtualtourist/internal/storage"
)

// AlbumService is the album controller as seen by the HTTP layer.
type AlbumService interface {
	OpenAlbum(ctx context.Context, pinID int64) error
	RefreshFromRemote(ctx context.Context, pinID int64, page int) error
	RequestNewCollection(ctx context.Context, pinID int64) (storage.Pin, error)
	RemovePhoto(ctx context.Context, pinID int64, index int) error
	Current() (storage.Pin, bool)
	State() *album.State
}

// LocationStore remembers where the user last looked.
type LocationStore interface {
	LastOpenedLocation() (prefs.Location, bool, error)
	SaveLastOpenedLocation(prefs.Location) error
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type AlbumHandler struct {
	logger    *slog.Logger
	albums    AlbumService
	locations LocationStore
}

func NewAlbumHandler(logger *slog.Logger, albums AlbumService, locations LocationStore) *AlbumHandler {
	return &AlbumHandler{
		logger:    logger,
		albums:    albums,
		locations: locations,
	}
}

func (h *AlbumHandler) Open(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.albums.OpenAlbum(c.Request.Context(), id); err != nil {
		h.fail(c, "failed to open album", id, err)
		return
	}

	pin, open := h.albums.Current()
	if open && pin.ID == id {
		h.rememberLocation(pin)
	}

	h.respondAlbum(c, id)
}

func (h *AlbumHandler) Refresh(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	page, err := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if err != nil || page < 1 {
		abortWithError(c, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	if err := h.albums.RefreshFromRemote(c.Request.Context(), id, page); err != nil {
		h.fail(c, "failed to refresh album", id, err)
		return
	}

	h.respondAlbum(c, id)
}

func (h *AlbumHandler) NewCollection(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if _, err := h.albums.RequestNewCollection(c.Request.Context(), id); err != nil {
		h.fail(c, "failed to request new collection", id, err)
		return
	}

	h.respondAlbum(c, id)
}

func (h *AlbumHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.respondAlbum(c, id)
}

func (h *AlbumHandler) RemovePhoto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	index, err := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid index")
		return
	}

	if err := h.albums.RemovePhoto(c.Request.Context(), id, index); err != nil {
		h.fail(c, "failed to remove photo", id, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Stream pushes a snapshot of the pin's album over a WebSocket after every
// change. Snapshots of other pins are skipped.
func (h *AlbumHandler) Stream(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "pinID", id, "error", err)
		return
	}

	updates, cancel := h.albums.State().Subscribe()
	defer cancel()

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, id, updates, done)
}

// readPump drains control frames so pongs are seen, and signals done once
// the peer goes away.
func (h *AlbumHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket closed", "error", err)
			}
			return
		}
	}
}

func (h *AlbumHandler) writePump(conn *websocket.Conn, pinID int64, updates <-chan album.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case snap, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if snap.PinID != pinID {
				continue
			}
			if err := conn.WriteJSON(toSnapshotResponse(snap)); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func (h *AlbumHandler) respondAlbum(c *gin.Context, pinID int64) {
	pin, open := h.albums.Current()
	if !open || pin.ID != pinID {
		abortWithError(c, http.StatusConflict, album.ErrNotOpen.Error())
		return
	}

	snap := h.albums.State().Snapshot()
	if snap.PinID != pinID {
		abortWithError(c, http.StatusConflict, album.ErrSuperseded.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pin":   toPinResponse(pin),
		"album": toSnapshotResponse(snap),
	})
}

func (h *AlbumHandler) rememberLocation(pin storage.Pin) {
	if h.locations == nil {
		return
	}
	loc := prefs.Location{Latitude: pin.Latitude, Longitude: pin.Longitude}
	if err := h.locations.SaveLastOpenedLocation(loc); err != nil {
		h.logger.Warn("failed to save last opened location", "pinID", pin.ID, "error", err)
	}
}

func (h *AlbumHandler) fail(c *gin.Context, message string, pinID int64, err error) {
	status := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(message, "pinID", pinID, "error", err)
	case errors.Is(err, album.ErrSuperseded):
		h.logger.Debug(message, "pinID", pinID, "error", err)
	default:
		h.logger.Warn(message, "pinID", pinID, "error", err)
	}
	abortWithError(c, status, err.Error())
}
