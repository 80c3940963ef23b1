package album

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Oxyrus/virtualtourist/internal/storage"
)

// PerPage is the number of photos requested for each album page.
const PerPage = 50

// Locator references a remotely hosted photo returned by a search. It is
// never persisted.
type Locator struct {
	ID     string
	Server string
	Secret string
	Farm   int
	Title  string
}

// PhotoSource searches and downloads remote photos. Implementations should
// tag failures with ErrNetwork or ErrDecode.
type PhotoSource interface {
	SearchPhotos(ctx context.Context, lat, lon float64, page int) ([]Locator, error)
	FetchImage(ctx context.Context, loc Locator) ([]byte, error)
}

// Enricher derives presentation data from a downloaded image.
type Enricher interface {
	Enrich(image []byte) (thumbnail []byte, takenAt *time.Time, err error)
}

type Options struct {
	// Concurrency caps the number of image downloads in flight per batch.
	Concurrency int
	// Enricher is optional.
	Enricher Enricher
}

const defaultConcurrency = 8

// Controller populates the album of one selected pin at a time. Store and
// state mutations are serialized by mu; downloads run outside of it.
type Controller struct {
	logger *slog.Logger
	source PhotoSource
	pins   storage.Pins
	photos storage.Photos
	state  *State
	opts   Options

	mu     sync.Mutex
	pin    storage.Pin
	open   bool
	closed bool
	epoch  uint64
	cancel context.CancelFunc
	batch  *batch

	inflight sync.WaitGroup
}

type batch struct {
	epoch uint64
	done  chan struct{}

	mu   sync.Mutex
	errs []error
}

func (b *batch) fail(err error) {
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

func (b *batch) err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs...)
}

func NewController(logger *slog.Logger, source PhotoSource, pins storage.Pins, photos storage.Photos, opts Options) *Controller {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Controller{
		logger: logger,
		source: source,
		pins:   pins,
		photos: photos,
		state:  NewState(),
		opts:   opts,
	}
}

// State returns the observable album of the open pin.
func (c *Controller) State() *State {
	return c.state
}

// Current returns the pin whose album is open.
func (c *Controller) Current() (storage.Pin, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pin, c.open
}

// OpenAlbum selects the pin and shows its cached photos. When nothing is
// cached the pin's current page is fetched from the photo source.
func (c *Controller) OpenAlbum(ctx context.Context, pinID int64) error {
	pin, err := c.loadPin(ctx, pinID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	epoch := c.beginLocked(pin)

	photos, err := c.photos.ListByPin(ctx, pin.ID)
	if err != nil {
		c.state.ReplaceAll(pin.ID, nil)
		c.mu.Unlock()
		return storeErr("list photos", err)
	}

	if len(photos) > 0 {
		c.state.ReplaceAll(pin.ID, loadedEntries(photos))
		c.mu.Unlock()
		c.logger.Debug("album served from cache", "pinID", pin.ID, "photos", len(photos))
		return nil
	}

	c.state.ReplaceAll(pin.ID, nil)
	c.mu.Unlock()

	return c.refresh(ctx, pin, pin.CurrentPage, epoch)
}

// RefreshFromRemote fetches the given page for the pin without touching the
// photos already stored for it.
func (c *Controller) RefreshFromRemote(ctx context.Context, pinID int64, page int) error {
	if page < 1 {
		return fmt.Errorf("album: page must be at least 1, got %d", page)
	}

	pin, err := c.loadPin(ctx, pinID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	epoch := c.beginLocked(pin)
	c.state.ReplaceAll(pin.ID, nil)
	c.mu.Unlock()

	return c.refresh(ctx, pin, page, epoch)
}

// RequestNewCollection moves the pin to its next page, drops the photos of
// the previous page and fetches the new one.
func (c *Controller) RequestNewCollection(ctx context.Context, pinID int64) (storage.Pin, error) {
	pin, err := c.loadPin(ctx, pinID)
	if err != nil {
		return storage.Pin{}, err
	}

	c.mu.Lock()
	pin, err = c.pins.AdvancePage(ctx, pin.ID)
	if err != nil {
		c.mu.Unlock()
		return storage.Pin{}, storeErr("advance page", err)
	}

	epoch := c.beginLocked(pin)

	deleted, err := c.photos.DeleteByPin(ctx, pin.ID)
	if err != nil {
		c.state.ReplaceAll(pin.ID, nil)
		c.mu.Unlock()
		return pin, storeErr("delete photos", err)
	}
	c.state.ReplaceAll(pin.ID, nil)
	c.mu.Unlock()

	c.logger.Info("new collection requested", "pinID", pin.ID, "page", pin.CurrentPage, "deleted", deleted)

	return pin, c.refresh(ctx, pin, pin.CurrentPage, epoch)
}

// RemovePhoto deletes the entry at index from the open album and, when it
// was loaded, its stored photo.
func (c *Controller) RemovePhoto(ctx context.Context, pinID int64, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open || c.pin.ID != pinID {
		return ErrNotOpen
	}

	entry, err := c.state.Entry(index)
	if err != nil {
		return err
	}

	if entry.Status == StatusLoaded && entry.PhotoID != 0 {
		if err := c.photos.Delete(ctx, entry.PhotoID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return storeErr("delete photo", err)
		}
	}

	_, err = c.state.RemoveAt(index)
	return err
}

// Wait blocks until the downloads of the active batch are done and returns
// the failures collected along the way.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	b := c.batch
	c.mu.Unlock()

	if b == nil {
		return nil
	}

	select {
	case <-b.done:
		return b.err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight downloads and waits for them to wind down. Searches
// still running when Close is called never start a batch.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.epoch++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.inflight.Wait()
}

func (c *Controller) loadPin(ctx context.Context, pinID int64) (storage.Pin, error) {
	pin, err := c.pins.GetByID(ctx, pinID)
	if err != nil {
		return storage.Pin{}, storeErr("load pin", err)
	}
	if !validCoordinates(pin.Latitude, pin.Longitude) {
		return storage.Pin{}, ErrInvalidPin
	}
	return pin, nil
}

// beginLocked starts a new session for pin. Completions of earlier batches
// carry an older epoch and are dropped from here on.
func (c *Controller) beginLocked(pin storage.Pin) uint64 {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.epoch++
	c.pin = pin
	c.open = true
	c.batch = nil
	return c.epoch
}

func (c *Controller) refresh(ctx context.Context, pin storage.Pin, page int, epoch uint64) error {
	locators, err := c.source.SearchPhotos(ctx, pin.Latitude, pin.Longitude, page)
	if err != nil {
		c.logger.Warn("photo search failed", "pinID", pin.ID, "page", page, "error", err)
		return networkErr(err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.epoch != epoch {
		c.mu.Unlock()
		c.logger.Debug("discarding stale search result", "pinID", pin.ID, "page", page)
		return ErrSuperseded
	}

	entries := make([]Entry, len(locators))
	for i, loc := range locators {
		entries[i] = Entry{Key: entryKey(i, loc), Status: StatusPending}
	}
	c.state.ReplaceAll(pin.ID, entries)

	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b := &batch{epoch: epoch, done: make(chan struct{})}
	c.cancel = cancel
	c.batch = b
	c.inflight.Add(1)
	c.mu.Unlock()

	c.logger.Info("downloading album page", "pinID", pin.ID, "page", page, "photos", len(locators))

	go c.download(bctx, cancel, pin.ID, b, locators)
	return nil
}

func (c *Controller) download(ctx context.Context, cancel context.CancelFunc, pinID int64, b *batch, locators []Locator) {
	defer c.inflight.Done()
	defer close(b.done)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)

	for i, loc := range locators {
		g.Go(func() error {
			data, err := c.source.FetchImage(ctx, loc)
			c.complete(ctx, pinID, b, i, loc, data, err)
			return nil
		})
	}

	_ = g.Wait()
}

func (c *Controller) complete(ctx context.Context, pinID int64, b *batch, index int, loc Locator, data []byte, fetchErr error) {
	key := entryKey(index, loc)

	var (
		thumbnail []byte
		takenAt   *time.Time
	)
	if fetchErr == nil && c.opts.Enricher != nil {
		var err error
		thumbnail, takenAt, err = c.opts.Enricher.Enrich(data)
		if err != nil {
			c.logger.Debug("image enrichment skipped", "pinID", pinID, "photo", loc.ID, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != b.epoch {
		c.logger.Debug("discarding stale download", "pinID", pinID, "photo", loc.ID)
		return
	}

	pos := c.state.IndexOf(key)
	if pos < 0 {
		// Removed by the user while downloading.
		return
	}

	if fetchErr != nil {
		err := fmt.Errorf("fetch photo %s: %w", loc.ID, networkErr(fetchErr))
		b.fail(err)
		_ = c.state.SetEntry(pos, Entry{Key: key, Status: StatusFailed, Err: err.Error()})
		c.logger.Warn("photo download failed", "pinID", pinID, "photo", loc.ID, "error", fetchErr)
		return
	}

	photo, err := c.photos.Create(ctx, storage.PhotoCreate{
		PinID:     pinID,
		Position:  index,
		SourceID:  loc.ID,
		Image:     data,
		Thumbnail: thumbnail,
		TakenAt:   takenAt,
	})
	if err != nil {
		err = storeErr("insert photo", err)
		b.fail(err)
		_ = c.state.SetEntry(pos, Entry{Key: key, Status: StatusFailed, Err: err.Error()})
		c.logger.Error("failed to store photo", "pinID", pinID, "photo", loc.ID, "error", err)
		return
	}

	_ = c.state.SetEntry(pos, Entry{
		Key:       key,
		PhotoID:   photo.ID,
		Status:    StatusLoaded,
		Image:     photo.Image,
		Thumbnail: photo.Thumbnail,
	})
}

func loadedEntries(photos []storage.Photo) []Entry {
	entries := make([]Entry, len(photos))
	for i, p := range photos {
		entries[i] = Entry{
			Key:       fmt.Sprintf("photo/%d", p.ID),
			PhotoID:   p.ID,
			Status:    StatusLoaded,
			Image:     p.Image,
			Thumbnail: p.Thumbnail,
		}
	}
	return entries
}

func entryKey(index int, loc Locator) string {
	return fmt.Sprintf("%d/%s", index, loc.ID)
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
