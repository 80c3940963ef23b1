package album_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Oxyrus/virtualtourist/internal/album"
	"github.com/Oxyrus/virtualtourist/internal/storage"
	"github.com/Oxyrus/virtualtourist/internal/storage/sqlite"
)

func TestOpenAlbumServesCachedPhotosWithoutNetwork(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	pin := mustCreatePin(t, store, 51.5, -0.12)
	for i := 0; i < 3; i++ {
		mustCreatePhoto(t, store, pin.ID, i, []byte(fmt.Sprintf("cached-%d", i)))
	}

	source := newFakeSource()
	ctrl := newController(t, store, source)

	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}

	if n := source.searchCount(); n != 0 {
		t.Fatalf("expected no search calls, got %d", n)
	}
	if n := source.fetchCount(); n != 0 {
		t.Fatalf("expected no fetch calls, got %d", n)
	}

	snap := ctrl.State().Snapshot()
	if snap.PinID != pin.ID {
		t.Fatalf("expected state for pin %d, got %d", pin.ID, snap.PinID)
	}
	assertImages(t, snap, "cached-0", "cached-1", "cached-2")

	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestOpenAlbumFetchesCurrentPageWhenEmpty(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	pin := mustCreatePin(t, store, 51.5, -0.12)

	source := newFakeSource()
	source.pages[1] = locators("1", "2", "3")
	source.images = map[string][]byte{"1": []byte("B1"), "2": []byte("B2"), "3": []byte("B3")}
	source.gate("1", "2", "3")

	ctrl := newController(t, store, source)

	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}

	calls := source.searchCalls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one search, got %d", len(calls))
	}
	if calls[0].page != 1 || calls[0].lat != 51.5 || calls[0].lon != -0.12 {
		t.Fatalf("unexpected search call %+v", calls[0])
	}

	snap := ctrl.State().Snapshot()
	if len(snap.Entries) != 3 {
		t.Fatalf("expected 3 pending entries, got %d", len(snap.Entries))
	}
	for i, e := range snap.Entries {
		if e.Status != album.StatusPending {
			t.Fatalf("expected entry %d pending, got %s", i, e.Status)
		}
	}

	// Complete out of order: 2, 1, 3.
	for _, id := range []string{"2", "1", "3"} {
		source.release(id)
		waitForLoaded(t, ctrl, id)
	}

	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	assertImages(t, ctrl.State().Snapshot(), "B1", "B2", "B3")

	stored, err := store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored photos, got %d", len(stored))
	}
	for i, want := range []string{"B1", "B2", "B3"} {
		if string(stored[i].Image) != want {
			t.Fatalf("expected stored photo %d to be %s, got %s", i, want, stored[i].Image)
		}
		if stored[i].PinID != pin.ID {
			t.Fatalf("expected photo owned by pin %d, got %d", pin.ID, stored[i].PinID)
		}
	}

	// Reopening now hits the cache in the same order.
	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}
	if n := source.searchCount(); n != 1 {
		t.Fatalf("expected cached reopen to skip search, got %d searches", n)
	}
	assertImages(t, ctrl.State().Snapshot(), "B1", "B2", "B3")
}

func TestOpenAlbumSurfacesSearchFailures(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 10, 10)

	source := newFakeSource()
	source.searchErr = errors.New("connection refused")
	ctrl := newController(t, store, source)

	err := ctrl.OpenAlbum(ctx, pin.ID)
	if !errors.Is(err, album.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if n := ctrl.State().Len(); n != 0 {
		t.Fatalf("expected empty album after failed search, got %d entries", n)
	}

	source.searchErr = fmt.Errorf("%w: unexpected token", album.ErrDecode)
	err = ctrl.OpenAlbum(ctx, pin.ID)
	if !errors.Is(err, album.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if errors.Is(err, album.ErrNetwork) {
		t.Fatalf("decode failure must not be reported as network failure")
	}
}

func TestOpenAlbumRejectsUnknownAndInvalidPins(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ctrl := newController(t, store, newFakeSource())

	err := ctrl.OpenAlbum(ctx, 404)
	if !errors.Is(err, storage.ErrNotFound) || !errors.Is(err, album.ErrStore) {
		t.Fatalf("expected store not-found error, got %v", err)
	}

	invalid := mustCreatePin(t, store, 123, 0)
	if err := ctrl.OpenAlbum(ctx, invalid.ID); !errors.Is(err, album.ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin, got %v", err)
	}
}

func TestPartialDownloadFailureMarksEntriesFailed(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 1, 2)

	source := newFakeSource()
	source.pages[1] = locators("ok-1", "broken", "ok-2")
	source.images = map[string][]byte{"ok-1": []byte("A"), "ok-2": []byte("C")}
	source.fetchErrs = map[string]error{"broken": errors.New("404 not found")}

	ctrl := newController(t, store, source)
	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}

	err := ctrl.Wait(ctx)
	if !errors.Is(err, album.ErrNetwork) {
		t.Fatalf("expected batch error wrapping ErrNetwork, got %v", err)
	}

	snap := ctrl.State().Snapshot()
	want := []album.Status{album.StatusLoaded, album.StatusFailed, album.StatusLoaded}
	for i, status := range want {
		if snap.Entries[i].Status != status {
			t.Fatalf("entry %d: expected %s, got %s", i, status, snap.Entries[i].Status)
		}
	}
	if snap.Entries[1].Err == "" {
		t.Fatalf("expected failed entry to carry an error message")
	}

	stored, err := store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored photos, got %d", len(stored))
	}
}

func TestRequestNewCollectionReplacesPhotos(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 51.5, -0.12)
	for i := 0; i < 5; i++ {
		mustCreatePhoto(t, store, pin.ID, i, []byte(fmt.Sprintf("old-%d", i)))
	}

	source := newFakeSource()
	source.pages[2] = locators("n1", "n2", "n3")
	source.images = map[string][]byte{"n1": []byte("N1"), "n2": []byte("N2"), "n3": []byte("N3")}
	source.gate("n1", "n2", "n3")

	ctrl := newController(t, store, source)
	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}

	updated, err := ctrl.RequestNewCollection(ctx, pin.ID)
	if err != nil {
		t.Fatalf("RequestNewCollection returned error: %v", err)
	}
	if updated.CurrentPage != 2 {
		t.Fatalf("expected current page 2, got %d", updated.CurrentPage)
	}

	persisted, err := store.Pins().GetByID(ctx, pin.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if persisted.CurrentPage != 2 {
		t.Fatalf("expected persisted page 2, got %d", persisted.CurrentPage)
	}

	stored, err := store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected old photos deleted before downloads finish, got %d", len(stored))
	}

	calls := source.searchCalls()
	if len(calls) != 1 || calls[0].page != 2 {
		t.Fatalf("expected one search for page 2, got %+v", calls)
	}

	source.release("n1", "n2", "n3")
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	stored, err = store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 photos from the new page, got %d", len(stored))
	}
	for _, p := range stored {
		if bytes.HasPrefix(p.Image, []byte("old-")) {
			t.Fatalf("old photo %d survived new collection", p.ID)
		}
	}
	assertImages(t, ctrl.State().Snapshot(), "N1", "N2", "N3")
}

func TestRequestNewCollectionAdvancesOnePagePerCall(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 5, 5)

	source := newFakeSource()
	ctrl := newController(t, store, source)

	for want := 2; want <= 4; want++ {
		updated, err := ctrl.RequestNewCollection(ctx, pin.ID)
		if err != nil {
			t.Fatalf("RequestNewCollection returned error: %v", err)
		}
		if updated.CurrentPage != want {
			t.Fatalf("expected page %d, got %d", want, updated.CurrentPage)
		}
	}

	calls := source.searchCalls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 searches, got %d", len(calls))
	}
	for i, call := range calls {
		if call.page != i+2 {
			t.Fatalf("search %d: expected page %d, got %d", i, i+2, call.page)
		}
	}
}

func TestSwitchingPinsDiscardsStaleDownloads(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pinA := mustCreatePin(t, store, 10, 10)
	pinB := mustCreatePin(t, store, 20, 20)

	source := newFakeSource()
	source.ignoreCancel = true
	source.byLat = map[float64][]album.Locator{
		10: locators("a1", "a2"),
		20: locators("b1"),
	}
	source.images = map[string][]byte{"a1": []byte("A1"), "a2": []byte("A2"), "b1": []byte("B1")}
	source.gate("a1", "a2")

	ctrl := newController(t, store, source)

	if err := ctrl.OpenAlbum(ctx, pinA.ID); err != nil {
		t.Fatalf("OpenAlbum A returned error: %v", err)
	}
	if err := ctrl.OpenAlbum(ctx, pinB.ID); err != nil {
		t.Fatalf("OpenAlbum B returned error: %v", err)
	}
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	// Let pin A's downloads finish after the switch.
	source.release("a1", "a2")
	ctrl.Close()

	snap := ctrl.State().Snapshot()
	if snap.PinID != pinB.ID {
		t.Fatalf("expected state for pin B, got pin %d", snap.PinID)
	}
	assertImages(t, snap, "B1")

	storedA, err := store.Photos().ListByPin(ctx, pinA.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(storedA) != 0 {
		t.Fatalf("expected stale downloads for pin A to be dropped, got %d photos", len(storedA))
	}

	current, ok := ctrl.Current()
	if !ok || current.ID != pinB.ID {
		t.Fatalf("expected pin B to be current, got %+v (open=%v)", current, ok)
	}
}

func TestNewCollectionDiscardsDownloadsOfPreviousPage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 35.68, 139.69)

	source := newFakeSource()
	source.ignoreCancel = true
	// o2 sits at index 1 on both pages, so its stale completion matches a
	// live entry key.
	source.pages[1] = locators("o1", "o2")
	source.pages[2] = locators("n1", "o2")
	source.images = map[string][]byte{"o1": []byte("O1"), "o2": []byte("O2"), "n1": []byte("N1")}
	source.gate("o1", "o2")

	ctrl := newController(t, store, source)

	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}
	if _, err := ctrl.RequestNewCollection(ctx, pin.ID); err != nil {
		t.Fatalf("RequestNewCollection returned error: %v", err)
	}

	source.release("o1", "o2")
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	// Drain the first page's downloads too.
	ctrl.Close()

	if got := source.fetchCount(); got != 4 {
		t.Fatalf("expected 4 fetches across both pages, got %d", got)
	}

	stored, err := store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored photos, got %d", len(stored))
	}
	if string(stored[0].Image) != "N1" || string(stored[1].Image) != "O2" {
		t.Fatalf("unexpected stored images %q, %q", stored[0].Image, stored[1].Image)
	}
	for _, p := range stored {
		if p.SourceID == "o1" {
			t.Fatalf("photo from the previous page was stored")
		}
	}

	assertImages(t, ctrl.State().Snapshot(), "N1", "O2")
}

func TestCloseStopsPendingSearchFromStartingDownloads(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 1, 1)

	source := newFakeSource()
	source.pages[1] = locators("p1", "p2")
	source.images = map[string][]byte{"p1": []byte("P1"), "p2": []byte("P2")}
	source.searchGate = make(chan struct{})

	ctrl := album.NewController(newTestLogger(), source, store.Pins(), store.Photos(), album.Options{Concurrency: 2})

	errs := make(chan error, 1)
	go func() {
		errs <- ctrl.OpenAlbum(ctx, pin.ID)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for source.searchCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for the search to start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctrl.Close()
	close(source.searchGate)

	select {
	case err := <-errs:
		if !errors.Is(err, album.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for OpenAlbum")
	}

	if got := source.fetchCount(); got != 0 {
		t.Fatalf("expected no downloads after Close, got %d", got)
	}
	if err := ctrl.OpenAlbum(ctx, pin.ID); !errors.Is(err, album.ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}

	stored, err := store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected nothing stored, got %d photos", len(stored))
	}
}

func TestRemovePhotoDeletesEntryAndRow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 3, 3)
	photos := []storage.Photo{
		mustCreatePhoto(t, store, pin.ID, 0, []byte("p0")),
		mustCreatePhoto(t, store, pin.ID, 1, []byte("p1")),
		mustCreatePhoto(t, store, pin.ID, 2, []byte("p2")),
	}

	ctrl := newController(t, store, newFakeSource())
	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}

	if err := ctrl.RemovePhoto(ctx, pin.ID, 1); err != nil {
		t.Fatalf("RemovePhoto returned error: %v", err)
	}

	assertImages(t, ctrl.State().Snapshot(), "p0", "p2")

	if _, err := store.Photos().GetByID(ctx, photos[1].ID); err != storage.ErrNotFound {
		t.Fatalf("expected removed photo to be deleted, got %v", err)
	}

	updated, err := store.Pins().GetByID(ctx, pin.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if updated.CurrentPage != 1 {
		t.Fatalf("removing a photo must not change the page, got %d", updated.CurrentPage)
	}

	if err := ctrl.RemovePhoto(ctx, pin.ID, 5); !errors.Is(err, album.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := ctrl.RemovePhoto(ctx, pin.ID+1, 0); !errors.Is(err, album.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestRemovePendingEntryDropsItsDownload(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 7, 7)

	source := newFakeSource()
	source.pages[1] = locators("x", "y", "z")
	source.images = map[string][]byte{"x": []byte("X"), "y": []byte("Y"), "z": []byte("Z")}
	source.gate("x", "y", "z")

	ctrl := newController(t, store, source)
	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}

	if err := ctrl.RemovePhoto(ctx, pin.ID, 0); err != nil {
		t.Fatalf("RemovePhoto returned error: %v", err)
	}

	source.release("x", "y", "z")
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	assertImages(t, ctrl.State().Snapshot(), "Y", "Z")

	stored, err := store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected removed pending photo not to be stored, got %d photos", len(stored))
	}
}

func TestRefreshFromRemoteFetchesRequestedPage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 9, 9)

	source := newFakeSource()
	source.pages[4] = locators("p")
	source.images = map[string][]byte{"p": []byte("P")}

	ctrl := newController(t, store, source)
	if err := ctrl.RefreshFromRemote(ctx, pin.ID, 4); err != nil {
		t.Fatalf("RefreshFromRemote returned error: %v", err)
	}
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	assertImages(t, ctrl.State().Snapshot(), "P")

	if err := ctrl.RefreshFromRemote(ctx, pin.ID, 0); err == nil {
		t.Fatalf("expected error for page 0")
	}
}

func TestEnricherOutputIsStored(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	pin := mustCreatePin(t, store, 4, 4)

	source := newFakeSource()
	source.pages[1] = locators("e")
	source.images = map[string][]byte{"e": []byte("E")}

	takenAt := time.Date(2023, 6, 24, 12, 0, 0, 0, time.UTC)
	ctrl := album.NewController(newTestLogger(), source, store.Pins(), store.Photos(), album.Options{
		Concurrency: 2,
		Enricher:    stubEnricher{thumb: []byte("thumb"), takenAt: &takenAt},
	})
	t.Cleanup(ctrl.Close)

	if err := ctrl.OpenAlbum(ctx, pin.ID); err != nil {
		t.Fatalf("OpenAlbum returned error: %v", err)
	}
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	stored, err := store.Photos().ListByPin(ctx, pin.ID)
	if err != nil {
		t.Fatalf("ListByPin returned error: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 photo, got %d", len(stored))
	}
	if string(stored[0].Thumbnail) != "thumb" {
		t.Fatalf("expected thumbnail to be stored, got %q", stored[0].Thumbnail)
	}
	if stored[0].TakenAt == nil || !stored[0].TakenAt.Equal(takenAt) {
		t.Fatalf("expected TakenAt %v, got %v", takenAt, stored[0].TakenAt)
	}
	if stored[0].SourceID != "e" {
		t.Fatalf("expected source id e, got %q", stored[0].SourceID)
	}
}

type searchCall struct {
	lat, lon float64
	page     int
}

type fakeSource struct {
	mu           sync.Mutex
	calls        []searchCall
	fetches      int
	pages        map[int][]album.Locator
	byLat        map[float64][]album.Locator
	searchErr    error
	images       map[string][]byte
	fetchErrs    map[string]error
	gates        map[string]chan struct{}
	ignoreCancel bool
	searchGate   chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages: make(map[int][]album.Locator),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeSource) SearchPhotos(_ context.Context, lat, lon float64, page int) ([]album.Locator, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{lat: lat, lon: lon, page: page})
	gate := f.searchGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.byLat != nil {
		return f.byLat[lat], nil
	}
	return f.pages[page], nil
}

func (f *fakeSource) FetchImage(ctx context.Context, loc album.Locator) ([]byte, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.gates[loc.ID]
	ignoreCancel := f.ignoreCancel
	f.mu.Unlock()

	if gate != nil {
		if ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErrs[loc.ID]; err != nil {
		return nil, err
	}
	return f.images[loc.ID], nil
}

func (f *fakeSource) gate(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.gates[id] = make(chan struct{})
	}
}

func (f *fakeSource) release(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		close(f.gates[id])
	}
}

func (f *fakeSource) searchCalls() []searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]searchCall(nil), f.calls...)
}

func (f *fakeSource) searchCount() int {
	return len(f.searchCalls())
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type stubEnricher struct {
	thumb   []byte
	takenAt *time.Time
}

func (s stubEnricher) Enrich([]byte) ([]byte, *time.Time, error) {
	return s.thumb, s.takenAt, nil
}

func locators(ids ...string) []album.Locator {
	out := make([]album.Locator, len(ids))
	for i, id := range ids {
		out[i] = album.Locator{ID: id, Server: "65535", Secret: "s" + id}
	}
	return out
}

func waitForLoaded(t *testing.T, ctrl *album.Controller, locatorID string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for i, e := range ctrl.State().Snapshot().Entries {
			if e.Key == fmt.Sprintf("%d/%s", i, locatorID) && e.Status == album.StatusLoaded {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to load", locatorID)
}

func assertImages(t *testing.T, snap album.Snapshot, want ...string) {
	t.Helper()

	if len(snap.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(snap.Entries))
	}
	for i, w := range want {
		e := snap.Entries[i]
		if e.Status != album.StatusLoaded {
			t.Fatalf("entry %d: expected loaded, got %s", i, e.Status)
		}
		if string(e.Image) != w {
			t.Fatalf("entry %d: expected image %q, got %q", i, w, e.Image)
		}
		if e.PhotoID == 0 {
			t.Fatalf("entry %d: expected photo id", i)
		}
	}
}

func newController(t *testing.T, store storage.Store, source album.PhotoSource) *album.Controller {
	t.Helper()
	ctrl := album.NewController(newTestLogger(), source, store.Pins(), store.Photos(), album.Options{Concurrency: 4})
	t.Cleanup(ctrl.Close)
	return ctrl
}

func newStore(t *testing.T) storage.Store {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "album.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})
	return store
}

func mustCreatePin(t *testing.T, store storage.Store, lat, lon float64) storage.Pin {
	t.Helper()
	pin, err := store.Pins().Create(context.Background(), storage.PinCreate{Latitude: lat, Longitude: lon})
	if err != nil {
		t.Fatalf("create pin: %v", err)
	}
	return pin
}

func mustCreatePhoto(t *testing.T, store storage.Store, pinID int64, position int, image []byte) storage.Photo {
	t.Helper()
	photo, err := store.Photos().Create(context.Background(), storage.PhotoCreate{
		PinID:    pinID,
		Position: position,
		Image:    image,
	})
	if err != nil {
		t.Fatalf("create photo: %v", err)
	}
	return photo
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
