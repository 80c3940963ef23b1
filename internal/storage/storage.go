package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates that the requested entity does not exist in the
// underlying storage.
var ErrNotFound = errors.New("storage: not found")

// Store exposes the persistence primitives required by the application. It is
// expected to be safe for concurrent use.
type Store interface {
	Pins() Pins
	Photos() Photos
	Ping(ctx context.Context) error
	Close() error
}

// Pin is a saved point on the map. Its photo album is paginated by
// CurrentPage, which starts at 1 and only ever grows.
type Pin struct {
	ID          int64
	Latitude    float64
	Longitude   float64
	CurrentPage int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PinCreate captures the coordinates of a new pin.
type PinCreate struct {
	Latitude  float64
	Longitude float64
}

// Pins defines the operations supported for managing pins.
type Pins interface {
	Create(ctx context.Context, input PinCreate) (Pin, error)
	GetByID(ctx context.Context, id int64) (Pin, error)
	// List returns every pin, newest first.
	List(ctx context.Context) ([]Pin, error)
	// AdvancePage increments the pin's current page by one and returns the
	// updated pin.
	AdvancePage(ctx context.Context, id int64) (Pin, error)
	// Delete removes the pin together with all of its photos.
	Delete(ctx context.Context, id int64) error
}

// Photo is a downloaded image cached for a pin.
type Photo struct {
	ID        int64
	PinID     int64
	Position  int
	SourceID  string
	Image     []byte
	Thumbnail []byte
	TakenAt   *time.Time
	CreatedAt time.Time
}

// PhotoCreate contains the data required to insert a new photo.
type PhotoCreate struct {
	PinID     int64
	Position  int
	SourceID  string
	Image     []byte
	Thumbnail []byte
	TakenAt   *time.Time
}

// Photos defines the operations supported for managing photos.
type Photos interface {
	Create(ctx context.Context, input PhotoCreate) (Photo, error)
	GetByID(ctx context.Context, id int64) (Photo, error)
	// ListByPin returns the pin's photos ordered by position, then by
	// creation time.
	ListByPin(ctx context.Context, pinID int64) ([]Photo, error)
	Delete(ctx context.Context, id int64) error
	// DeleteByPin removes every photo owned by the pin and reports how many
	// rows were deleted.
	DeleteByPin(ctx context.Context, pinID int64) (int64, error)
}
