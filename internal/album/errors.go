package album

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork reports a failed photo search or image download.
	ErrNetwork = errors.New("album: network failure")
	// ErrDecode reports a malformed photo search response.
	ErrDecode = errors.New("album: decode failure")
	// ErrStore reports a failed read or write against the local store.
	ErrStore = errors.New("album: store failure")

	ErrInvalidPin      = errors.New("album: pin has invalid coordinates")
	ErrNotOpen         = errors.New("album: pin is not the open album")
	ErrSuperseded      = errors.New("album: request superseded by a newer one")
	ErrIndexOutOfRange = errors.New("album: index out of range")
	ErrClosed          = errors.New("album: controller closed")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// networkErr classifies err as a network failure unless the source already
// tagged it.
func networkErr(err error) error {
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
