package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// DefaultThumbnailSize is the edge length, in pixels, of generated thumbnails.
const DefaultThumbnailSize = 300

var ErrEmptyImage = errors.New("media: empty image")

// Processor builds square JPEG thumbnails and reads the capture time embedded
// in downloaded photos.
type Processor struct {
	size    int
	quality int
}

func NewProcessor(size int) *Processor {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	return &Processor{size: size, quality: 85}
}

// Enrich returns a thumbnail of data and, when present, the EXIF capture
// time. A missing or unreadable EXIF block is not an error.
func (p *Processor) Enrich(data []byte) ([]byte, *time.Time, error) {
	thumb, err := p.Thumbnail(data)
	if err != nil {
		return nil, nil, err
	}
	return thumb, TakenAt(data), nil
}

// Thumbnail decodes data honouring its EXIF orientation and crops it to a
// centred square of the configured size.
func (p *Processor) Thumbnail(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("media: decode image: %w", err)
	}

	thumb := imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("media: encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// TakenAt returns the EXIF DateTimeOriginal (or DateTime) of data, or nil.
func TakenAt(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	t, err := x.DateTime()
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}

// ContentType sniffs the MIME type of an encoded image from its header.
func ContentType(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "application/octet-stream"
	}
	switch strings.ToLower(format) {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
