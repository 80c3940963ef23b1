package media_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/Oxyrus/virtualtourist/internal/media"
)

func TestEnrichBuildsSquareThumbnail(t *testing.T) {
	data := encodePNG(t, 640, 480)

	thumb, takenAt, err := media.NewProcessor(120).Enrich(data)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if takenAt != nil {
		t.Fatalf("expected no capture time for image without EXIF, got %v", takenAt)
	}

	img, format, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg thumbnail, got %s", format)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 120 {
		t.Fatalf("expected 120x120 thumbnail, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestNewProcessorDefaultsSize(t *testing.T) {
	thumb, err := media.NewProcessor(0).Thumbnail(encodePNG(t, 50, 20))
	if err != nil {
		t.Fatalf("Thumbnail returned error: %v", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail config: %v", err)
	}
	if cfg.Width != media.DefaultThumbnailSize || cfg.Height != media.DefaultThumbnailSize {
		t.Fatalf("expected default size %d, got %dx%d", media.DefaultThumbnailSize, cfg.Width, cfg.Height)
	}
}

func TestThumbnailRejectsInvalidInput(t *testing.T) {
	p := media.NewProcessor(64)

	if _, err := p.Thumbnail(nil); !errors.Is(err, media.ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if _, _, err := p.Enrich([]byte("not an image")); err == nil {
		t.Fatalf("expected decode error for garbage input")
	}
}

func TestTakenAtWithoutExif(t *testing.T) {
	if got := media.TakenAt(encodePNG(t, 4, 4)); got != nil {
		t.Fatalf("expected nil capture time, got %v", got)
	}
	if got := media.TakenAt(nil); got != nil {
		t.Fatalf("expected nil capture time for empty input, got %v", got)
	}
}

func TestContentType(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, solid(8, 8), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	cases := []struct {
		name string
		data []byte
		want string
	}{
		{name: "png", data: encodePNG(t, 8, 8), want: "image/png"},
		{name: "jpeg", data: jpg.Bytes(), want: "image/jpeg"},
		{name: "garbage", data: []byte("plain text"), want: "application/octet-stream"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := media.ContentType(tc.data); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}
