package pages

//go:generate go tool templ generate

import "fmt"

type PinItem struct {
	ID        int64
	Latitude  float64
	Longitude float64
	Page      int
	Href      string
	Meta      string
}

type MapData struct {
	Pins []PinItem
	// Center is the last opened location, if any.
	Center *Coordinates
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

type PhotoTile struct {
	Index        int
	Status       string
	ThumbnailURL string
	Error        string
}

type AlbumPageData struct {
	PinID     int64
	Latitude  float64
	Longitude float64
	Page      int
	Tiles     []PhotoTile
}

func centerValue(c *Coordinates, lat bool) string {
	if c == nil {
		return ""
	}
	if lat {
		return formatCoord(c.Latitude)
	}
	return formatCoord(c.Longitude)
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
