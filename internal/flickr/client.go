package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Oxyrus/virtualtourist/internal/album"
)

const (
	DefaultBaseURL      = "https://api.flickr.com/services/rest"
	DefaultImageBaseURL = "https://live.staticflickr.com"

	maxImageBytes = 20 << 20
)

// Config holds the settings of a Client.
type Config struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Timeout      time.Duration
}

// Client talks to the Flickr REST API. It implements album.PhotoSource.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	logger       *slog.Logger
}

// New creates a new API client.
func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	imageBaseURL := strings.TrimRight(cfg.ImageBaseURL, "/")
	if imageBaseURL == "" {
		imageBaseURL = DefaultImageBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		imageBaseURL: imageBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

type searchResponse struct {
	Photos *photoPage `json:"photos"`
	Stat   string     `json:"stat"`
	Code   int        `json:"code"`
	Msg    string     `json:"message"`
}

type photoPage struct {
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	PerPage int           `json:"perpage"`
	Total   int           `json:"total"`
	Photo   []searchPhoto `json:"photo"`
}

type searchPhoto struct {
	ID       string `json:"id"`
	Secret   string `json:"secret"`
	Server   string `json:"server"`
	Farm     int    `json:"farm"`
	Title    string `json:"title"`
	IsPublic int    `json:"ispublic"`
	IsFriend int    `json:"isfriend"`
	IsFamily int    `json:"isfamily"`
}

// SearchURL builds the photo search request for the given coordinates and
// page.
func (c *Client) SearchURL(lat, lon float64, page int) string {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")
	q.Set("method", "flickr.photos.search")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("page", strconv.Itoa(page))
	q.Set("nojsoncallback", "1")
	q.Set("per_page", strconv.Itoa(album.PerPage))
	return c.baseURL + "/?" + q.Encode()
}

// ImageURL resolves a locator to its medium (w) size image.
func (c *Client) ImageURL(loc album.Locator) string {
	return fmt.Sprintf("%s/%s/%s_%s_w.jpg", c.imageBaseURL, loc.Server, loc.ID, loc.Secret)
}

// SearchPhotos returns the photos taken around the coordinates on the
// requested page, in the order the API ranked them.
func (c *Client) SearchPhotos(ctx context.Context, lat, lon float64, page int) ([]album.Locator, error) {
	body, err := c.get(ctx, c.SearchURL(lat, lon, page))
	if err != nil {
		return nil, fmt.Errorf("flickr: search photos: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("flickr: search photos: %w: %w", album.ErrDecode, err)
	}

	if resp.Stat != "ok" {
		return nil, fmt.Errorf("flickr: search photos: %w: api error %d: %s", album.ErrNetwork, resp.Code, resp.Msg)
	}
	if resp.Photos == nil {
		return nil, fmt.Errorf("flickr: search photos: %w: missing photos", album.ErrDecode)
	}

	locators := make([]album.Locator, 0, len(resp.Photos.Photo))
	for _, p := range resp.Photos.Photo {
		if p.ID == "" || p.Server == "" || p.Secret == "" {
			c.logger.Warn("skipping incomplete photo", "id", p.ID, "server", p.Server)
			continue
		}
		locators = append(locators, album.Locator{
			ID:     p.ID,
			Server: p.Server,
			Secret: p.Secret,
			Farm:   p.Farm,
			Title:  p.Title,
		})
	}

	c.logger.Debug("photo search completed",
		"lat", lat,
		"lon", lon,
		"page", resp.Photos.Page,
		"pages", resp.Photos.Pages,
		"photos", len(locators),
	)

	return locators, nil
}

// FetchImage downloads the image bytes of a locator.
func (c *Client) FetchImage(ctx context.Context, loc album.Locator) ([]byte, error) {
	body, err := c.get(ctx, c.ImageURL(loc))
	if err != nil {
		return nil, fmt.Errorf("flickr: fetch image %s: %w", loc.ID, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("flickr: fetch image %s: %w: empty body", loc.ID, album.ErrNetwork)
	}
	return body, nil
}

// Healthcheck verifies that the API is reachable and accepts the key.
func (c *Client) Healthcheck(ctx context.Context) error {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")
	q.Set("method", "flickr.test.echo")
	q.Set("nojsoncallback", "1")

	body, err := c.get(ctx, c.baseURL+"/?"+q.Encode())
	if err != nil {
		return fmt.Errorf("flickr: healthcheck: %w", err)
	}

	var resp struct {
		Stat string `json:"stat"`
		Msg  string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("flickr: healthcheck: %w: %w", album.ErrDecode, err)
	}
	if resp.Stat != "ok" {
		return fmt.Errorf("flickr: healthcheck: %w: %s", album.ErrNetwork, resp.Msg)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", album.ErrNetwork, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", album.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", album.ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", album.ErrNetwork, err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("%w: response larger than %d bytes", album.ErrNetwork, maxImageBytes)
	}
	return body, nil
}

var _ album.PhotoSource = (*Client)(nil)
