package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by RequireFlickr when FLICKR_API_KEY is unset.
var ErrMissingAPIKey = errors.New("config: FLICKR_API_KEY must be set")

type Config struct {
	Addr             string
	DBPath           string
	LocalDataPath    string
	LogLevel         slog.Level
	FlickrAPIKey     string
	FlickrBaseURL    string
	FlickrImageURL   string
	FetchConcurrency int
	HTTPTimeout      time.Duration
	ThumbnailSize    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getString("VT_ADDR", ":8080"),
		DBPath:           getString("VT_DB_PATH", "data/virtualtourist.db"),
		LocalDataPath:    getString("VT_LOCAL_DATA_PATH", "data/local.json"),
		LogLevel:         getLogLevel("VT_LOG_LEVEL", slog.LevelInfo),
		FlickrAPIKey:     strings.TrimSpace(os.Getenv("FLICKR_API_KEY")),
		FlickrBaseURL:    getString("FLICKR_BASE_URL", "https://api.flickr.com/services/rest"),
		FlickrImageURL:   getString("FLICKR_IMAGE_BASE_URL", "https://live.staticflickr.com"),
		FetchConcurrency: getInt("VT_FETCH_CONCURRENCY", 8),
		HTTPTimeout:      getDuration("VT_HTTP_TIMEOUT", 30*time.Second),
		ThumbnailSize:    getInt("VT_THUMBNAIL_SIZE", 300),
	}

	return cfg, nil
}

// RequireFlickr checks the settings needed to talk to Flickr. Commands that
// only touch local storage run without them.
func (c *Config) RequireFlickr() error {
	if c.FlickrAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// getInt falls back on unset, malformed and non-positive values.
func getInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getLogLevel(key string, fallback slog.Level) slog.Level {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
