package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Oxyrus/virtualtourist/internal/album"
	"github.com/Oxyrus/virtualtourist/internal/config"
	"github.com/Oxyrus/virtualtourist/internal/flickr"
	"github.com/Oxyrus/virtualtourist/internal/logging"
	"github.com/Oxyrus/virtualtourist/internal/media"
	"github.com/Oxyrus/virtualtourist/internal/prefs"
	"github.com/Oxyrus/virtualtourist/internal/storage/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "virtualtourist",
	Short: "Drop pins on a map and browse photos taken around them",
	Long: strings.TrimSpace(`
Virtual Tourist keeps a set of map pins and, for each of them, an album of
Flickr photos taken nearby. Albums are cached locally in SQLite; asking for a
new collection moves the pin to the next page of search results.
`),
	SilenceUsage: true,
}

// app bundles the long-lived dependencies shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *sqlite.Store
	locations *prefs.Store
}

// openApp loads configuration and opens local storage. Failing to open the
// database is fatal.
func openApp() (*app, error) {
	bootstrapLogger := logging.New(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		return nil, err
	}

	logger := logging.New(cfg.LogLevel)

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open sqlite database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	locations, err := prefs.Open(cfg.LocalDataPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open local data: %w", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		locations: locations,
	}, nil
}

// flickrClient is only needed by commands that talk to Flickr, so the API key
// is checked here rather than in openApp.
func (a *app) flickrClient() (*flickr.Client, error) {
	if err := a.cfg.RequireFlickr(); err != nil {
		return nil, err
	}
	return flickr.New(flickr.Config{
		APIKey:       a.cfg.FlickrAPIKey,
		BaseURL:      a.cfg.FlickrBaseURL,
		ImageBaseURL: a.cfg.FlickrImageURL,
		Timeout:      a.cfg.HTTPTimeout,
	}, a.logger), nil
}

func (a *app) controller(source album.PhotoSource) *album.Controller {
	return album.NewController(a.logger, source, a.store.Pins(), a.store.Photos(), album.Options{
		Concurrency: a.cfg.FetchConcurrency,
		Enricher:    media.NewProcessor(a.cfg.ThumbnailSize),
	})
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close sqlite database", "error", err)
	}
}

var _ album.Enricher = (*media.Processor)(nil)
