package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Oxyrus/virtualtourist/internal/album"
	"github.com/Oxyrus/virtualtourist/internal/prefs"
)

var albumCmd = &cobra.Command{
	Use:   "album",
	Short: "Populate pin albums from Flickr",
}

var albumOpenCmd = &cobra.Command{
	Use:   "open pin-id",
	Short: "Open a pin's album, downloading its current page when nothing is cached",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAlbum(cmd, args[0], func(ctx context.Context, ctrl *album.Controller, id int64) error {
			return ctrl.OpenAlbum(ctx, id)
		})
	},
}

var albumNewCollectionCmd = &cobra.Command{
	Use:   "new-collection pin-id",
	Short: "Replace a pin's photos with the next page of results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAlbum(cmd, args[0], func(ctx context.Context, ctrl *album.Controller, id int64) error {
			_, err := ctrl.RequestNewCollection(ctx, id)
			return err
		})
	},
}

// runAlbum starts an album session, waits for its downloads and prints a
// summary.
func runAlbum(cmd *cobra.Command, rawID string, start func(context.Context, *album.Controller, int64) error) error {
	id, err := parsePinID(rawID)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.flickrClient()
	if err != nil {
		return err
	}
	ctrl := a.controller(client)
	defer ctrl.Close()

	ctx := cmd.Context()
	if err := start(ctx, ctrl, id); err != nil {
		return err
	}

	waitErr := ctrl.Wait(ctx)

	pin, _ := ctrl.Current()
	if err := a.locations.SaveLastOpenedLocation(prefs.Location{Latitude: pin.Latitude, Longitude: pin.Longitude}); err != nil {
		a.logger.Warn("failed to save last opened location", "pinID", pin.ID, "error", err)
	}

	printSummary(cmd.OutOrStdout(), pin.CurrentPage, ctrl.State().Snapshot())

	if waitErr != nil {
		return fmt.Errorf("some photos failed to download: %w", waitErr)
	}
	return nil
}

func printSummary(w io.Writer, page int, snap album.Snapshot) {
	counts := map[album.Status]int{}
	for _, e := range snap.Entries {
		counts[e.Status]++
	}
	fmt.Fprintf(w, "pin %d page %d: %d photos (%d loaded, %d failed, %d pending)\n",
		snap.PinID, page, len(snap.Entries),
		counts[album.StatusLoaded], counts[album.StatusFailed], counts[album.StatusPending])
}

func init() {
	albumCmd.AddCommand(albumOpenCmd, albumNewCollectionCmd)
	rootCmd.AddCommand(albumCmd)
}
