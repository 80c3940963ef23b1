package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Oxyrus/virtualtourist/internal/storage"
)

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Manage map pins",
}

var pinsAddCmd = &cobra.Command{
	Use:   "add latitude longitude",
	Short: "Drop a pin at the given coordinates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lon, err := parseCoordinates(args[0], args[1])
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pin, err := a.store.Pins().Create(cmd.Context(), storage.PinCreate{Latitude: lat, Longitude: lon})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "pin %d dropped at %.5f, %.5f\n", pin.ID, pin.Latitude, pin.Longitude)
		return nil
	},
}

var pinsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pins, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pins, err := a.store.Pins().List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLATITUDE\tLONGITUDE\tPAGE\tCREATED")
		for _, pin := range pins {
			fmt.Fprintf(w, "%d\t%.5f\t%.5f\t%d\t%s\n",
				pin.ID, pin.Latitude, pin.Longitude, pin.CurrentPage, pin.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var pinsDeleteCmd = &cobra.Command{
	Use:   "delete id",
	Short: "Remove a pin and its photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePinID(args[0])
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Pins().Delete(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "pin %d removed\n", id)
		return nil
	},
}

func parsePinID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid pin id %q", raw)
	}
	return id, nil
}

func parseCoordinates(rawLat, rawLon string) (float64, float64, error) {
	lat, err := parseDegrees(rawLat, 90)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", rawLat)
	}
	lon, err := parseDegrees(rawLon, 180)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", rawLon)
	}
	return lat, lon, nil
}

// parseDegrees accepts finite values within [-limit, limit]. ParseFloat
// happily returns NaN and Inf, which slip past plain range comparisons.
func parseDegrees(raw string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, errors.New("out of range")
	}
	return v, nil
}

func init() {
	pinsCmd.AddCommand(pinsAddCmd, pinsListCmd, pinsDeleteCmd)
	rootCmd.AddCommand(pinsCmd)
}
