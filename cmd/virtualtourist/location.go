package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Print the last opened map location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		loc, ok, err := a.locations.LastOpenedLocation()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "no location saved yet")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%.5f, %.5f\n", loc.Latitude, loc.Longitude)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(locationCmd)
}
