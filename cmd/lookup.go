package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
)

var (
	flagIP   string
	flagTZ   string
	flagLang string
	flagLat  float64
	flagLon  float64
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Resolve a country from coordinates, IP, time zone or language",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		req := location.Request{IP: flagIP, TimeZone: flagTZ, AcceptLanguage: flagLang}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			req.Latitude, req.Longitude = &flagLat, &flagLon
		}

		info := a.locator.Detect(cmd.Context(), req)
		if flagJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", headerStyle.Render(info.Country), info.CountryCode)
		if info.City != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "City: %s\n", info.City)
		}
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("resolved by "+info.Source))
		return nil
	},
}

var extractImageCmd = &cobra.Command{
	Use:   "extract-image URL",
	Short: "Print the preview image of an article page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.FetchTimeout())
		defer cancel()

		img, err := a.images.Extract(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), img)
		return nil
	},
}

func init() {
	locationCmd.Flags().StringVar(&flagIP, "ip", "", "client IP address")
	locationCmd.Flags().StringVar(&flagTZ, "tz", "", "IANA time zone (e.g., Europe/London)")
	locationCmd.Flags().StringVar(&flagLang, "lang", "", "Accept-Language value (e.g., en-GB)")
	locationCmd.Flags().Float64Var(&flagLat, "lat", 0, "latitude")
	locationCmd.Flags().Float64Var(&flagLon, "lon", 0, "longitude")
	locationCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
}
