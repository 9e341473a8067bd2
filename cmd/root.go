package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/update"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagLogLevel string
	flagJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "LGBTQ+ news and on-this-day aggregator",
	Long: `newsdesk aggregates LGBTQ+ news feeds into a balanced, categorised selection
and looks up LGBTQ+ history for any calendar date.

Run "newsdesk serve" for the JSON API or use the subcommands for one-off lookups.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug, info, warn, error)")

	versionCmd.Flags().Bool("check", false, "check GitHub for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(locationCmd)
	rootCmd.AddCommand(extractImageCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "newsdesk %s (commit: %s, built: %s)\n", version, commit, date)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}
		client := web.New(5*time.Second, "newsdesk/"+version)
		res, err := update.Check(context.Background(), client, "", version)
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "You are on the latest version.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "A newer version is available: %s\n", res.LatestVersion)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
