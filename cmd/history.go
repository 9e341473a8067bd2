package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/history"
)

var (
	flagMonth int
	flagDay   int
	flagWeek  bool
	flagLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show LGBTQ+ history for a date",
	Long: `Look up LGBTQ+ events that happened on a calendar date, today by default.

With --week the lookup covers the Sunday-to-Saturday week containing the date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now()
		month, day := int(now.Month()), now.Day()
		if flagMonth != 0 {
			month = flagMonth
		}
		if flagDay != 0 {
			day = flagDay
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		lookup := a.history.Lookup
		if flagWeek {
			lookup = a.history.Week
		}
		events, err := lookup(ctx, month, day, flagLimit)
		if err != nil {
			return err
		}
		if events == nil {
			events = []history.Event{}
		}

		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}
		printEvents(cmd.OutOrStdout(), month, day, events)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagMonth, "month", 0, "month (1-12), defaults to today")
	historyCmd.Flags().IntVar(&flagDay, "day", 0, "day of month, defaults to today")
	historyCmd.Flags().BoolVar(&flagWeek, "week", false, "cover the whole week containing the date")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum number of events (0 uses the configured default)")
	historyCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
}

func printEvents(w io.Writer, month, day int, events []history.Event) {
	when := time.Date(2000, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("January 2")
	fmt.Fprintln(w, headerStyle.Render("On this day: "+when))
	if len(events) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  No events found."))
		return
	}
	for _, e := range events {
		prefix := fmt.Sprintf("%d", e.Year)
		if e.Date != "" {
			prefix = e.Date + " " + prefix
		}
		fmt.Fprintf(w, "  %s  %s\n", titleStyle.Render(prefix), bodyStyle.Render(e.StrippedText()))
		if e.Source != "" {
			fmt.Fprintf(w, "        %s\n", sourceStyle.Render(e.Source))
		}
		for _, l := range e.Links {
			fmt.Fprintf(w, "        %s\n", dimStyle.Render(l.Link))
		}
	}
}
