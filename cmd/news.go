package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/browser"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/news"
)

var (
	flagCountry  string
	flagCategory string
	flagOpen     int
	flagRefresh  bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Print the current news selection",
	Long: `Fetch every enabled feed and print the balanced grid and carousel.

Use --country to localise the selection and --category to filter the output
(politics, entertainment, health, local, general).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var filter classify.Category
		if flagCategory != "" {
			if filter, err = classify.ResolveAlias(flagCategory); err != nil {
				return err
			}
		}

		var hint *location.Info
		if flagCountry != "" {
			code := strings.ToUpper(flagCountry)
			hint = &location.Info{Country: location.CountryName(code), CountryCode: code, Source: "flag"}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.cfg.FetchTimeout()+5*time.Second)
		defer cancel()

		aggregate := a.news.Aggregate
		if flagRefresh {
			aggregate = a.news.Refresh
		}
		res, err := aggregate(ctx, hint)
		if err != nil {
			return err
		}

		res = filterResult(res, filter)
		if flagOpen > 0 {
			all := append(append([]news.Article{}, res.Grid...), res.Carousel...)
			if flagOpen > len(all) {
				return fmt.Errorf("--open %d: only %d articles selected", flagOpen, len(all))
			}
			return browser.Open(all[flagOpen-1].URL)
		}

		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	newsCmd.Flags().StringVar(&flagCountry, "country", "", "ISO country code for local news (e.g., GB)")
	newsCmd.Flags().StringVar(&flagCategory, "category", "", "only show one category")
	newsCmd.Flags().IntVar(&flagOpen, "open", 0, "open the Nth article in the browser")
	newsCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "bypass the news cache")
	newsCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
}

func filterResult(res *news.Result, c classify.Category) *news.Result {
	if c == "" {
		return res
	}
	out := *res
	out.Grid = filterArticles(res.Grid, c)
	out.Carousel = filterArticles(res.Carousel, c)
	return &out
}

func filterArticles(articles []news.Article, c classify.Category) []news.Article {
	var out []news.Article
	for _, a := range articles {
		if a.Category == c {
			out = append(out, a)
		}
	}
	return out
}

func printResult(w io.Writer, res *news.Result) {
	if res.Location != nil {
		fmt.Fprintln(w, headerStyle.Render("News for "+res.Location.Country))
	}
	if res.Stale {
		fmt.Fprintln(w, warnStyle.Render("Every feed failed; showing the last archived selection."))
	}
	for _, name := range res.Failed {
		fmt.Fprintln(w, warnStyle.Render("  [warn] "+name+" unavailable"))
	}

	n := 1
	for _, section := range []struct {
		title    string
		articles []news.Article
	}{
		{"Top stories", res.Grid},
		{"More news", res.Carousel},
	} {
		if len(section.articles) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(section.title))
		for _, a := range section.articles {
			fmt.Fprintf(w, "%2d. %s %s\n", n, badge(a.Category), titleStyle.Render(a.Title))
			meta := a.Source.Site
			if !a.PublishedAt.IsZero() {
				meta += " · " + relativeTime(a.PublishedAt, time.Now())
			}
			fmt.Fprintf(w, "    %s\n", sourceStyle.Render(meta))
			if a.Description != "" {
				fmt.Fprintf(w, "    %s\n", bodyStyle.Render(a.Description))
			}
			fmt.Fprintf(w, "    %s\n", dimStyle.Render(a.URL))
			n++
		}
	}
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
