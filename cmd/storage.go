package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/archive"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"
)

var (
	flagPruneOlderThan string
	flagSince          string
	flagSites          []string
	flagSearchLimit    int
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old articles from the archive",
	Long: `Delete archived articles and snapshots older than the retention period.

Uses the retention value from config (default: 90d) unless overridden with --older-than.
The newest snapshot is always kept as the fallback selection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openArchive()
		if err != nil {
			return err
		}
		defer db.Close()

		retention := cfg.RetentionDuration()
		if flagPruneOlderThan != "" {
			d, err := config.ParseDuration(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		deleted, err := db.Prune(cmd.Context(), retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		if deleted == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to prune.")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d article(s) older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openArchive()
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		w := cmd.OutOrStdout()
		path := cfg.ArchivePath()
		fmt.Fprintf(w, "Archive: %s\n", path)
		if fi, err := os.Stat(path); err == nil {
			fmt.Fprintf(w, "Size: %s\n", formatBytes(fi.Size()))
		}
		fmt.Fprintf(w, "Articles: %d\n", st.Articles)
		fmt.Fprintf(w, "Snapshots: %d\n", st.Snapshots)
		if !st.LastSnapshot.IsZero() {
			fmt.Fprintf(w, "Last snapshot: %s\n", st.LastSnapshot.Local().Format(time.DateTime))
		}
		for _, s := range st.Sites {
			fmt.Fprintf(w, "  %-28s %d\n", s.Site, s.Count)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [TERM]",
	Short: "Search archived articles",
	Long: `Search the article archive by title and description.

Filter with --since (e.g., 7d, 24h), --site and --category.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openArchive()
		if err != nil {
			return err
		}
		defer db.Close()

		opts := archive.QueryOpts{Sites: flagSites, Limit: flagSearchLimit}
		if len(args) == 1 {
			opts.Search = args[0]
		}
		if flagSince != "" {
			d, err := config.ParseDuration(flagSince)
			if err != nil {
				return fmt.Errorf("invalid --since value: %w", err)
			}
			opts.Since = time.Now().Add(-d)
		}
		if flagCategory != "" {
			c, err := classify.ResolveAlias(flagCategory)
			if err != nil {
				return err
			}
			opts.Category = string(c)
		}

		records, err := db.Articles(cmd.Context(), opts)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		if len(records) == 0 {
			fmt.Fprintln(w, dimStyle.Render("No matching articles."))
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(w, "%s %s\n", badge(classify.Category(r.Category)), titleStyle.Render(r.Title))
			meta := []string{r.Site}
			if !r.Published.IsZero() {
				meta = append(meta, r.Published.Local().Format(time.DateOnly))
			}
			fmt.Fprintf(w, "    %s\n", sourceStyle.Render(strings.Join(meta, " · ")))
			fmt.Fprintf(w, "    %s\n", dimStyle.Render(r.Link))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention period (e.g., 30d, 720h)")

	searchCmd.Flags().StringVar(&flagSince, "since", "", "only articles published within this window (e.g., 7d, 24h)")
	searchCmd.Flags().StringSliceVar(&flagSites, "site", nil, "restrict to these sites (repeatable)")
	searchCmd.Flags().StringVar(&flagCategory, "category", "", "only one category")
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 50, "maximum results")
	searchCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
