// Package archive keeps successful aggregation results in sqlite so the
// service has something to show when every feed is down.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/news"
)

var ErrNoSnapshot = errors.New("no snapshot archived")

var _ news.Archive = (*Archive)(nil)

type Archive struct {
	readDB  *sql.DB
	writeDB *sql.DB
	now     func() time.Time
}

func Open(dbPath string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro&_time_format=sqlite")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	a := &Archive{readDB: readDB, writeDB: writeDB, now: time.Now}
	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) init() error {
	_, err := a.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id          TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			site        TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL,
			link        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			published   DATETIME NOT NULL,
			fetched_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_site ON articles(site);

		CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			fetched_at DATETIME NOT NULL,
			payload    TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (a *Archive) Close() error {
	var errs []error
	if a.readDB != nil {
		errs = append(errs, a.readDB.Close())
	}
	if a.writeDB != nil {
		errs = append(errs, a.writeDB.Close())
	}
	return errors.Join(errs...)
}

// SaveSnapshot upserts every article in res and records res as the latest
// snapshot.
func (a *Archive) SaveSnapshot(ctx context.Context, res *news.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	fetchedAt := res.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = a.now()
	}
	fetchedAt = fetchedAt.UTC()

	tx, err := a.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (id, source, site, title, link, description, image_url, category, published, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			image_url = excluded.image_url,
			category = excluded.category,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, art := range append(append([]news.Article(nil), res.Grid...), res.Carousel...) {
		published := art.PublishedAt
		if published.IsZero() {
			published = fetchedAt
		}
		_, err := stmt.ExecContext(ctx, news.ArticleID(art.URL), art.Source.Name, art.Source.Site,
			art.Title, art.URL, art.Description, art.ImageURL, string(art.Category),
			published.UTC(), fetchedAt)
		if err != nil {
			return fmt.Errorf("upserting article %s: %w", art.URL, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (fetched_at, payload) VALUES (?, ?)`, fetchedAt, string(payload)); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return tx.Commit()
}

// LatestSnapshot returns the most recently saved result.
func (a *Archive) LatestSnapshot(ctx context.Context) (*news.Result, error) {
	var payload string
	err := a.readDB.QueryRowContext(ctx,
		`SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var res news.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &res, nil
}

// Record is an archived article row.
type Record struct {
	ID          string
	Source      string
	Site        string
	Title       string
	Link        string
	Description string
	ImageURL    string
	Category    string
	Published   time.Time
	FetchedAt   time.Time
}

type QueryOpts struct {
	Since    time.Time
	Sites    []string
	Search   string
	Category string
	Limit    int
}

// Articles lists archived articles, newest first.
func (a *Archive) Articles(ctx context.Context, opts QueryOpts) ([]Record, error) {
	var (
		where []string
		args  []any
	)

	if !opts.Since.IsZero() {
		where = append(where, "published >= ?")
		args = append(args, opts.Since.UTC())
	}

	if len(opts.Sites) > 0 {
		placeholders := make([]string, len(opts.Sites))
		for i, s := range opts.Sites {
			placeholders[i] = "?"
			args = append(args, s)
		}
		where = append(where, "site IN ("+strings.Join(placeholders, ",")+")") //nolint:gosec
	}

	if opts.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term)
	}

	if opts.Category != "" {
		where = append(where, "category = ?")
		args = append(args, opts.Category)
	}

	query := "SELECT id, source, site, title, link, description, image_url, category, published, fetched_at FROM articles"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY published DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := a.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Source, &r.Site, &r.Title, &r.Link, &r.Description,
			&r.ImageURL, &r.Category, &r.Published, &r.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune removes articles and snapshots fetched before now-olderThan. The
// newest snapshot is always kept. It returns the number of articles removed.
func (a *Archive) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := a.now().Add(-olderThan).UTC()

	tx, err := a.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning articles: %w", err)
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE fetched_at < ? AND id <> (SELECT MAX(id) FROM snapshots)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return n, tx.Commit()
}

type SiteCount struct {
	Site  string
	Count int
}

type Stats struct {
	Articles     int
	Snapshots    int
	LastSnapshot time.Time
	Sites        []SiteCount
}

func (a *Archive) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := a.readDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&s.Articles); err != nil {
		return s, fmt.Errorf("counting articles: %w", err)
	}
	if err := a.readDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&s.Snapshots); err != nil {
		return s, fmt.Errorf("counting snapshots: %w", err)
	}
	if s.Snapshots > 0 {
		if err := a.readDB.QueryRowContext(ctx,
			`SELECT fetched_at FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&s.LastSnapshot); err != nil {
			return s, fmt.Errorf("reading last snapshot time: %w", err)
		}
	}

	rows, err := a.readDB.QueryContext(ctx,
		`SELECT site, COUNT(*) FROM articles GROUP BY site ORDER BY COUNT(*) DESC, site`)
	if err != nil {
		return s, fmt.Errorf("counting sites: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc SiteCount
		if err := rows.Scan(&sc.Site, &sc.Count); err != nil {
			return s, fmt.Errorf("scanning site count: %w", err)
		}
		s.Sites = append(s.Sites, sc)
	}
	return s, rows.Err()
}
