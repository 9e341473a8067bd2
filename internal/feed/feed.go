package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

// Enclosure is an attached media file.
type Enclosure struct {
	URL  string
	Type string
}

// RawItem is one feed entry before normalisation. Every source type maps onto
// this shape.
type RawItem struct {
	Title          string
	Description    string
	Link           string
	Content        string
	Author         string
	PubDate        string
	Published      time.Time
	Thumbnail      string
	Enclosure      Enclosure
	MediaContent   string
	MediaThumbnail string
}

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source) ([]RawItem, error)
}

/* ---------------- rss2json ---------------- */

// JSONFetcher reads the rss2json envelope {status, items[]}.
type JSONFetcher struct {
	client *web.Client
	now    func() time.Time
}

func NewJSONFetcher(client *web.Client) *JSONFetcher {
	return &JSONFetcher{client: client, now: time.Now}
}

type jsonEnvelope struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Items   []jsonItem `json:"items"`
}

type jsonItem struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Link           string        `json:"link"`
	URL            string        `json:"url"`
	PubDate        string        `json:"pubDate"`
	Author         string        `json:"author"`
	Content        string        `json:"content"`
	Thumbnail      string        `json:"thumbnail"`
	Enclosure      jsonEnclosure `json:"enclosure"`
	MediaContent   mediaRef      `json:"media:content"`
	MediaThumbnail mediaRef      `json:"media:thumbnail"`
}

type jsonEnclosure struct {
	URL  string `json:"url"`
	Link string `json:"link"`
	Type string `json:"type"`
}

// UnmarshalJSON tolerates the empty array rss2json emits for items without
// an enclosure.
func (e *jsonEnclosure) UnmarshalJSON(data []byte) error {
	type plain jsonEnclosure
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	*e = jsonEnclosure(p)
	return nil
}

// mediaRef accepts {"url":...}, [{"url":...}] or a bare string.
type mediaRef struct {
	URL string
}

func (m *mediaRef) UnmarshalJSON(data []byte) error {
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		m.URL = obj.URL
		return nil
	}
	var list []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) > 0 {
			m.URL = list[0].URL
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.URL = s
		return nil
	}
	// Unknown shapes carry no image.
	return nil
}

// withCacheBuster appends "_=<unix ms>" so intermediate caches do not serve
// a stale conversion.
func withCacheBuster(raw string, now time.Time) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("_", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *JSONFetcher) Fetch(ctx context.Context, source config.Source) ([]RawItem, error) {
	endpoint, err := withCacheBuster(source.URL, f.now())
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}

	var env jsonEnvelope
	if err := f.client.GetJSON(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("fetching %s: status %q: %s", source.Name, env.Status, env.Message)
	}

	items := make([]RawItem, 0, len(env.Items))
	for _, it := range env.Items {
		link := it.Link
		if link == "" {
			link = it.URL
		}
		encURL := it.Enclosure.URL
		if encURL == "" {
			encURL = it.Enclosure.Link
		}
		pub, _ := ParsePubDate(it.PubDate)
		items = append(items, RawItem{
			Title:          it.Title,
			Description:    it.Description,
			Link:           link,
			Content:        it.Content,
			Author:         it.Author,
			PubDate:        it.PubDate,
			Published:      pub,
			Thumbnail:      it.Thumbnail,
			Enclosure:      Enclosure{URL: encURL, Type: it.Enclosure.Type},
			MediaContent:   it.MediaContent.URL,
			MediaThumbnail: it.MediaThumbnail.URL,
		})
	}
	return items, nil
}

/* ---------------- RSS / Atom ---------------- */

// XMLFetcher parses native RSS and Atom with gofeed.
type XMLFetcher struct {
	parser *gofeed.Parser
}

func NewXMLFetcher(client *web.Client) *XMLFetcher {
	p := gofeed.NewParser()
	p.Client = client.HTTPClient()
	p.UserAgent = client.UserAgent()
	return &XMLFetcher{parser: p}
}

func (f *XMLFetcher) Fetch(ctx context.Context, source config.Source) ([]RawItem, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		raw := RawItem{
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
			Content:     item.Content,
			PubDate:     item.Published,
		}
		if item.PublishedParsed != nil {
			raw.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			raw.Published = *item.UpdatedParsed
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			raw.Author = item.Authors[0].Name
		}
		if item.Image != nil {
			raw.Thumbnail = item.Image.URL
		}
		for _, enc := range item.Enclosures {
			if enc != nil && enc.URL != "" {
				raw.Enclosure = Enclosure{URL: enc.URL, Type: enc.Type}
				break
			}
		}
		raw.MediaContent = mediaExtension(item, "content")
		raw.MediaThumbnail = mediaExtension(item, "thumbnail")
		items = append(items, raw)
	}
	return items, nil
}

func mediaExtension(item *gofeed.Item, name string) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, ext := range media[name] {
		if u := ext.Attrs["url"]; u != "" {
			return u
		}
	}
	// media:group wraps content elements in some feeds.
	for _, group := range media["group"] {
		for _, ext := range group.Children[name] {
			if u := ext.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}

/* ---------------- Fan-out ---------------- */

// Observer receives one call per fetch attempt.
type Observer interface {
	ObserveFetch(source string, ok bool, d time.Duration)
}

// SourceError is a failed fetch of one source.
type SourceError struct {
	Source string
	URL    string
	Err    error
}

func (e *SourceError) Error() string { return e.Err.Error() }

func (e *SourceError) Unwrap() error { return e.Err }

// Batch holds the items of one source.
type Batch struct {
	Source config.Source
	Items  []RawItem
}

// FetchResult keeps successful batches in source configuration order.
type FetchResult struct {
	Batches []Batch
	Errors  []error
}

// Count returns the total number of fetched items.
func (r FetchResult) Count() int {
	n := 0
	for _, b := range r.Batches {
		n += len(b.Items)
	}
	return n
}

type Options struct {
	Timeout        time.Duration
	MaxConcurrency int
	Observer       Observer
	Logger         *slog.Logger
}

// Service dispatches each source to the fetcher for its type.
type Service struct {
	fetchers map[string]Fetcher
	opts     Options
}

func NewService(client *web.Client, opts Options) *Service {
	xml := NewXMLFetcher(client)
	return NewServiceWithFetchers(map[string]Fetcher{
		config.SourceRSS2JSON: NewJSONFetcher(client),
		config.SourceRSS:      xml,
		config.SourceAtom:     xml,
	}, opts)
}

func NewServiceWithFetchers(fetchers map[string]Fetcher, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Service{fetchers: fetchers, opts: opts}
}

// FetchAll fetches every source concurrently and waits for all of them. A
// failing source is logged and recorded in Errors; it never stops the others.
func (s *Service) FetchAll(ctx context.Context, sources []config.Source) FetchResult {
	batches := make([]*Batch, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if s.opts.MaxConcurrency > 0 {
		g.SetLimit(s.opts.MaxConcurrency)
	}

	for i, src := range sources {
		g.Go(func() error {
			items, err := s.fetchOne(gctx, src)
			if err != nil {
				errs[i] = &SourceError{Source: src.Name, URL: src.URL, Err: err}
				return nil
			}
			batches[i] = &Batch{Source: src, Items: items}
			return nil
		})
	}
	_ = g.Wait()

	var result FetchResult
	for i := range sources {
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
			continue
		}
		if batches[i] != nil {
			result.Batches = append(result.Batches, *batches[i])
		}
	}
	return result
}

func (s *Service) fetchOne(ctx context.Context, src config.Source) ([]RawItem, error) {
	fetcher, ok := s.fetchers[src.Type]
	if !ok {
		return nil, fmt.Errorf("fetching %s: unsupported source type %q", src.Name, src.Type)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	items, err := fetcher.Fetch(ctx, src)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveFetch(src.Name, err == nil, time.Since(start))
	}
	if err != nil {
		s.opts.Logger.Warn("feed fetch failed", "source", src.Name, "url", src.URL, "err", err)
		return nil, err
	}
	s.opts.Logger.Debug("feed fetched", "source", src.Name, "items", len(items))
	return items, nil
}
