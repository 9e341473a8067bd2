package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/ttlcache"
)

const (
	DefaultLimit     = 5
	DefaultWeekLimit = 3

	SourceCurated   = "SheSpeaks"
	SourceWikipedia = "Wikipedia"
)

var (
	ErrInvalidDate = errors.New("invalid month/day")
	// ErrUnavailable is returned by Week when no date in the week could be
	// fetched and nothing curated exists either.
	ErrUnavailable = errors.New("on-this-day feed unavailable")
)

// dayKeywords filter the single-date lookup. Matched at the start of a word,
// so "lgbt" also catches "LGBTQ+".
var dayKeywords = []string{
	"gay", "lesbian", "homosexual", "transgender", "bisexual", "queer", "lgbt",
	"same-sex", "pride", "stonewall", "marriage equality",
	"aids", "hiv", "gender identity", "sexual orientation",
}

// weekKeywords are stricter: the week view also scans births and deaths,
// where loose terms like "pride" produce noise.
var weekKeywords = []string{
	"lgbt", "lesbian", "transgender", "bisexual", "queer", "stonewall",
	"marriage equality", "same-sex marriage", "homosexual", "pride parade",
	"sexual orientation", "coming out", "gender identity", "rainbow flag",
}

// FetchObserver is satisfied by *metrics.Registry.
type FetchObserver interface {
	ObserveFetch(source string, ok bool, d time.Duration)
}

type Options struct {
	Limit     int
	WeekLimit int
	Observer  FetchObserver
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service answers on-this-day lookups.
type Service struct {
	source Source
	cache  *ttlcache.Cache[[]Event]
	opts   Options
}

// NewService wires a feed source and a cache. cache should use a
// calendar-day policy so results roll over at midnight.
func NewService(source Source, cache *ttlcache.Cache[[]Event], opts Options) *Service {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.WeekLimit <= 0 {
		opts.WeekLimit = DefaultWeekLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{source: source, cache: cache, opts: opts}
}

// ValidDate reports whether month/day exists in a leap year.
func ValidDate(month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	last := time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}

func (s *Service) cacheKey(scope string, month, day int) string {
	return fmt.Sprintf("history-%s-%s-%02d-%02d", s.opts.Now().Format("2006-01-02"), scope, month, day)
}

// Lookup returns curated and Wikipedia events for month/day, newest first.
// A failed Wikipedia fetch degrades to curated events only. limit <= 0 uses
// the configured default.
func (s *Service) Lookup(ctx context.Context, month, day, limit int) ([]Event, error) {
	if !ValidDate(month, day) {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidDate, month, day)
	}
	if limit <= 0 {
		limit = s.opts.Limit
	}

	key := s.cacheKey("day", month, day)
	if events, ok := s.cache.Get(key); ok {
		return truncate(events, limit), nil
	}

	events := Curated(month, day)
	for i := range events {
		events[i].Source = SourceCurated
	}

	feed, err := s.fetch(ctx, month, day)
	if err == nil {
		for _, we := range append(feed.Selected, feed.Events...) {
			if !matchesAny(we.Text+" "+we.HTML, dayKeywords) {
				continue
			}
			events = append(events, fromWiki(we, ""))
		}
	}

	events = dedupe(events, func(e Event) string {
		return fmt.Sprintf("%d|%s", e.Year, e.Text)
	})
	sortByYear(events)

	// Curated-only results are retried on the next call.
	if err == nil {
		s.cache.Set(key, events)
	}
	return truncate(events, limit), nil
}

// WeekDates returns the seven dates of the Sunday-started week containing
// month/day in year. February 29 falls back to February 28 in common years.
func WeekDates(year, month, day int) []time.Time {
	if last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day(); day > last {
		day = last
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	start := date.AddDate(0, 0, -int(date.Weekday()))
	dates := make([]time.Time, 7)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// Week gathers events across the week containing month/day of the current
// year. Each date is fetched concurrently and tagged with "MM/DD".
func (s *Service) Week(ctx context.Context, month, day, limit int) ([]Event, error) {
	if !ValidDate(month, day) {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidDate, month, day)
	}
	if limit <= 0 {
		limit = s.opts.WeekLimit
	}

	key := s.cacheKey("week", month, day)
	if events, ok := s.cache.Get(key); ok {
		return truncate(events, limit), nil
	}

	dates := WeekDates(s.opts.Now().Year(), month, day)
	feeds := make([]*OnThisDay, len(dates))
	errs := make([]error, len(dates))

	var g errgroup.Group
	for i, d := range dates {
		g.Go(func() error {
			feeds[i], errs[i] = s.fetch(ctx, int(d.Month()), d.Day())
			return nil
		})
	}
	_ = g.Wait()

	var events []Event
	failed := 0
	for i, d := range dates {
		tag := d.Format("01/02")
		for _, e := range Curated(int(d.Month()), d.Day()) {
			e.Source = SourceCurated
			e.Date = tag
			events = append(events, e)
		}
		if errs[i] != nil {
			failed++
			continue
		}
		f := feeds[i]
		all := make([]WikiEvent, 0, len(f.Selected)+len(f.Events)+len(f.Births)+len(f.Deaths))
		all = append(all, f.Selected...)
		all = append(all, f.Events...)
		all = append(all, f.Births...)
		all = append(all, f.Deaths...)
		for _, we := range all {
			if !matchesAny(weekText(we), weekKeywords) {
				continue
			}
			events = append(events, fromWiki(we, tag))
		}
	}

	if failed == len(dates) && len(events) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}

	events = dedupe(events, func(e Event) string {
		return fmt.Sprintf("%d-%s", e.Year, leadingWords(e.Text, 5))
	})
	sortByYear(events)

	if failed < len(dates) {
		s.cache.Set(key, events)
	}
	return truncate(events, limit), nil
}

func (s *Service) fetch(ctx context.Context, month, day int) (*OnThisDay, error) {
	start := time.Now()
	feed, err := s.source.OnThisDay(ctx, month, day)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveFetch("wikipedia", err == nil, time.Since(start))
	}
	if err != nil {
		s.opts.Logger.Warn("on-this-day fetch failed", "month", month, "day", day, "err", err)
		return nil, err
	}
	return feed, nil
}

// Clear drops every cached lookup.
func (s *Service) Clear() {
	s.cache.Clear()
}

func fromWiki(we WikiEvent, date string) Event {
	html := we.HTML
	if html == "" {
		html = we.Text
	}
	return Event{
		Year:   we.Year,
		Text:   we.Text,
		HTML:   html,
		Links:  we.links(),
		Image:  we.image(),
		Source: SourceWikipedia,
		Date:   date,
	}
}

func weekText(we WikiEvent) string {
	var b strings.Builder
	b.WriteString(we.Text)
	b.WriteString(" ")
	b.WriteString(we.HTML)
	for _, p := range we.Pages {
		b.WriteString(" ")
		b.WriteString(p.DisplayTitle())
	}
	return b.String()
}

// matchesAny reports whether any keyword starts a word in text.
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		for i := 0; i < len(lower); {
			j := strings.Index(lower[i:], kw)
			if j < 0 {
				break
			}
			at := i + j
			if at == 0 {
				return true
			}
			r, _ := utf8.DecodeLastRuneInString(lower[:at])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return true
			}
			i = at + 1
		}
	}
	return false
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

func leadingWords(text string, n int) string {
	words := strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), ""))
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// dedupe keeps the first event for each key.
func dedupe(events []Event, key func(Event) string) []Event {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, e := range events {
		k := key(e)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

func sortByYear(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Year > events[j].Year
	})
}

// truncate copies so callers cannot alter cached slices.
func truncate(events []Event, limit int) []Event {
	if len(events) > limit {
		events = events[:limit]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}
