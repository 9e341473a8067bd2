// Package location makes a best-effort guess at a reader's country. The guess
// only biases Local News classification and is never used for anything that
// must be correct.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/ttlcache"
)

// Info is a resolved location. Only Country and CountryCode are guaranteed.
type Info struct {
	Country     string `json:"country"`
	CountryCode string `json:"code"`
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Default is returned when every resolver fails.
var Default = Info{Country: "United States", CountryCode: "US", Source: "default"}

// Request carries every signal a resolver may use. All fields are optional.
type Request struct {
	Latitude       *float64
	Longitude      *float64
	IP             string
	TimeZone       string
	AcceptLanguage string
}

// ErrNotApplicable means the request lacks the signal a resolver needs.
var ErrNotApplicable = errors.New("resolver not applicable")

// Resolver turns a request into a location or an error.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, req Request) (Info, error)
}

// Detector tries resolvers in order and stops at the first success.
type Detector struct {
	resolvers []Resolver
	logger    *slog.Logger
	cache     *ttlcache.Cache[Info]
}

// NewDetector builds a detector from an ordered resolver list.
func NewDetector(logger *slog.Logger, resolvers ...Resolver) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{resolvers: resolvers, logger: logger}
}

// WithCache memoises resolved locations per request signature. Default is
// never cached, so a remote outage is retried on the next request.
func (d *Detector) WithCache(c *ttlcache.Cache[Info]) *Detector {
	d.cache = c
	return d
}

// Detect never fails. A resolver error or panic moves on to the next one, and
// Default is returned when none succeed.
func (d *Detector) Detect(ctx context.Context, req Request) Info {
	if d.cache == nil {
		return d.detect(ctx, req)
	}
	key := req.key()
	if info, ok := d.cache.Get(key); ok {
		return info
	}
	info := d.detect(ctx, req)
	if info != Default {
		d.cache.Set(key, info)
	}
	return info
}

func (r Request) key() string {
	coord := func(f *float64) string {
		if f == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *f)
	}
	return strings.Join([]string{coord(r.Latitude), coord(r.Longitude), r.IP, r.TimeZone, r.AcceptLanguage}, "|")
}

func (d *Detector) detect(ctx context.Context, req Request) Info {
	for _, r := range d.resolvers {
		info, err := d.try(ctx, r, req)
		if err == nil && info.CountryCode != "" {
			if info.Country == "" {
				info.Country = CountryName(info.CountryCode)
			}
			info.Source = r.Name()
			return info
		}
		if err != nil && !errors.Is(err, ErrNotApplicable) {
			d.logger.Debug("location resolver failed", "resolver", r.Name(), "err", err)
		}
	}
	return Default
}

func (d *Detector) try(ctx context.Context, r Resolver, req Request) (info Info, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("resolver panic: %v", rec)
		}
	}()
	return r.Resolve(ctx, req)
}

var countryNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"DE": "Germany",
	"FR": "France",
	"NL": "Netherlands",
	"SE": "Sweden",
	"NO": "Norway",
	"DK": "Denmark",
	"FI": "Finland",
	"IE": "Ireland",
	"NZ": "New Zealand",
	"ZA": "South Africa",
}

// CountryName returns the display name for a supported ISO code, or the code
// itself.
func CountryName(code string) string {
	code = strings.ToUpper(code)
	if n, ok := countryNames[code]; ok {
		return n
	}
	return code
}

// Supported reports whether code has a name and keyword table.
func Supported(code string) bool {
	_, ok := countryNames[strings.ToUpper(code)]
	return ok
}

var countryKeywords = map[string][]string{
	"US": {"United States", "America", "American", "U.S.", "USA", "federal", "congress", "senate"},
	"GB": {"UK", "United Kingdom", "Britain", "British", "England", "Scotland", "Wales", "parliament"},
	"CA": {"Canada", "Canadian", "Ottawa", "provincial", "federal"},
	"AU": {"Australia", "Australian", "Canberra", "NSW", "Victoria"},
	"DE": {"Germany", "German", "Berlin", "Bundestag"},
	"FR": {"France", "French", "Paris", "République"},
	"NL": {"Netherlands", "Dutch", "Amsterdam", "Holland"},
	"SE": {"Sweden", "Swedish", "Stockholm"},
	"NO": {"Norway", "Norwegian", "Oslo"},
	"DK": {"Denmark", "Danish", "Copenhagen"},
	"FI": {"Finland", "Finnish", "Helsinki"},
	"IE": {"Ireland", "Irish", "Dublin"},
	"NZ": {"New Zealand", "Kiwi", "Wellington"},
	"ZA": {"South Africa", "South African", "Cape Town", "Johannesburg"},
}

// Keywords returns the words that mark an article as local to info. Unknown
// codes fall back to the country name alone.
func Keywords(info Info) []string {
	if kws, ok := countryKeywords[strings.ToUpper(info.CountryCode)]; ok {
		out := make([]string, len(kws))
		copy(out, kws)
		return out
	}
	if info.Country == "" {
		return nil
	}
	return []string{info.Country}
}
