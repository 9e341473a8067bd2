package location

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

// Config holds the remote endpoints used by the default chain.
type Config struct {
	ReverseGeocodeURL string
	IPURL             string
	Timeout           time.Duration
}

// New returns the standard chain: coordinates, IP, time zone, language.
func New(cfg Config, client *web.Client, logger *slog.Logger) *Detector {
	return NewDetector(logger,
		&ReverseGeocoder{BaseURL: cfg.ReverseGeocodeURL, Client: client, Timeout: cfg.Timeout},
		&IPLookup{BaseURL: cfg.IPURL, Client: client, Timeout: cfg.Timeout},
		TimeZoneTable{},
		Language{},
	)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

/* ---------------- Reverse geocoding ---------------- */

// ReverseGeocoder resolves coordinates via a BigDataCloud-compatible API.
type ReverseGeocoder struct {
	BaseURL string
	Client  *web.Client
	Timeout time.Duration
}

type reverseGeocodeResponse struct {
	CountryName          string `json:"countryName"`
	CountryCode          string `json:"countryCode"`
	City                 string `json:"city"`
	PrincipalSubdivision string `json:"principalSubdivision"`
}

func (r *ReverseGeocoder) Name() string { return "reverse-geocode" }

func (r *ReverseGeocoder) Resolve(ctx context.Context, req Request) (Info, error) {
	if req.Latitude == nil || req.Longitude == nil || r.BaseURL == "" {
		return Info{}, ErrNotApplicable
	}
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(*req.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(*req.Longitude, 'f', -1, 64))
	q.Set("localityLanguage", "en")

	var resp reverseGeocodeResponse
	if err := r.Client.GetJSON(ctx, r.BaseURL+"?"+q.Encode(), &resp); err != nil {
		return Info{}, fmt.Errorf("reverse geocode: %w", err)
	}
	if resp.CountryCode == "" {
		return Info{}, fmt.Errorf("reverse geocode: empty country code")
	}
	return Info{
		Country:     resp.CountryName,
		CountryCode: strings.ToUpper(resp.CountryCode),
		City:        resp.City,
		Region:      resp.PrincipalSubdivision,
	}, nil
}

/* ---------------- IP geolocation ---------------- */

// IPLookup resolves an IP address via an ipapi.co-compatible API. An empty IP
// looks up the caller's own address.
type IPLookup struct {
	BaseURL string
	Client  *web.Client
	Timeout time.Duration
}

type ipLookupResponse struct {
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

func (l *IPLookup) Name() string { return "ip" }

func (l *IPLookup) Resolve(ctx context.Context, req Request) (Info, error) {
	if l.BaseURL == "" {
		return Info{}, ErrNotApplicable
	}
	endpoint := strings.TrimRight(l.BaseURL, "/") + "/json/"
	if req.IP != "" {
		ip := net.ParseIP(req.IP)
		if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
			return Info{}, ErrNotApplicable
		}
		endpoint = strings.TrimRight(l.BaseURL, "/") + "/" + ip.String() + "/json/"
	}

	ctx, cancel := withTimeout(ctx, l.Timeout)
	defer cancel()

	var resp ipLookupResponse
	if err := l.Client.GetJSON(ctx, endpoint, &resp); err != nil {
		return Info{}, fmt.Errorf("ip lookup: %w", err)
	}
	if resp.Error {
		return Info{}, fmt.Errorf("ip lookup: %s", resp.Reason)
	}
	if resp.CountryName == "" || resp.CountryCode == "" {
		return Info{}, fmt.Errorf("ip lookup: incomplete response")
	}
	return Info{
		Country:     resp.CountryName,
		CountryCode: strings.ToUpper(resp.CountryCode),
		City:        resp.City,
		Region:      resp.Region,
	}, nil
}

/* ---------------- Time zone ---------------- */

var timeZoneCountries = map[string]string{
	"Europe/London":       "GB",
	"Europe/Berlin":       "DE",
	"Europe/Paris":        "FR",
	"Europe/Amsterdam":    "NL",
	"Europe/Stockholm":    "SE",
	"Europe/Oslo":         "NO",
	"Europe/Copenhagen":   "DK",
	"Europe/Helsinki":     "FI",
	"Europe/Dublin":       "IE",
	"America/Toronto":     "CA",
	"America/Vancouver":   "CA",
	"Australia/Sydney":    "AU",
	"Australia/Melbourne": "AU",
	"Pacific/Auckland":    "NZ",
	"Africa/Johannesburg": "ZA",
}

// TimeZoneTable maps an IANA zone name to a country.
type TimeZoneTable struct{}

func (TimeZoneTable) Name() string { return "timezone" }

func (TimeZoneTable) Resolve(_ context.Context, req Request) (Info, error) {
	if req.TimeZone == "" {
		return Info{}, ErrNotApplicable
	}
	code, ok := timeZoneCountries[req.TimeZone]
	if !ok {
		return Info{}, fmt.Errorf("unknown time zone %q", req.TimeZone)
	}
	return Info{Country: CountryName(code), CountryCode: code}, nil
}

/* ---------------- Accept-Language ---------------- */

var languageCountries = map[string]string{
	"de": "DE",
	"fr": "FR",
	"nl": "NL",
	"sv": "SE",
	"no": "NO",
	"nb": "NO",
	"nn": "NO",
	"da": "DK",
	"fi": "FI",
}

// Language guesses a country from an Accept-Language header. An explicit
// region wins (en-GB, en-CA); otherwise a few languages imply their country.
type Language struct{}

func (Language) Name() string { return "language" }

func (Language) Resolve(_ context.Context, req Request) (Info, error) {
	if req.AcceptLanguage == "" {
		return Info{}, ErrNotApplicable
	}
	tags, _, err := language.ParseAcceptLanguage(req.AcceptLanguage)
	if err != nil {
		return Info{}, fmt.Errorf("parse accept-language: %w", err)
	}
	for _, tag := range tags {
		if region, conf := tag.Region(); conf == language.Exact {
			if code := region.String(); Supported(code) {
				return Info{Country: CountryName(code), CountryCode: code}, nil
			}
		}
		base, _ := tag.Base()
		if code, ok := languageCountries[base.String()]; ok {
			return Info{Country: CountryName(code), CountryCode: code}, nil
		}
	}
	return Info{}, fmt.Errorf("no supported region in %q", req.AcceptLanguage)
}
