package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Source types understood by the feed fetcher.
const (
	SourceRSS2JSON = "rss2json"
	SourceRSS      = "rss"
	SourceAtom     = "atom"
)

type Source struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Limit   int    `yaml:"limit,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type FetchConfig struct {
	Timeout        string `yaml:"timeout"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	UserAgent      string `yaml:"user_agent"`
}

type PoliticsQuota struct {
	Share float64 `yaml:"share"`
	Min   int     `yaml:"min"`
	Max   int     `yaml:"max"`
}

type NewsConfig struct {
	CacheTTL         string        `yaml:"cache_ttl"`
	RefreshInterval  string        `yaml:"refresh_interval"`
	GridSize         int           `yaml:"grid_size"`
	CarouselSize     int           `yaml:"carousel_size"`
	Politics         PoliticsQuota `yaml:"politics"`
	DescriptionLimit int           `yaml:"description_limit"`
	PlaceholderImage string        `yaml:"placeholder_image"`
	BlockPhrases     []string      `yaml:"block_phrases"`
}

type HistoryConfig struct {
	BaseURL   string `yaml:"base_url"`
	Limit     int    `yaml:"limit"`
	WeekLimit int    `yaml:"week_limit"`
}

type LocationConfig struct {
	ReverseGeocodeURL string `yaml:"reverse_geocode_url"`
	IPURL             string `yaml:"ip_url"`
	Timeout           string `yaml:"timeout"`
}

type CacheConfig struct {
	SweepInterval string `yaml:"sweep_interval"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	Retention string `yaml:"retention"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Fetch    FetchConfig    `yaml:"fetch"`
	News     NewsConfig     `yaml:"news"`
	Sources  []Source       `yaml:"sources"`
	History  HistoryConfig  `yaml:"history"`
	Location LocationConfig `yaml:"location"`
	Cache    CacheConfig    `yaml:"cache"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// ParseDuration accepts Go duration syntax plus "Nd" for whole days.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (c *Config) FetchTimeout() time.Duration {
	return durationOr(c.Fetch.Timeout, 10*time.Second)
}

func (c *Config) NewsCacheTTL() time.Duration {
	return durationOr(c.News.CacheTTL, 5*time.Minute)
}

func (c *Config) RefreshDuration() time.Duration {
	return durationOr(c.News.RefreshInterval, 5*time.Minute)
}

func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.Cache.SweepInterval, time.Hour)
}

func (c *Config) LocationTimeout() time.Duration {
	return durationOr(c.Location.Timeout, 5*time.Second)
}

func (c *Config) ReadTimeout() time.Duration {
	return durationOr(c.Server.ReadTimeout, 15*time.Second)
}

func (c *Config) WriteTimeout() time.Duration {
	return durationOr(c.Server.WriteTimeout, 60*time.Second)
}

func (c *Config) RetentionDuration() time.Duration {
	return durationOr(c.Archive.Retention, 30*24*time.Hour)
}

// MaxConcurrency returns the fan-out bound for one aggregation cycle.
// Zero means one goroutine per source.
func (c *Config) MaxConcurrency() int {
	if c.Fetch.MaxConcurrency < 0 {
		return 0
	}
	return c.Fetch.MaxConcurrency
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) SourceNames() []string {
	var names []string
	for _, s := range c.EnabledSources() {
		names = append(names, s.Name)
	}
	return names
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newsdesk", "config.yaml")
}

// ArchivePath returns the configured archive location or the XDG data default.
func (c *Config) ArchivePath() string {
	if c.Archive.Path != "" {
		return c.Archive.Path
	}
	return filepath.Join(xdg.DataHome, "newsdesk", "archive.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path, falling back to the embedded defaults when the
// file does not exist. Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: just use embedded defaults
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := *defaults
	cfg.Sources = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = defaults.Sources
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	validTypes := map[string]bool{SourceRSS2JSON: true, SourceRSS: true, SourceAtom: true}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: rss2json, rss, atom)", s.Name, s.Type)
		}
		if s.Limit < 0 {
			return fmt.Errorf("source %q: limit must not be negative", s.Name)
		}
	}

	p := cfg.News.Politics
	if p.Min < 0 || p.Max < 0 {
		return fmt.Errorf("news.politics: min and max must not be negative")
	}
	if p.Max > 0 && p.Min > p.Max {
		return fmt.Errorf("news.politics: min %d exceeds max %d", p.Min, p.Max)
	}
	if p.Share < 0 || p.Share > 1 {
		return fmt.Errorf("news.politics: share must be between 0 and 1, got %v", p.Share)
	}
	if cfg.News.GridSize < 0 || cfg.News.CarouselSize < 0 {
		return fmt.Errorf("news: grid_size and carousel_size must not be negative")
	}
	return nil
}
