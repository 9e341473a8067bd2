package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected at least one default source")
	}
	if cfg.News.RefreshInterval == "" {
		t.Error("expected news.refresh_interval to be set")
	}
	if err := validate(cfg); err != nil {
		t.Errorf("embedded defaults should validate: %v", err)
	}
}

func TestDefaultPoliticsQuota(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	p := cfg.News.Politics
	if p.Min != 10 || p.Max != 15 || p.Share != 0.4 {
		t.Errorf("unexpected politics quota: %+v", p)
	}
	if cfg.News.GridSize != 30 || cfg.News.CarouselSize != 5 {
		t.Errorf("unexpected selection sizes: grid=%d carousel=%d", cfg.News.GridSize, cfg.News.CarouselSize)
	}
}

func TestDefaultBlockPhrases(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	want := []string{"newsletter", "weekly roundup", "subscribe", "sign up", "clock twink", "allah is lesbian"}
	have := map[string]bool{}
	for _, p := range cfg.News.BlockPhrases {
		have[p] = true
	}
	for _, p := range want {
		if !have[p] {
			t.Errorf("default block_phrases missing %q", p)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"5m", 5 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"d", 0, true},
		{"", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("ParseDuration(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDurationAccessorsFallBack(t *testing.T) {
	cfg := &Config{}
	if got := cfg.NewsCacheTTL(); got != 5*time.Minute {
		t.Errorf("NewsCacheTTL default = %v, want 5m", got)
	}
	if got := cfg.SweepInterval(); got != time.Hour {
		t.Errorf("SweepInterval default = %v, want 1h", got)
	}
	if got := cfg.FetchTimeout(); got != 10*time.Second {
		t.Errorf("FetchTimeout default = %v, want 10s", got)
	}

	cfg.News.RefreshInterval = "invalid"
	if got := cfg.RefreshDuration(); got != 5*time.Minute {
		t.Errorf("expected 5m fallback for invalid interval, got %v", got)
	}

	cfg.Archive.Retention = "90d"
	if got := cfg.RetentionDuration(); got != 90*24*time.Hour {
		t.Errorf("RetentionDuration = %v, want 90d", got)
	}
}

func TestEnabledSources(t *testing.T) {
	cfg := &Config{
		Sources: []Source{
			{Name: "A", Enabled: true},
			{Name: "B", Enabled: false},
			{Name: "C", Enabled: true},
		},
	}
	enabled := cfg.EnabledSources()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled sources, got %d", len(enabled))
	}
	if enabled[0].Name != "A" || enabled[1].Name != "C" {
		t.Errorf("unexpected enabled sources: %v", enabled)
	}
	names := cfg.SourceNames()
	if len(names) != 2 || names[1] != "C" {
		t.Errorf("unexpected source names: %v", names)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `news:
  grid_size: 12
sources:
  - name: Test Feed
    type: rss
    url: https://example.com/feed.xml
    enabled: true
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name != "Test Feed" {
		t.Errorf("expected the single custom source, got %v", cfg.Sources)
	}
	if cfg.News.GridSize != 12 {
		t.Errorf("expected grid_size 12, got %d", cfg.News.GridSize)
	}
	// Untouched sections keep embedded defaults.
	if cfg.News.CarouselSize != 5 {
		t.Errorf("expected default carousel_size 5, got %d", cfg.News.CarouselSize)
	}
	if cfg.History.BaseURL == "" {
		t.Error("expected default history base_url")
	}
}

func TestLoadWithoutSourcesKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Log.Level)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected default sources when config lists none")
	}
}

func TestLoadNonexistentFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "config.yaml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected default sources when config doesn't exist")
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("expected defaults to be written on first run: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("sources: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestArchivePath(t *testing.T) {
	cfg := &Config{}
	if filepath.Base(cfg.ArchivePath()) != "archive.db" {
		t.Errorf("unexpected default archive path %q", cfg.ArchivePath())
	}
	cfg.Archive.Path = "/tmp/x.db"
	if cfg.ArchivePath() != "/tmp/x.db" {
		t.Errorf("expected explicit archive path, got %q", cfg.ArchivePath())
	}
}

func TestValidateMissingName(t *testing.T) {
	cfg := &Config{Sources: []Source{{Type: "rss", URL: "https://example.com"}}}
	if err := validate(cfg); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestValidateMissingURL(t *testing.T) {
	cfg := &Config{Sources: []Source{{Name: "Test", Type: "rss"}}}
	if err := validate(cfg); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestValidateInvalidType(t *testing.T) {
	cfg := &Config{Sources: []Source{{Name: "Test", Type: "json", URL: "https://example.com"}}}
	if err := validate(cfg); err == nil {
		t.Error("expected error for invalid type")
	}
}

func TestValidateInvalidURLScheme(t *testing.T) {
	cfg := &Config{Sources: []Source{{Name: "Test", Type: "rss", URL: "file:///etc/passwd"}}}
	if err := validate(cfg); err == nil {
		t.Error("expected error for file:// URL scheme")
	}
}

func TestValidateNegativeLimit(t *testing.T) {
	cfg := &Config{Sources: []Source{{Name: "Test", Type: "rss2json", URL: "https://example.com", Limit: -1}}}
	if err := validate(cfg); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestValidatePoliticsQuota(t *testing.T) {
	cfg := &Config{News: NewsConfig{Politics: PoliticsQuota{Share: 0.4, Min: 20, Max: 10}}}
	if err := validate(cfg); err == nil {
		t.Error("expected error when politics min exceeds max")
	}
	cfg.News.Politics = PoliticsQuota{Share: 1.5}
	if err := validate(cfg); err == nil {
		t.Error("expected error for share above 1")
	}
}

func TestValidateAcceptsAllSourceTypes(t *testing.T) {
	for _, typ := range []string{SourceRSS2JSON, SourceRSS, SourceAtom} {
		cfg := &Config{Sources: []Source{{Name: "Test", Type: typ, URL: "http://example.com/feed"}}}
		if err := validate(cfg); err != nil {
			t.Errorf("unexpected error for type %q: %v", typ, err)
		}
	}
}
