package news

import (
	"crypto/sha256"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/publicsuffix"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/feed"
)

// DefaultSourceName labels items without an author and feeds without a
// known site.
const DefaultSourceName = "LGBTQ+ News"

// FallbackDescription replaces descriptions that are empty after stripping.
const FallbackDescription = "Read more about this important LGBTQ+ news story."

const defaultDescriptionLimit = 200

var strictPolicy = bluemonday.StrictPolicy()

// NormalizeOptions controls how raw items become articles.
type NormalizeOptions struct {
	DescriptionLimit int
	Placeholder      string
	BlockPhrases     []string
}

// Normalizer turns fetched batches into a deduplicated, sorted article pool.
type Normalizer struct {
	classifier *classify.Classifier
	opts       NormalizeOptions
}

func NewNormalizer(classifier *classify.Classifier, opts NormalizeOptions) *Normalizer {
	if classifier == nil {
		classifier = classify.New(nil)
	}
	if opts.DescriptionLimit <= 0 {
		opts.DescriptionLimit = defaultDescriptionLimit
	}
	return &Normalizer{classifier: classifier, opts: opts}
}

// Pool normalizes every batch in order, drops duplicates by exact title (the
// first occurrence wins), drops articles missing a title, description or url
// and sorts newest first.
func (n *Normalizer) Pool(batches []feed.Batch) []Article {
	var all []Article
	for _, b := range batches {
		taken := 0
		for _, item := range b.Items {
			if b.Source.Limit > 0 && taken >= b.Source.Limit {
				break
			}
			if !n.keep(item) {
				continue
			}
			taken++
			all = append(all, n.article(b.Source, item))
		}
	}

	seen := make(map[string]bool, len(all))
	pool := make([]Article, 0, len(all))
	for _, a := range all {
		if seen[a.Title] {
			continue
		}
		seen[a.Title] = true
		if a.Title == "" || a.Description == "" || a.URL == "" {
			continue
		}
		pool = append(pool, a)
	}

	sortByRecency(pool)
	return pool
}

// keep drops items without a title or description and items matching a
// blocked phrase.
func (n *Normalizer) keep(item feed.RawItem) bool {
	if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Description) == "" {
		return false
	}
	title := strings.ToLower(item.Title)
	desc := strings.ToLower(item.Description)
	for _, p := range n.opts.BlockPhrases {
		p = strings.ToLower(p)
		if p == "" {
			continue
		}
		if strings.Contains(title, p) || strings.Contains(desc, p) {
			return false
		}
	}
	return true
}

func (n *Normalizer) article(src config.Source, item feed.RawItem) Article {
	desc := truncate(stripHTML(item.Description), n.opts.DescriptionLimit)
	if desc == "" {
		desc = FallbackDescription
	}
	content := item.Content
	if content == "" {
		content = item.Description
	}
	author := strings.TrimSpace(item.Author)
	if author == "" {
		author = DefaultSourceName
	}
	site := src.Name
	if site == "" {
		site = SiteName(src.URL)
	}

	return Article{
		Title:       strings.TrimSpace(item.Title),
		Description: desc,
		URL:         item.Link,
		ImageURL:    ResolveImageURL(pickImage(item, n.opts.Placeholder), item.Link),
		PublishedAt: item.Published,
		Source:      Source{Name: author, Site: site},
		Content:     content,
		Category:    n.classifier.Classify(item.Title, desc, content),
	}
}

// pickImage walks the image fields in precedence order.
func pickImage(item feed.RawItem, placeholder string) string {
	switch {
	case item.MediaContent != "":
		return item.MediaContent
	case item.MediaThumbnail != "":
		return item.MediaThumbnail
	case item.Enclosure.URL != "" && strings.HasPrefix(item.Enclosure.Type, "image/"):
		return item.Enclosure.URL
	}
	if src := firstImage(item.Content); src != "" {
		return src
	}
	if item.Thumbnail != "" {
		return item.Thumbnail
	}
	return placeholder
}

func firstImage(content string) string {
	if !strings.Contains(content, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

var youtubeID = regexp.MustCompile(`(?i)(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// sizingParams are stripped so the full-size image is requested.
var sizingParams = []string{"w", "h", "q", "fit"}

// ResolveImageURL makes an image reference absolute against the article URL,
// maps YouTube links to their thumbnail and removes sizing parameters.
func ResolveImageURL(img, articleURL string) string {
	img = strings.TrimSpace(img)
	if img == "" {
		return ""
	}

	if strings.Contains(img, "youtube.com") || strings.Contains(img, "youtu.be") {
		if m := youtubeID.FindStringSubmatch(img); m != nil {
			return "https://img.youtube.com/vi/" + m[1] + "/maxresdefault.jpg"
		}
	}

	switch {
	case strings.HasPrefix(img, "//"):
		img = "https:" + img
	case strings.HasPrefix(img, "/"):
		if base, err := url.Parse(articleURL); err == nil && base.Scheme != "" && base.Host != "" {
			img = base.Scheme + "://" + base.Host + img
		}
	}

	return stripSizingParams(img)
}

func stripSizingParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	removed := false
	for _, p := range sizingParams {
		if q.Has(p) {
			q.Del(p)
			removed = true
		}
	}
	if !removed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var siteNames = map[string]string{
	"advocate.com":         "The Advocate",
	"gayety.co":            "Gayety",
	"gayety.com":           "Gayety",
	"pinknews.co.uk":       "PinkNews",
	"thepinknews.com":      "PinkNews",
	"lgbtqnation.com":      "LGBTQ Nation",
	"them.us":              "them.",
	"queerty.com":          "Queerty",
	"out.com":              "Out Magazine",
	"gaytimes.co.uk":       "Gay Times",
	"pride.com":            "Pride",
	"instinctmagazine.com": "Instinct Magazine",
	"hornet.com":           "Hornet",
	"metroweekly.com":      "Metro Weekly",
	"towleroad.com":        "Towleroad",
	"hivplusmag.com":       "HIV Plus Magazine",
	"poz.com":              "POZ",
	"thebody.com":          "TheBody",
	"starobserver.com.au":  "Star Observer",
	"dailyxtra.com":        "Daily Xtra",
	"washingtonblade.com":  "Washington Blade",
	"losangelesblade.com":  "Los Angeles Blade",
	"chicagophoenix.com":   "Chicago Phoenix",
}

// SiteName maps a feed URL to a publication name by registrable domain. For
// rss2json URLs the wrapped rss_url is used.
func SiteName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return DefaultSourceName
	}
	if inner := u.Query().Get("rss_url"); inner != "" {
		if iu, err := url.Parse(inner); err == nil && iu.Host != "" {
			u = iu
		}
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return DefaultSourceName
	}
	if name, ok := siteNames[domain]; ok {
		return name
	}
	return DefaultSourceName
}

// ArticleID is a stable identifier derived from the article URL.
func ArticleID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// stripHTML removes all markup, decodes entities and collapses whitespace.
func stripHTML(s string) string {
	text := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

func sortByRecency(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
