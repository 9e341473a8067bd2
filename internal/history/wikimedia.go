package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

// DefaultBaseURL is the English on-this-day feed.
const DefaultBaseURL = "https://api.wikimedia.org/feed/v1/wikipedia/en/onthisday/all"

type wikiThumbnail struct {
	Source string `json:"source"`
}

type WikiPage struct {
	Title           string         `json:"title"`
	NormalizedTitle string         `json:"normalizedtitle"`
	Thumbnail       *wikiThumbnail `json:"thumbnail"`
}

// DisplayTitle prefers the normalized title and falls back to the raw one
// with underscores replaced.
func (p WikiPage) DisplayTitle() string {
	if p.NormalizedTitle != "" {
		return p.NormalizedTitle
	}
	return strings.ReplaceAll(p.Title, "_", " ")
}

func (p WikiPage) Link() Link {
	return Link{
		Title: p.DisplayTitle(),
		Link:  "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(p.DisplayTitle(), " ", "_"),
	}
}

type WikiEvent struct {
	Year      int            `json:"year"`
	Text      string         `json:"text"`
	HTML      string         `json:"html"`
	Pages     []WikiPage     `json:"pages"`
	Thumbnail *wikiThumbnail `json:"thumbnail"`
}

// image returns the event thumbnail or the first page thumbnail.
func (e WikiEvent) image() string {
	if e.Thumbnail != nil && e.Thumbnail.Source != "" {
		return e.Thumbnail.Source
	}
	if len(e.Pages) > 0 && e.Pages[0].Thumbnail != nil {
		return e.Pages[0].Thumbnail.Source
	}
	return ""
}

func (e WikiEvent) links() []Link {
	var out []Link
	for _, p := range e.Pages {
		if p.Title != "" {
			out = append(out, p.Link())
		}
	}
	return out
}

// OnThisDay is the subset of the feed this package reads.
type OnThisDay struct {
	Selected []WikiEvent `json:"selected"`
	Events   []WikiEvent `json:"events"`
	Births   []WikiEvent `json:"births"`
	Deaths   []WikiEvent `json:"deaths"`
}

// Source fetches the on-this-day feed for a date.
type Source interface {
	OnThisDay(ctx context.Context, month, day int) (*OnThisDay, error)
}

// WikimediaClient reads the Wikimedia feed API.
type WikimediaClient struct {
	baseURL string
	client  *web.Client
}

func NewWikimediaClient(baseURL string, client *web.Client) *WikimediaClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &WikimediaClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *WikimediaClient) OnThisDay(ctx context.Context, month, day int) (*OnThisDay, error) {
	url := fmt.Sprintf("%s/%02d/%02d", c.baseURL, month, day)
	var feed OnThisDay
	if err := c.client.GetJSON(ctx, url, &feed); err != nil {
		return nil, fmt.Errorf("fetching on-this-day %02d/%02d: %w", month, day, err)
	}
	return &feed, nil
}
