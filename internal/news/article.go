// Package news aggregates LGBTQ+ news feeds into balanced grid and carousel
// selections.
package news

import (
	"time"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
)

// Source names the author and the publication of an article.
type Source struct {
	Name string `json:"name"`
	Site string `json:"site"`
}

// Article is a normalized feed item. It is not modified after normalisation.
type Article struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	ImageURL    string            `json:"imageUrl"`
	PublishedAt time.Time         `json:"publishedAt,omitzero"`
	Source      Source            `json:"source"`
	Content     string            `json:"content"`
	Category    classify.Category `json:"category"`
}

// Result is one aggregation cycle.
type Result struct {
	Grid      []Article      `json:"grid"`
	Carousel  []Article      `json:"carousel"`
	Location  *location.Info `json:"location,omitempty"`
	FetchedAt time.Time      `json:"fetchedAt"`
	Failed    []string       `json:"failed,omitempty"`
	Stale     bool           `json:"stale,omitempty"`
}
