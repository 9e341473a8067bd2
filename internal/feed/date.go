package feed

import (
	"fmt"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822,
	time.RFC822Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	time.RubyDate,
	"2006-01-02 15:04:05", // rss2json, UTC
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02",
}

// ParsePubDate tries the layouts feeds commonly use. Unparseable input
// returns the zero time and an error.
func ParsePubDate(pubDate string) (time.Time, error) {
	pubDate = strings.TrimSpace(pubDate)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, pubDate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date: %s", pubDate)
}
