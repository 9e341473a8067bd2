// Package history looks up LGBTQ+ events that happened on a calendar date,
// merging a curated table with Wikipedia's on-this-day feed.
package history

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type Link struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type Event struct {
	Year       int    `json:"year"`
	Text       string `json:"text"`
	HTML       string `json:"html"`
	NoYearHTML string `json:"no_year_html,omitempty"`
	Links      []Link `json:"links,omitempty"`
	Image      string `json:"image,omitempty"`
	Source     string `json:"source,omitempty"`
	Date       string `json:"date,omitempty"`
}

var strictPolicy = bluemonday.StrictPolicy()

// StrippedText is the event HTML without markup, or Text when HTML is empty.
func (e Event) StrippedText() string {
	src := e.HTML
	if src == "" {
		src = e.Text
	}
	text := html.UnescapeString(strictPolicy.Sanitize(src))
	return strings.Join(strings.Fields(text), " ")
}

// MarshalJSON adds the derived strippedText field.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		StrippedText string `json:"strippedText"`
	}{plain(e), e.StrippedText()})
}

// curated is keyed "M-D" without zero padding.
var curated = map[string][]Event{
	"8-13": {{
		Year:       1961,
		Text:       "Berlin Wall construction begins, which had a significant impact on LGBTQ+ communities in East and West Berlin.",
		HTML:       "Berlin Wall construction begins, affecting LGBTQ+ communities who used West Berlin as a safe haven.",
		NoYearHTML: "Berlin Wall construction affecting LGBTQ+ communities in divided Berlin",
		Links:      []Link{{Title: "LGBTQ+ Life in Cold War Berlin", Link: "https://www.npr.org/2019/11/06/776752842/the-fall-of-the-berlin-wall-30-years-later"}},
		Image:      "https://upload.wikimedia.org/wikipedia/commons/thumb/5/5d/Berlinermauer.jpg/640px-Berlinermauer.jpg",
	}},
	"6-28": {{
		Year:       1969,
		Text:       "The Stonewall riots begin in New York City, marking a pivotal moment in the LGBTQ+ rights movement.",
		HTML:       "The Stonewall riots begin in New York City's Greenwich Village, led by trans women of color including Marsha P. Johnson and Sylvia Rivera.",
		NoYearHTML: "The Stonewall riots in New York City's Greenwich Village",
		Links:      []Link{{Title: "Stonewall Riots", Link: "https://www.history.com/topics/gay-rights/the-stonewall-riots"}},
		Image:      "https://upload.wikimedia.org/wikipedia/commons/thumb/3/3a/Stonewall_Inn_1969.jpg/640px-Stonewall_Inn_1969.jpg",
	}},
	"6-26": {{
		Year:       2015,
		Text:       "The U.S. Supreme Court legalizes same-sex marriage nationwide in Obergefell v. Hodges.",
		HTML:       "In a historic decision, the U.S. Supreme Court rules in favor of marriage equality in Obergefell v. Hodges.",
		NoYearHTML: "Supreme Court marriage equality ruling in Obergefell v. Hodges",
		Links:      []Link{{Title: "Obergefell v. Hodges", Link: "https://www.supremecourt.gov/opinions/14pdf/14-556_3204.pdf"}},
		Image:      "https://upload.wikimedia.org/wikipedia/commons/thumb/3/3e/Celebration_of_same-sex_marriage_ruling_SCOTUS_6-26-15.jpg/640px-Celebration_of_same-sex_marriage_ruling_SCOTUS_6-26-15.jpg",
	}},
	"12-1": {{
		Year:       1988,
		Text:       "The first World AIDS Day is observed globally.",
		HTML:       "The World Health Organization establishes World AIDS Day to raise awareness about HIV/AIDS.",
		NoYearHTML: "First World AIDS Day observation",
		Links:      []Link{{Title: "World AIDS Day History", Link: "https://www.worldaidsday.org/about"}},
		Image:      "https://upload.wikimedia.org/wikipedia/commons/thumb/8/83/Red_Ribbon.svg/640px-Red_Ribbon.svg.png",
	}},
	"10-11": {{
		Year:       1988,
		Text:       "The first National Coming Out Day is celebrated in the United States.",
		HTML:       "Robert Eichberg and Jean O'Leary establish National Coming Out Day to promote visibility.",
		NoYearHTML: "First National Coming Out Day celebration",
		Links:      []Link{{Title: "National Coming Out Day", Link: "https://www.hrc.org/resources/national-coming-out-day"}},
		Image:      "https://upload.wikimedia.org/wikipedia/commons/thumb/6/66/Gay_flag_8.svg/640px-Gay_flag_8.svg.png",
	}},
	"5-17": {{
		Year:       1990,
		Text:       "WHO removes homosexuality from the International Classification of Diseases.",
		HTML:       "The World Health Organization declassifies homosexuality as a mental disorder.",
		NoYearHTML: "WHO declassification of homosexuality",
		Links:      []Link{{Title: "IDAHOBIT History", Link: "https://may17.org/about/"}},
		Image:      "https://upload.wikimedia.org/wikipedia/commons/thumb/4/48/Gay_Pride_Flag.svg/640px-Gay_Pride_Flag.svg.png",
	}},
}

// Curated returns a copy of the curated events for month/day. It never fails;
// dates without entries return nil.
func Curated(month, day int) []Event {
	events := curated[curatedKey(month, day)]
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

func curatedKey(month, day int) string {
	return fmt.Sprintf("%d-%d", month, day)
}
