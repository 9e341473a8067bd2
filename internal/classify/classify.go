package classify

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category represents an article classification.
type Category string

const (
	Politics      Category = "Rights & Politics"
	Entertainment Category = "Entertainment"
	Health        Category = "Health"
	Local         Category = "Local News"
	General       Category = "LGBTQ+ News"
)

// AllCategories returns all valid categories in canonical order.
func AllCategories() []Category {
	return []Category{Politics, Entertainment, Health, Local, General}
}

// Known reports whether c is one of AllCategories.
func Known(c Category) bool {
	for _, k := range AllCategories() {
		if k == c {
			return true
		}
	}
	return false
}

var violenceKeywords = []string{
	"killed", "shooting", "shot", "murder", "murdered", "death", "died", "attack", "attacked",
	"violence", "violent", "assault", "assaulted", "stabbed", "stabbing", "bomb", "bombing",
	"terror", "terrorist", "hate crime", "beaten", "beating", "injured", "injury", "wounded",
	"blood", "funeral", "memorial", "tragedy", "tragic", "victim", "victims", "suspect",
	"arrested", "police", "investigation", "crime", "criminal", "charges", "charged", "guilty",
	"verdict", "trial", "prison", "jail", "sentenced", "conviction", "abuse", "abused",
	"harassment", "harassed", "threat", "threatened", "dangerous", "emergency", "crisis",
	"disaster", "accident", "crash", "collision", "fire", "explosion", "evacuation", "rescue",
	"ambulance", "hospital emergency", "intensive care", "critical condition",
}

var politicalKeywords = []string{
	"court", "ruling", "legislation", "bill", "law", "legal", "policy", "government",
	"political", "politics", "congress", "senate", "parliament", "election", "vote", "voting",
	"campaign", "candidate", "president", "minister", "judge", "supreme court", "ban", "banned",
	"protect", "protection", "discrimination", "equality", "marriage equality",
	"same-sex marriage", "adoption", "civil rights", "human rights", "transgender rights",
	"gay rights", "lesbian rights", "bisexual rights", "lgbtq rights", "anti-lgbtq", "anti-gay",
	"anti-trans", "conversion therapy ban", "bathroom bill", "don't say gay",
	"religious freedom", "first amendment", "constitutional", "federal", "state law",
	"local law", "ordinance", "referendum", "ballot", "lawsuit", "legal challenge",
}

var healthKeywords = []string{
	"health", "healthcare", "medical", "medicine", "doctor", "hospital", "treatment", "therapy",
	"mental health", "wellness", "surgery", "clinic", "patient", "disease", "condition",
	"diagnosis", "prescription", "vaccine", "hormone", "transition", "gender affirming care",
	"hrt", "hormone replacement", "top surgery", "bottom surgery", "gender dysphoria",
	"sexual health", "prep", "hiv", "aids", "std", "sti", "transgender health", "trans health",
	"gender clinic", "endocrinologist", "mastectomy", "testosterone", "estrogen",
	"puberty blockers", "medical transition", "surgical transition", "conversion therapy",
	"reparative therapy", "affirmative therapy", "lgbtq therapy", "crisis", "suicide",
	"depression", "anxiety", "self harm", "mental health support",
}

var entertainmentKeywords = []string{
	"netflix", "hulu", "disney+", "disney plus", "amazon prime", "streaming service",
	"tv series", "television series", "tv show premiere", "season finale", "new episode",
	"binge watch", "actor stars", "actress stars", "celebrity couple", "red carpet",
	"award show", "oscar winner", "emmy winner", "grammy winner", "music video", "new album",
	"concert tour", "broadway show", "theater production", "drag queen", "drag king",
	"rupaul", "drag race", "queer eye", "pose tv", "euphoria hbo", "heartstopper netflix",
	"love simon", "moonlight film", "carol movie", "brokeback mountain", "paris is burning",
	"orange is the new black", "transparent amazon", "sense8", "schitt's creek", "it's a sin",
	"frank ocean", "lil nas x", "troye sivan", "lady gaga", "elton john", "david bowie",
	"freddie mercury", "queer cinema", "lgbtq film", "gay movie", "lesbian film", "queer show",
	"lgbtq show", "entertainment news", "hollywood news", "celebrity news", "pop culture",
	"film festival", "movie premiere", "box office", "soundtrack", "casting", "filming",
	"production", "director", "producer", "screenwriter",
}

// otherCountryKeywords are checked against Local News candidates: an article
// mentioning any of these besides the hinted country is not local.
var otherCountryKeywords = []string{
	"united states", "america", "american", "germany", "german", "france", "french",
	"canada", "canadian", "australia", "australian",
}

// FocusAliases maps short CLI flags to full category names.
var FocusAliases = map[string]Category{
	"politics":      Politics,
	"entertainment": Entertainment,
	"health":        Health,
	"local":         Local,
	"general":       General,
}

// ResolveAlias maps a CLI alias to a Category.
func ResolveAlias(alias string) (Category, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if cat, ok := FocusAliases[alias]; ok {
		return cat, nil
	}
	// Also accept full category names (case-insensitive)
	for _, cat := range AllCategories() {
		if strings.EqualFold(string(cat), alias) {
			return cat, nil
		}
	}
	valid := make([]string, 0, len(FocusAliases))
	for k := range FocusAliases {
		valid = append(valid, k)
	}
	return "", fmt.Errorf("unknown category %q (valid: %s)", alias, strings.Join(valid, ", "))
}

// Text is the lower-cased haystack a rule inspects.
type Text struct {
	lower string
}

// NewText joins title, description and content the way every rule sees them.
func NewText(title, description, content string) Text {
	return Text{lower: strings.ToLower(title + " " + description + " " + content)}
}

// Has reports whether any keyword occurs as a whole word.
func (t Text) Has(keywords []string) bool {
	for _, kw := range keywords {
		if countWord(t.lower, strings.ToLower(kw)) > 0 {
			return true
		}
	}
	return false
}

// Hits counts whole-word occurrences of all keywords.
func (t Text) Hits(keywords []string) int {
	n := 0
	for _, kw := range keywords {
		n += countWord(t.lower, strings.ToLower(kw))
	}
	return n
}

func countWord(s, word string) int {
	if word == "" {
		return 0
	}
	n := 0
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], word)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(word)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			n++
		}
		i = start + 1
	}
	return n
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

// Rule inspects text and either decides a category or passes.
type Rule struct {
	Name  string
	Match func(Text) (Category, bool)
}

// LocalHint carries the reader's country for Local News detection.
type LocalHint struct {
	Country  string
	Keywords []string
}

// Rules returns the ordered rule list. With a non-nil hint the Local News
// rule runs first.
func Rules(hint *LocalHint) []Rule {
	var rules []Rule
	if hint != nil && len(hint.Keywords) > 0 {
		rules = append(rules, localRule(*hint))
	}
	return append(rules,
		Rule{Name: "violence", Match: func(t Text) (Category, bool) {
			if !t.Has(violenceKeywords) {
				return "", false
			}
			// Violent stories are never entertainment.
			if t.Has(politicalKeywords) {
				return Politics, true
			}
			return General, true
		}},
		Rule{Name: "politics", Match: func(t Text) (Category, bool) {
			return Politics, t.Has(politicalKeywords) && !t.Has(entertainmentKeywords)
		}},
		Rule{Name: "health", Match: func(t Text) (Category, bool) {
			return Health, t.Has(healthKeywords) && !t.Has(entertainmentKeywords)
		}},
		Rule{Name: "entertainment", Match: func(t Text) (Category, bool) {
			ok := t.Has(entertainmentKeywords) && !t.Has(politicalKeywords) && !t.Has(healthKeywords)
			return Entertainment, ok
		}},
		Rule{Name: "mixed-politics", Match: func(t Text) (Category, bool) {
			return mixed(t, politicalKeywords, Politics)
		}},
		Rule{Name: "mixed-health", Match: func(t Text) (Category, bool) {
			return mixed(t, healthKeywords, Health)
		}},
	)
}

// mixed settles text that matches both a serious set and the entertainment
// set by hit count. Ties go to the serious category.
func mixed(t Text, serious []string, cat Category) (Category, bool) {
	if !t.Has(serious) || !t.Has(entertainmentKeywords) {
		return "", false
	}
	if t.Hits(serious) >= t.Hits(entertainmentKeywords) {
		return cat, true
	}
	return Entertainment, true
}

func localRule(hint LocalHint) Rule {
	own := map[string]bool{strings.ToLower(hint.Country): true}
	for _, kw := range hint.Keywords {
		own[strings.ToLower(kw)] = true
	}
	var others []string
	for _, c := range otherCountryKeywords {
		if !own[c] {
			others = append(others, c)
		}
	}
	return Rule{Name: "local", Match: func(t Text) (Category, bool) {
		return Local, t.Has(hint.Keywords) && !t.Has(others)
	}}
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules []Rule
}

// New builds a classifier. hint may be nil.
func New(hint *LocalHint) *Classifier {
	return &Classifier{rules: Rules(hint)}
}

// Classify determines the category for an article. Returns General when no
// rule matches.
func (c *Classifier) Classify(title, description, content string) Category {
	t := NewText(title, description, content)
	for _, r := range c.rules {
		if cat, ok := r.Match(t); ok {
			return cat
		}
	}
	return General
}

// Classify categorizes without a location hint.
func Classify(title, description, content string) Category {
	return New(nil).Classify(title, description, content)
}
