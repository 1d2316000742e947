// Package text resolves phrase tokens to display strings.
package text

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aelexs/fuzzyclock/internal/fuzzy"
)

// Resolver turns a token into display text. Absent resolves to "".
type Resolver interface {
	Resolve(t fuzzy.Token) string
}

// Table is a Resolver backed by a fixed token -> string map.
type Table struct {
	tag   language.Tag
	words map[fuzzy.Token]string
}

// NewTable builds a resolver for tag. Tokens missing from words resolve to
// their symbolic name so a gap in a table is visible rather than blank.
func NewTable(tag language.Tag, words map[fuzzy.Token]string) *Table {
	return &Table{tag: tag, words: words}
}

func (t *Table) Resolve(tok fuzzy.Token) string {
	if tok == fuzzy.Absent {
		return ""
	}
	if w, ok := t.words[tok]; ok {
		return w
	}
	return tok.String()
}

// Language is the tag the table was built for.
func (t *Table) Language() language.Tag { return t.tag }

var englishNumbers = [...]string{
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
	"eighteen", "nineteen", "twenty", "twenty-one", "twenty-two", "twenty-three",
	"twenty-four", "twenty-five", "twenty-six", "twenty-seven", "twenty-eight",
	"twenty-nine",
}

// English is the built-in resolver.
var English = newEnglish()

func newEnglish() *Table {
	words := map[fuzzy.Token]string{
		fuzzy.Quarter:  "quarter",
		fuzzy.Half:     "half",
		fuzzy.Noon:     "noon",
		fuzzy.Midnight: "midnight",
		fuzzy.Past:     "past",
		fuzzy.To:       "to",
		fuzzy.OClock:   "o'clock",
		fuzzy.Hundred:  "hundred",
	}
	for i, w := range englishNumbers {
		words[fuzzy.Number(i+1)] = w
	}
	return NewTable(language.English, words)
}

var (
	supported = []language.Tag{language.English}
	matcher   = language.NewMatcher(supported)
	tables    = map[language.Tag]*Table{language.English: English}
)

// Lookup returns the best resolver for an Accept-Language style string
// ("en-GB", "de, en;q=0.8"). English is the fallback.
func Lookup(accept string) *Table {
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		return English
	}
	_, idx, _ := matcher.Match(prefs...)
	if t, ok := tables[supported[idx]]; ok {
		return t
	}
	return English
}

// Sentence joins the non-empty slots of p in display order: minute,
// separator, hour.
func Sentence(r Resolver, p fuzzy.Phrase) string {
	parts := make([]string, 0, 3)
	for _, tok := range p.Slots() {
		if w := r.Resolve(tok); w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, " ")
}

// Caption is Sentence with its first letter upper-cased for tag, e.g.
// "Twenty-five to five".
func Caption(tag language.Tag, r Resolver, p fuzzy.Phrase) string {
	s := Sentence(r, p)
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(tag).String(s[:size]) + s[size:]
}
