// Package fields turns a free-text assistant reply into application field
// assignments using per-language pattern tables.
package fields

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MinValueLength is the floor a cleaned value must exceed to be accepted.
const MinValueLength = 10

// Outcome classifies an extraction.
type Outcome string

const (
	Matched          Outcome = "matched"
	NoConfidentMatch Outcome = "no_confident_match"
)

// Result holds at most one value per field.
type Result struct {
	Language string
	Fields   map[string]string
	Outcome  Outcome
}

// Extractor dispatches to the table registered for a language tag and falls
// back to the default table for unknown tags.
type Extractor struct {
	tables   map[string]Table
	fallback string
}

// New returns an extractor with the English and German tables; unknown
// languages use English.
func New() *Extractor {
	e := &Extractor{tables: make(map[string]Table), fallback: English.Language}
	e.Register(English)
	e.Register(German)
	return e
}

// Register adds or replaces the table for t.Language.
func (e *Extractor) Register(t Table) {
	e.tables[normalizeLanguage(t.Language)] = t
}

func (e *Extractor) table(language string) Table {
	if t, ok := e.tables[normalizeLanguage(language)]; ok {
		return t
	}
	return e.tables[e.fallback]
}

var defaultExtractor = New()

// Extract runs the default extractor.
func Extract(text, language string) Result {
	return defaultExtractor.Extract(text, language)
}

type mark struct {
	field      string
	start, end int
}

// Extract applies labeled-section patterns first and the quoted fallbacks
// only for fields no section produced.
func (e *Extractor) Extract(text, language string) Result {
	t := e.table(language)
	res := Result{Language: t.Language, Fields: make(map[string]string), Outcome: NoConfidentMatch}
	if strings.TrimSpace(text) == "" {
		return res
	}

	marks := headerMarks(text, t.Sections)
	for _, sec := range t.Sections {
		if _, done := res.Fields[sec.Field]; done {
			continue
		}
	headers:
		for _, h := range sec.Headers {
			for _, loc := range h.FindAllStringIndex(text, -1) {
				body := text[loc[1]:nextMarkStart(marks, loc[1], len(text))]
				if v, ok := accept(clean(body, t.LeadIns)); ok {
					res.Fields[sec.Field] = v
					break headers
				}
			}
		}
	}

	for _, fb := range t.Fallbacks {
		if _, done := res.Fields[fb.Field]; done {
			continue
		}
		m := fb.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v, ok := accept(clean(m[1], t.LeadIns)); ok {
			res.Fields[fb.Field] = v
		}
	}

	if len(res.Fields) > 0 {
		res.Outcome = Matched
	}
	return res
}

// headerMarks finds every recognized header in text, ordered by position.
func headerMarks(text string, sections []Section) []mark {
	var marks []mark
	for _, sec := range sections {
		for _, h := range sec.Headers {
			for _, loc := range h.FindAllStringIndex(text, -1) {
				marks = append(marks, mark{field: sec.Field, start: loc[0], end: loc[1]})
			}
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].start < marks[j].start })
	return marks
}

// nextMarkStart returns where the section starting at from ends.
func nextMarkStart(marks []mark, from, limit int) int {
	for _, m := range marks {
		if m.start >= from {
			return m.start
		}
	}
	return limit
}

var (
	emphasis     = regexp.MustCompile("\\*\\*|__|\\*|`")
	headingHash  = regexp.MustCompile(`(?m)^[ \t]*#+[ \t]*`)
	quotePairs   = [][2]string{{`"`, `"`}, {"“", "”"}, {"„", "“"}, {"«", "»"}, {"'", "'"}, {"‘", "’"}}
	collapseRuns = regexp.MustCompile(`[ \t]+`)
)

func clean(s string, leadIns []*regexp.Regexp) string {
	s = emphasis.ReplaceAllString(s, "")
	s = headingHash.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	for stripped := true; stripped; {
		stripped = false
		for _, li := range leadIns {
			if loc := li.FindStringIndex(s); loc != nil && loc[1] > 0 {
				s = strings.TrimSpace(s[loc[1]:])
				stripped = true
			}
		}
	}

	s = leadingQuoted(s)
	s = unquote(s)
	s = collapseRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// leadingQuoted keeps only the quoted span when a value opens with a quote
// and trailing prose follows the closing mark.
func leadingQuoted(s string) string {
	for _, q := range quotePairs[:4] {
		if !strings.HasPrefix(s, q[0]) {
			continue
		}
		rest := s[len(q[0]):]
		if end := strings.Index(rest, q[1]); end > 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return s
}

func unquote(s string) string {
	for {
		trimmed := false
		for _, q := range quotePairs {
			if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
				s = strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
				trimmed = true
			}
		}
		if !trimmed {
			return s
		}
	}
}

func accept(v string) (string, bool) {
	if utf8.RuneCountInString(v) <= MinValueLength {
		return "", false
	}
	return v, true
}

func normalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
