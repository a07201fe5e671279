package fields

import (
	"regexp"

	"github.com/zhouzirui/job-voice/backend/internal/model/application"
)

// Section is a labeled block in an assistant reply that carries one field.
// Headers are tried in order, the most specific first.
type Section struct {
	Field   string
	Headers []*regexp.Regexp
}

// Fallback matches looser "for your <label>:" phrasing followed by a quoted
// span. The pattern's first capture group is the value.
type Fallback struct {
	Field   string
	Pattern *regexp.Regexp
}

// Table is the pattern set for one language.
type Table struct {
	Language  string
	Sections  []Section
	LeadIns   []*regexp.Regexp
	Fallbacks []Fallback
}

// header builds a line-anchored, case-insensitive section header pattern that
// tolerates markdown emphasis around the label and a trailing colon.
func header(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t>#*_-]*` + label + `[ \t*_]*:[ \t*_]*`)
}

func leadIn(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^\s*(?:` + phrase + `)\s*:?\s*`)
}

// quoted matches a double-quoted span in any of the common quote styles.
const quoted = `\s*[:：]\s*["“„«]([^"”“»]+)["”“»]`

func fallback(field, label string) Fallback {
	return Fallback{Field: field, Pattern: regexp.MustCompile(`(?i)` + label + quoted)}
}

const apos = `['’]`

// English is the default table.
var English = Table{
	Language: "en",
	Sections: []Section{
		{
			Field: application.FieldKeySkills,
			Headers: []*regexp.Regexp{
				header(`key skills\s*(?:&|and)\s*experience`),
				header(`skills\s*(?:&|and)\s*experience`),
				header(`key skills`),
			},
		},
		{
			Field: application.FieldPersonalStatement,
			Headers: []*regexp.Regexp{
				header(`why you` + apos + `re a (?:good|great|strong) fit`),
				header(`why i` + apos + `m a (?:good|great|strong) fit`),
				header(`personal statement`),
			},
		},
	},
	LeadIns: []*regexp.Regexp{
		leadIn(`here` + apos + `s what i` + apos + `ll put`),
		leadIn(`here is what i` + apos + `ll put`),
		leadIn(`here is what i will put`),
		leadIn(`here` + apos + `s what i` + apos + `ll (?:add|write|save)`),
		leadIn(`here` + apos + `s (?:a|my) (?:draft|suggestion)`),
		leadIn(`i` + apos + `ll put`),
	},
	Fallbacks: []Fallback{
		fallback(application.FieldKeySkills, `for your key skills(?:\s*(?:&|and)\s*experience)?`),
		fallback(application.FieldPersonalStatement, `for your personal statement`),
		fallback(application.FieldCoverLetter, `for your cover letter`),
	},
}

// German covers replies produced for de sessions.
var German = Table{
	Language: "de",
	Sections: []Section{
		{
			Field: application.FieldKeySkills,
			Headers: []*regexp.Regexp{
				header(`wichtige fähigkeiten\s*(?:&|und)\s*erfahrungen?`),
				header(`(?:schlüssel|kern)kompetenzen\s*(?:&|und)\s*erfahrungen?`),
				header(`fähigkeiten\s*(?:&|und)\s*erfahrungen?`),
				header(`(?:schlüssel|kern)kompetenzen`),
			},
		},
		{
			Field: application.FieldPersonalStatement,
			Headers: []*regexp.Regexp{
				header(`warum sie (?:gut|hervorragend|bestens) passen`),
				header(`warum du (?:gut|hervorragend|bestens) passt`),
				header(`persönliche(?:s statement| erklärung)`),
			},
		},
	},
	LeadIns: []*regexp.Regexp{
		leadIn(`hier ist,? was ich eintragen werde`),
		leadIn(`hier ist,? was ich eintrage`),
		leadIn(`das trage ich ein`),
		leadIn(`hier ist mein (?:vorschlag|entwurf)`),
	},
	Fallbacks: []Fallback{
		fallback(application.FieldKeySkills, `für (?:ihre|deine) (?:wichtigsten )?(?:fähigkeiten|kompetenzen)(?:\s*(?:&|und)\s*erfahrungen?)?`),
		fallback(application.FieldPersonalStatement, `für (?:ihr|dein) persönliches statement`),
	},
}
