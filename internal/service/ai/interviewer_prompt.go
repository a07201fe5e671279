package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/job-voice/backend/internal/model/job"
)

// PromptTemplate holds the language-specific parts of the interviewer prompt.
type PromptTemplate struct {
	Role          string
	JobHeading    string
	Rules         []string
	SkillsLabel   string
	FitLabel      string
	LeadIn        string
	UnknownJobMsg string
}

var templates = map[string]PromptTemplate{
	"en": {
		Role:       "You are a friendly internal mobility coach helping an employee apply for an internal position. Keep answers short and conversational, as they are read aloud.",
		JobHeading: "Position",
		Rules: []string{
			"Ask one question at a time about the employee's experience and motivation.",
			"Never invent facts about the employee.",
			"Once you have enough detail, summarize it for the application form using the two labeled sections below, each followed by a colon.",
			"Write each section as plain prose without quotation marks.",
		},
		SkillsLabel:   "Key Skills & Experience",
		FitLabel:      "Why You're a Good Fit",
		LeadIn:        "Here's what I'll put:",
		UnknownJobMsg: "The position details are not available; ask the employee which role they are interested in.",
	},
	"de": {
		Role:       "Du bist ein freundlicher Coach für interne Mobilität und hilfst Mitarbeitenden, sich auf eine interne Stelle zu bewerben. Antworte kurz und im Gesprächston, da deine Antworten vorgelesen werden. Antworte auf Deutsch.",
		JobHeading: "Stelle",
		Rules: []string{
			"Stelle jeweils nur eine Frage zur Erfahrung und Motivation.",
			"Erfinde keine Fakten über die Person.",
			"Sobald genug Details vorliegen, fasse sie für das Bewerbungsformular in den beiden folgenden Abschnitten zusammen, jeweils gefolgt von einem Doppelpunkt.",
			"Schreibe jeden Abschnitt als Fließtext ohne Anführungszeichen.",
		},
		SkillsLabel:   "Wichtige Fähigkeiten & Erfahrungen",
		FitLabel:      "Warum Sie gut passen",
		LeadIn:        "Hier ist, was ich eintragen werde:",
		UnknownJobMsg: "Die Stellendetails sind nicht verfügbar; frage, für welche Stelle sich die Person interessiert.",
	},
}

func templateFor(language string) (string, PromptTemplate) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		lang = lang[:idx]
	}
	if t, ok := templates[lang]; ok {
		return lang, t
	}
	return "en", templates["en"]
}

// BuildSystemPrompt renders the interviewer prompt for one position. The
// section labels match what the field extractor recognizes.
func BuildSystemPrompt(language string, j job.Job) string {
	lang, t := templateFor(language)
	localized := j.Localized(lang)

	var b strings.Builder
	b.WriteString(t.Role)
	b.WriteString("\n\n")

	if localized.ID == "" && localized.Title == "" {
		b.WriteString(t.UnknownJobMsg)
	} else {
		fmt.Fprintf(&b, "%s: %s", t.JobHeading, localized.Title)
		if localized.Department != "" {
			fmt.Fprintf(&b, " (%s)", localized.Department)
		}
		if localized.Location != "" {
			fmt.Fprintf(&b, ", %s", localized.Location)
		}
		b.WriteString("\n")
		if localized.Description != "" {
			b.WriteString(localized.Description)
			b.WriteString("\n")
		}
		if localized.Requirements != "" {
			b.WriteString(localized.Requirements)
			b.WriteString("\n")
		}
		if localized.GrowthPath != "" {
			b.WriteString(localized.GrowthPath)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	for _, rule := range t.Rules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%s\n%s:\n...\n\n%s:\n...", t.LeadIn, t.SkillsLabel, t.FitLabel)
	return b.String()
}
