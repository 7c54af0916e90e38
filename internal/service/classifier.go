package service

import (
	"regexp"
	"strings"

	"github.com/noah-isme/changeboard-api/internal/models"
)

// Classification is the verb and item extracted from a note.
type Classification struct {
	Verb *models.Verb
	Item string
}

// verbStem maps a lowercase token prefix to its canonical verb.
type verbStem struct {
	prefix string
	verb   models.Verb
}

var verbStems = []verbStem{
	{prefix: "add", verb: models.VerbAdded},
	{prefix: "delete", verb: models.VerbDeleted},
	{prefix: "update", verb: models.VerbUpdated},
	{prefix: "change", verb: models.VerbChanged},
}

const verbTokens = `add(?:ed|s|d)?|delete(?:d|s)?|update(?:d|s)?|change(?:d|s)?`

// classifierRule matches a note and reports the verb token and the item text.
type classifierRule struct {
	name    string
	pattern *regexp.Regexp
	item    func(note string, groups []string) string
}

// Rules are evaluated in order; the first match wins.
var classifierRules = []classifierRule{
	{
		name:    "leading",
		pattern: regexp.MustCompile(`(?i)^(?:product\s+(?:update|copy)\s*:\s*)?\s*(` + verbTokens + `)\b\s*:?\s*(.+)$`),
		item: func(_ string, groups []string) string {
			return strings.TrimSpace(groups[2])
		},
	},
	{
		name:    "anywhere",
		pattern: regexp.MustCompile(`(?i)\b(` + verbTokens + `)\b`),
		item: func(note string, _ []string) string {
			return note
		},
	},
}

// NoteClassifier turns free-text change notes into a verb and item description.
type NoteClassifier struct {
	rules []classifierRule
}

// NewNoteClassifier returns a classifier over the built-in rules.
func NewNoteClassifier() *NoteClassifier {
	return &NoteClassifier{rules: classifierRules}
}

// Classify applies the rules to note. Notes without a verb keep their text as the item.
func (c *NoteClassifier) Classify(note string) Classification {
	text := strings.TrimSpace(note)
	if text == "" {
		return Classification{}
	}
	for _, rule := range c.rules {
		groups := rule.pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		verb, ok := canonicalVerb(groups[1])
		if !ok {
			continue
		}
		return Classification{Verb: &verb, Item: rule.item(text, groups)}
	}
	return Classification{Item: text}
}

func canonicalVerb(token string) (models.Verb, bool) {
	token = strings.ToLower(token)
	for _, stem := range verbStems {
		if strings.HasPrefix(token, stem.prefix) {
			return stem.verb, true
		}
	}
	return "", false
}
