// Package analysis applies document-type-specific heuristics to extracted text
// to surface fields a reviewer needs: institution name, identifier numbers,
// award year and program, amounts and receipt references.
package analysis

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/docverify/constants"
)

// Result is the heuristic reading of one document's text.
type Result struct {
	TextLength          int
	WordCount           int
	HasContent          bool
	ConfidenceLevel     constants.ConfidenceLevel
	DetectedInstitution *string
	DetectedFields      map[string]string
}

// Analyzer holds the extraction grammar. It is immutable after construction
// and safe for concurrent use.
type Analyzer struct {
	rules       Rules
	institution Matcher
}

type Option func(*Analyzer)

// WithRules appends rules after the existing ones for one document type.
func WithRules(dt constants.DocumentType, rules ...FieldRule) Option {
	return func(a *Analyzer) {
		a.rules[dt] = append(slices.Clone(a.rules[dt]), rules...)
	}
}

// WithInstitutionMatcher replaces the institution detector.
func WithInstitutionMatcher(m Matcher) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.institution = m
		}
	}
}

// New builds an Analyzer on top of DefaultRules.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		rules: DefaultRules(),
		institution: &LineKeywordMatcher{
			Keywords: InstitutionKeywords,
			MaxLen:   MaxInstitutionLen,
		},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze runs the type-independent checks and then the rules for docType.
// Unknown document types only get the type-independent part.
func (a *Analyzer) Analyze(text string, docType constants.DocumentType) Result {
	text = norm.NFC.String(text)
	words := len(strings.Fields(text))

	res := Result{
		TextLength:      utf8.RuneCountInString(text),
		WordCount:       words,
		HasContent:      utf8.RuneCountInString(strings.TrimSpace(text)) > 50,
		ConfidenceLevel: LevelForWords(words),
		DetectedFields:  map[string]string{},
	}

	if inst, ok := a.institution.Match(text); ok {
		res.DetectedInstitution = &inst
	}

	for _, rule := range a.rules[docType] {
		if v, ok := rule.Apply(text); ok {
			res.DetectedFields[rule.Field] = v
		}
	}
	return res
}

// LevelForWords buckets a word count into a confidence level.
func LevelForWords(words int) constants.ConfidenceLevel {
	switch {
	case words > 100:
		return constants.ConfidenceHigh
	case words > 30:
		return constants.ConfidenceMedium
	default:
		return constants.ConfidenceLow
	}
}
