package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Matcher is one independent extraction strategy. It returns the extracted
// value and true on a hit.
type Matcher interface {
	Match(text string) (string, bool)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(text string) (string, bool)

func (f MatcherFunc) Match(text string) (string, bool) { return f(text) }

// RegexMatcher captures Group of the first match of Re and passes it through Transform.
type RegexMatcher struct {
	Re        *regexp.Regexp
	Group     int
	Transform func(string) string
}

// Regex compiles pattern into a matcher returning capture group 1 (or the whole
// match when the pattern has no groups).
func Regex(pattern string, transform ...func(string) string) *RegexMatcher {
	re := regexp.MustCompile(pattern)
	m := &RegexMatcher{Re: re}
	if re.NumSubexp() > 0 {
		m.Group = 1
	}
	if len(transform) > 0 {
		m.Transform = transform[0]
	}
	return m
}

func (m *RegexMatcher) Match(text string) (string, bool) {
	sub := m.Re.FindStringSubmatch(text)
	if sub == nil || m.Group >= len(sub) {
		return "", false
	}
	v := strings.TrimSpace(sub[m.Group])
	if m.Transform != nil {
		v = m.Transform(v)
	}
	if v == "" {
		return "", false
	}
	return v, true
}

// LiteralMatcher returns the first value of Values (in list order) contained in
// the text. Containment is a case-sensitive substring test.
type LiteralMatcher struct {
	Values []string
}

func Literal(values ...string) *LiteralMatcher {
	return &LiteralMatcher{Values: values}
}

func (m *LiteralMatcher) Match(text string) (string, bool) {
	for _, v := range m.Values {
		if strings.Contains(text, v) {
			return v, true
		}
	}
	return "", false
}

// LineKeywordMatcher returns the first line (trimmed) that contains any of
// Keywords case-insensitively and is at most MaxLen characters long.
// It is first-match, not best-match.
type LineKeywordMatcher struct {
	Keywords []string
	MaxLen   int
}

func (m *LineKeywordMatcher) Match(text string) (string, bool) {
	lowered := make([]string, len(m.Keywords))
	for i, k := range m.Keywords {
		lowered[i] = strings.ToLower(k)
	}
	for _, line := range strings.Split(text, "\n") {
		lowerLine := strings.ToLower(line)
		for _, k := range lowered {
			if !strings.Contains(lowerLine, k) {
				continue
			}
			clean := strings.TrimSpace(line)
			if m.MaxLen > 0 && utf8.RuneCountInString(clean) > m.MaxLen {
				break // same line, same length for every keyword
			}
			return clean, true
		}
	}
	return "", false
}

// FieldRule tries Matchers in priority order; the first hit wins.
type FieldRule struct {
	Field    string
	Matchers []Matcher
}

func (r FieldRule) Apply(text string) (string, bool) {
	for _, m := range r.Matchers {
		if v, ok := m.Match(text); ok {
			return v, true
		}
	}
	return "", false
}
