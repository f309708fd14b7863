package gate

import (
	"regexp"
	"strings"
)

// SubjectExtractor guesses which team or organization a piece of text
// concerns. It runs an ordered cascade: exact known-name lookup first, then
// club-suffix patterns, then possessive phrasing. Each rule is data, not
// control flow, so league vocabularies can grow without touching the logic.
type SubjectExtractor struct {
	known []string
	rules []subjectRule
}

type subjectRule struct {
	name    string
	pattern *regexp.Regexp
	group   int
}

var (
	clubSuffixPattern = regexp.MustCompile(
		`\b([A-ZÀ-Þ][\wÀ-ÿ.'-]*(?:\s+[A-ZÀ-Þ][\wÀ-ÿ.'-]*)*)\s+` +
			`(FC|CF|SC|AFC|BK|IF|United|City|Rovers|Wanderers|Albion|Athletic|Hotspur|Calcio)\b`)
	clubPrefixPattern = regexp.MustCompile(
		`\b(FC|AC|AS|SS|SV|VfB|VfL|RB|Real|Atlético|Borussia|Inter|Sporting|Olympique|Bayer|Athletic)\s+` +
			`([A-ZÀ-Þ][\wÀ-ÿ.'-]+)`)
	possessivePattern = regexp.MustCompile(
		`\b([A-ZÀ-Þ][\wÀ-ÿ.-]*(?:\s+[A-ZÀ-Þ][\wÀ-ÿ.-]*){0,2})['’]s\s`)
)

// NewSubjectExtractor builds the cascade. knownNames are matched first,
// case-insensitively, and returned in their configured form.
func NewSubjectExtractor(knownNames []string) *SubjectExtractor {
	known := make([]string, 0, len(knownNames))
	for _, n := range knownNames {
		if strings.TrimSpace(n) != "" {
			known = append(known, strings.TrimSpace(n))
		}
	}
	return &SubjectExtractor{
		known: known,
		rules: []subjectRule{
			{name: "club_suffix", pattern: clubSuffixPattern, group: 0},
			{name: "club_prefix", pattern: clubPrefixPattern, group: 0},
			{name: "possessive", pattern: possessivePattern, group: 1},
		},
	}
}

// Extract returns the best-effort subject, or "" when nothing matches.
func (e *SubjectExtractor) Extract(text string) string {
	lower := strings.ToLower(text)
	for _, name := range e.known {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	for _, rule := range e.rules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[rule.group])
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
