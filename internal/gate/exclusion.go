package gate

import "strings"

// exclusionList stores lowercased phrases whose presence marks content as
// out of scope regardless of anything else in the text.
type exclusionList struct {
	phrases []string
}

func newExclusionList(patterns []string) *exclusionList {
	list := &exclusionList{}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		list.phrases = append(list.phrases, value)
	}
	return list
}

// Matches reports whether the lowercased text contains any excluded phrase.
func (l *exclusionList) Matches(lower string) (string, bool) {
	for _, p := range l.phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// defaultExclusions covers topics the monitored vocabulary would otherwise
// false-positive on: other sports, esports, and retrospective content.
var defaultExclusions = []string{
	"fantasy tips",
	"esports",
	"e-sports",
	"video game",
	"fifa 2",
	"horse racing",
	"cricket",
	"darts",
	"on this day",
	"throwback",
	"obituary",
	"transfer rumour roundup",
}
