package plan

import "strings"

// fillerKeywords mark conversational steps that do no work.
var fillerKeywords = []string{
	"greet",
	"hello",
	"hi",
	"thank",
	"assist you today",
	"offer further assistance",
	"wait for",
	"check in",
}

// IsFiller reports whether step contains any filler keyword, compared
// case-insensitively as plain substrings. Short keywords such as "hi" also
// match inside longer words ("this", "highest").
func IsFiller(step string) bool {
	lowered := strings.ToLower(step)
	for _, kw := range fillerKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// MentionsTool reports whether step names one of tools, case-insensitively.
func MentionsTool(step string, tools []string) bool {
	lowered := strings.ToLower(step)
	for _, name := range tools {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(lowered, name) {
			return true
		}
	}
	return false
}
