package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tathagata1/Pipegent/core"
)

func wordCounter(_ *core.ToolContext, args map[string]any) (any, error) {
	text, err := stringArg(args, "text")
	if err != nil {
		return nil, err
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}

	return map[string]any{
		"words":        len(words),
		"characters":   len([]rune(text)),
		"unique_words": len(unique),
	}, nil
}

func sentenceCase(_ *core.ToolContext, args map[string]any) (any, error) {
	text, err := stringArg(args, "text")
	if err != nil {
		return nil, err
	}

	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return text, nil
	}

	r := []rune(stripped)
	head := cases.Upper(language.Und).String(string(r[0]))
	tail := cases.Lower(language.Und).String(string(r[1:]))
	return head + tail, nil
}

func camelCaseConverter(_ *core.ToolContext, args map[string]any) (any, error) {
	text, err := stringArg(args, "text")
	if err != nil {
		return nil, err
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	if len(parts) == 0 {
		return "", nil
	}

	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)

	var sb strings.Builder
	sb.WriteString(lower.String(parts[0]))
	for _, p := range parts[1:] {
		sb.WriteString(title.String(p))
	}
	return sb.String(), nil
}

// slugify folds accents (é -> e) before collapsing every run of characters
// outside [a-z0-9] into a single dash.
func slugify(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var sb strings.Builder
	dash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(sb.String(), "-")
}

func slugifyText(_ *core.ToolContext, args map[string]any) (any, error) {
	text, err := stringArg(args, "text")
	if err != nil {
		return nil, err
	}
	return slugify(text), nil
}
