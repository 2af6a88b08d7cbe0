package shape

import (
	"strings"
	"unicode"
)

// RenameRule is a case convention applied to field and variant names.
type RenameRule string

const (
	RenameNone               RenameRule = ""
	RenameLowercase          RenameRule = "lowercase"
	RenameUppercase          RenameRule = "UPPERCASE"
	RenamePascalCase         RenameRule = "PascalCase"
	RenameCamelCase          RenameRule = "camelCase"
	RenameSnakeCase          RenameRule = "snake_case"
	RenameScreamingSnakeCase RenameRule = "SCREAMING_SNAKE_CASE"
	RenameKebabCase          RenameRule = "kebab-case"
	RenameScreamingKebabCase RenameRule = "SCREAMING-KEBAB-CASE"
)

// Valid reports whether r is a known rule.
func (r RenameRule) Valid() bool {
	switch r {
	case RenameNone, RenameLowercase, RenameUppercase, RenamePascalCase, RenameCamelCase,
		RenameSnakeCase, RenameScreamingSnakeCase, RenameKebabCase, RenameScreamingKebabCase:
		return true
	}
	return false
}

// Apply converts a Go identifier to the rule's convention.
func (r RenameRule) Apply(name string) string {
	if r == RenameNone {
		return name
	}
	words := splitWords(name)
	switch r {
	case RenameLowercase:
		return strings.ToLower(strings.Join(words, ""))
	case RenameUppercase:
		return strings.ToUpper(strings.Join(words, ""))
	case RenamePascalCase:
		for i, w := range words {
			words[i] = capitalize(w)
		}
		return strings.Join(words, "")
	case RenameCamelCase:
		for i, w := range words {
			if i == 0 {
				words[i] = strings.ToLower(w)
			} else {
				words[i] = capitalize(w)
			}
		}
		return strings.Join(words, "")
	case RenameSnakeCase:
		return strings.ToLower(strings.Join(words, "_"))
	case RenameScreamingSnakeCase:
		return strings.ToUpper(strings.Join(words, "_"))
	case RenameKebabCase:
		return strings.ToLower(strings.Join(words, "-"))
	case RenameScreamingKebabCase:
		return strings.ToUpper(strings.Join(words, "-"))
	}
	return name
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	rs := []rune(strings.ToLower(w))
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// splitWords breaks an identifier at case changes, digits boundaries and separators.
// Acronyms stay together: "HTTPServer" is "HTTP", "Server".
func splitWords(s string) []string {
	var words []string
	rs := []rune(s)
	start := 0
	flush := func(end int) {
		if end > start {
			words = append(words, string(rs[start:end]))
		}
	}
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if r == '_' || r == '-' || r == ' ' {
			flush(i)
			start = i + 1
			continue
		}
		if i == start {
			continue
		}
		prev := rs[i-1]
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsDigit(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
			flush(i)
			start = i
		}
	}
	flush(len(rs))
	return words
}
