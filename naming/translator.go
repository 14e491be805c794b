// Package naming converts attribute keys between the snake_case spelling used
// by storage and the camelCase spelling used by application code.
//
// Only keys are rewritten. Values are copied by reference and never inspected.
// Round trips are guaranteed for plain snake_case identifiers: no repeated,
// leading or trailing underscores and no digits next to an underscore. Keys
// with consecutive upper-case runes or punctuation convert without error but
// may not come back to their original spelling.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Attributes is the attribute mapping produced and consumed by translators.
type Attributes = map[string]any

// Translator rewrites attribute keys between storage and application form.
type Translator interface {
	ToInternal(attrs Attributes) Attributes
	ToExternal(attrs Attributes) Attributes
}

// CaseTranslator maps snake_case storage keys to camelCase and back.
type CaseTranslator struct{}

func (CaseTranslator) ToInternal(attrs Attributes) Attributes {
	return ToInternal(attrs)
}

func (CaseTranslator) ToExternal(attrs Attributes) Attributes {
	return ToExternal(attrs)
}

// IdentityTranslator copies attributes without touching keys.
type IdentityTranslator struct{}

func (IdentityTranslator) ToInternal(attrs Attributes) Attributes {
	return rekey(attrs, func(key string) string { return key })
}

func (IdentityTranslator) ToExternal(attrs Attributes) Attributes {
	return rekey(attrs, func(key string) string { return key })
}

// ToInternal returns a new mapping whose keys are camelized. When two keys
// collapse to the same spelling the later one in iteration order wins.
func ToInternal(attrs Attributes) Attributes {
	return rekey(attrs, Camelize)
}

// ToExternal returns a new mapping whose keys are underscored.
func ToExternal(attrs Attributes) Attributes {
	return rekey(attrs, Underscore)
}

// Camelize converts foo_bar_baz to fooBarBaz. The key is split on
// underscores, the first segment is lower-cased and every later segment is
// capitalized, so a leading underscore capitalizes the first word. Keys
// without an underscore are returned unchanged.
func Camelize(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	segments := strings.Split(key, "_")
	var b strings.Builder
	b.Grow(len(key))
	b.WriteString(strings.ToLower(segments[0]))
	for _, segment := range segments[1:] {
		if segment == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(segment)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(segment[size:])
	}
	return b.String()
}

// Underscore converts fooBarBaz to foo_bar_baz. Upper-case runes are lowered
// and, except in first position, prefixed with an underscore.
func Underscore(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rekey(attrs Attributes, convert func(string) string) Attributes {
	out := make(Attributes, len(attrs))
	for key, value := range attrs {
		out[convert(key)] = value
	}
	return out
}
