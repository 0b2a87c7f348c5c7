package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Package-level compiled regex pattern for performance
var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// normalizeText lowercases and collapses whitespace
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = multipleSpacesRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// containsPhrase reports whether phrase occurs in text with a word boundary on both sides.
// A boundary is the edge of the text or any rune that is neither a letter nor a digit,
// so "tesla," and "(tesla)" match "tesla" but "teslas" does not.
func containsPhrase(text, phrase string) bool {
	if phrase == "" || len(phrase) > len(text) {
		return false
	}

	for start := 0; start <= len(text)-len(phrase); {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(phrase)

		if boundaryBefore(text, idx) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[idx:])
		start = idx + size
	}
	return false
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !isWordRune(r)
}

func boundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// looseTitleMatch is the case-insensitive either-way substring test used by title overrides
func looseTitleMatch(a, b string) bool {
	a = normalizeText(a)
	b = normalizeText(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
