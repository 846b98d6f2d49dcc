package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxWordLen caps normalized chat words.
const MaxWordLen = 20

func isZeroWidth(r rune) bool {
	return (r >= '\u200b' && r <= '\u200d') || r == '\ufeff'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\''
}

// Normalize reduces raw input to a single chat token: NFKC fold, zero-width
// strip, exactly one whitespace-free word, edge punctuation removed, only
// letters, digits, hyphen and apostrophe kept, capped at MaxWordLen runes.
// Returns "" when nothing word-like remains.
func Normalize(raw string) string {
	s := norm.NFKC.String(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	s = strings.Map(func(r rune) rune {
		if isZeroWidth(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return ""
	}

	// one token only; internal whitespace means multiple words
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return ""
	}

	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	s = strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return -1
	}, s)

	if strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) < 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) > MaxWordLen {
		runes = runes[:MaxWordLen]
	}

	return string(runes)
}

// equalFold compares two already-normalized words case-insensitively.
func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
