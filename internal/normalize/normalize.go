// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize provides the text folding used for case-insensitive
// uniqueness and search index keys.
package normalize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ASCII decomposes s, drops combining marks and any remaining non-ASCII
// runes. "Ångström" becomes "Angstrom".
func ASCII(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Value returns the normalized form of a display string: ASCII-folded,
// lowercased, whitespace-collapsed.
func Value(s string) string {
	return strings.ToLower(Whitespace(ASCII(s)))
}

// Whitespace trims s and collapses internal runs of whitespace to one space.
func Whitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// removed are stripped from titles before they are split into words.
const removed = "-.:,?()$"

// stopWords are not indexed as title words.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"but": true, "by": true, "can": true, "for": true, "from": true,
	"into": true, "in": true, "is": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "to": true, "using": true, "with": true,
}

// StripPunctuation replaces each character of the removed set by a space.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(removed, r) {
			return ' '
		}
		return r
	}, s)
}

// IsStopWord reports whether w is excluded from title indexing.
func IsStopWord(w string) bool {
	return stopWords[w]
}

// Words returns the distinct index words of s in order of first
// occurrence: normalized, punctuation stripped, stop words dropped.
func Words(s string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.Fields(StripPunctuation(Value(s))) {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// LongestWords returns up to n of the longest words of the ASCII-lowercased
// title, ties broken alphabetically, sorted for use as a grouping key.
func LongestWords(title string, n int) []string {
	words := strings.Fields(StripPunctuation(strings.ToLower(ASCII(title))))
	sort.SliceStable(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	out := append([]string(nil), words...)
	sort.Strings(out)
	return out
}
