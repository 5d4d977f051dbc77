// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identifier classifies user-supplied publication identifiers.
package identifier

import (
	"regexp"
	"strings"
)

// Kind classifies an input identifier.
type Kind int

const (
	KindUnknown Kind = iota
	KindPMID
	KindDOI
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindPMID:
		return "pmid"
	case KindDOI:
		return "doi"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// DefaultPrefixes are stripped from input before classification.
var DefaultPrefixes = []string{
	"doi:",
	"pmid:",
	"pubmed:",
	"http://doi.org/",
	"https://doi.org/",
	"http://dx.doi.org/",
	"https://dx.doi.org/",
}

// Display URL templates.
var (
	PubMedURL = "https://www.ncbi.nlm.nih.gov/pubmed/%s"
	DOIURL    = "https://doi.org/%s"
)

// internalPattern matches the 32 lowercase hex characters of an IUID.
var internalPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// pmidPattern matches a positive integer without leading zeros.
var pmidPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

// Normalizer strips a configured set of prefixes and classifies the rest.
type Normalizer struct {
	Prefixes []string
}

// New returns a Normalizer for prefixes, or DefaultPrefixes when empty.
func New(prefixes []string) *Normalizer {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	return &Normalizer{Prefixes: prefixes}
}

// StripPrefix removes one leading recognized prefix, matched
// case-insensitively, and trims whitespace.
func (n *Normalizer) StripPrefix(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range n.Prefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

// Normalize classifies s and returns its canonical form. DOIs are
// lowercased; for KindUnknown the stripped input is returned.
func (n *Normalizer) Normalize(s string) (Kind, string) {
	s = n.StripPrefix(s)
	switch {
	case internalPattern.MatchString(s):
		return KindInternal, s
	case pmidPattern.MatchString(s):
		return KindPMID, s
	case strings.Contains(s, "/") && !strings.ContainsAny(s, " \t\r\n"):
		return KindDOI, strings.ToLower(s)
	default:
		return KindUnknown, s
	}
}

var defaultNormalizer = New(nil)

// Normalize classifies s using DefaultPrefixes.
func Normalize(s string) (Kind, string) {
	return defaultNormalizer.Normalize(s)
}

// StripPrefix removes one of DefaultPrefixes from s.
func StripPrefix(s string) string {
	return defaultNormalizer.StripPrefix(s)
}
