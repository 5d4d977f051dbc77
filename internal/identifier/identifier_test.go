// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identifier

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantNorm string
	}{
		{"pmid bare", "8142349", KindPMID, "8142349"},
		{"pmid prefixed", "pmid:8142349", KindPMID, "8142349"},
		{"pmid pubmed prefix", "PubMed: 8142349", KindPMID, "8142349"},
		{"pmid leading zero", "08142349", KindUnknown, "08142349"},
		{"doi bare", "10.1016/J.Cell.2015.12.018", KindDOI, "10.1016/j.cell.2015.12.018"},
		{"doi prefix", "doi:10.1016/j.cell.2015.12.018", KindDOI, "10.1016/j.cell.2015.12.018"},
		{"doi url", "https://doi.org/10.1016/j.cell.2015.12.018", KindDOI, "10.1016/j.cell.2015.12.018"},
		{"doi dx url", "http://dx.doi.org/10.1016/j.cell.2015.12.018", KindDOI, "10.1016/j.cell.2015.12.018"},
		{"doi uppercase prefix", "DOI:10.1/X", KindDOI, "10.1/x"},
		{"internal", "0123456789abcdef0123456789abcdef", KindInternal, "0123456789abcdef0123456789abcdef"},
		{"internal uppercase is not internal", "0123456789ABCDEF0123456789ABCDEF", KindUnknown, "0123456789ABCDEF0123456789ABCDEF"},
		{"doi with space", "10.1/a b", KindUnknown, "10.1/a b"},
		{"unknown word", "not-an-id", KindUnknown, "not-an-id"},
		{"empty", "", KindUnknown, ""},
		{"whitespace trimmed", "  8142349  ", KindPMID, "8142349"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotKind, gotNorm := Normalize(tt.input)
			if gotKind != tt.wantKind {
				t.Errorf("Normalize(%q) kind = %v, want %v", tt.input, gotKind, tt.wantKind)
			}
			if gotNorm != tt.wantNorm {
				t.Errorf("Normalize(%q) norm = %q, want %q", tt.input, gotNorm, tt.wantNorm)
			}
		})
	}
}

func TestNormalizePrefixIdempotent(t *testing.T) {
	doi := "10.1038/s41586-024-07487-w"
	_, want := Normalize(doi)
	for _, p := range DefaultPrefixes {
		kind, got := Normalize(p + doi)
		if kind != KindDOI || got != want {
			t.Errorf("Normalize(%q) = %v %q, want doi %q", p+doi, kind, got, want)
		}
	}
}

func TestStripPrefixOnlyOnce(t *testing.T) {
	got := StripPrefix("doi:doi:10.1/x")
	if got != "doi:10.1/x" {
		t.Errorf("StripPrefix = %q, want %q", got, "doi:10.1/x")
	}
}

func TestCustomPrefixes(t *testing.T) {
	n := New([]string{"ref:"})
	kind, got := n.Normalize("ref:123")
	if kind != KindPMID || got != "123" {
		t.Errorf("Normalize = %v %q, want pmid 123", kind, got)
	}
	kind, _ = n.Normalize("pmid:123")
	if kind != KindUnknown {
		t.Errorf("Normalize(pmid:123) with custom prefixes = %v, want unknown", kind)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindPMID, "pmid"},
		{KindDOI, "doi"},
		{KindInternal, "internal"},
		{KindUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
