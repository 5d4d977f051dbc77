// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Journal is a known journal. Title is unique.
type Journal struct {
	Meta `yaml:",inline"`

	Title string `json:"title" yaml:"title"`
	ISSN  string `json:"issn,omitempty" yaml:"issn,omitempty"`
	ISSNL string `json:"issn-l,omitempty" yaml:"issn-l,omitempty"`
}

// BlacklistEntry is a tombstone that prevents re-acquisition of a
// rejected publication.
type BlacklistEntry struct {
	Meta `yaml:",inline"`

	PMID  string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Title string `json:"title" yaml:"title"`
}

// LogEntry is an append-only audit record. Changed holds the shallow diff
// of the saved document; the modified timestamp is in Meta.
type LogEntry struct {
	Meta `yaml:",inline"`

	Doc     string         `json:"doc" yaml:"doc"`
	DocKind string         `json:"doc_kind,omitempty" yaml:"doc_kind,omitempty"`
	Account string         `json:"account,omitempty" yaml:"account,omitempty"`
	Changed map[string]any `json:"changed" yaml:"changed"`
}
