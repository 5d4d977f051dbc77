// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Researcher is a person, or a consortium, whose publications are
// tracked. ORCID is unique when set. Publications refer to a researcher
// through Author.Researcher.
type Researcher struct {
	Meta `yaml:",inline"`

	Family             string   `json:"family" yaml:"family"`
	FamilyNormalized   string   `json:"family_normalized" yaml:"family_normalized"`
	Given              string   `json:"given" yaml:"given"`
	GivenNormalized    string   `json:"given_normalized" yaml:"given_normalized"`
	Initials           string   `json:"initials" yaml:"initials"`
	InitialsNormalized string   `json:"initials_normalized" yaml:"initials_normalized"`
	ORCID              string   `json:"orcid,omitempty" yaml:"orcid,omitempty"`
	Affiliations       []string `json:"affiliations" yaml:"affiliations"`
}

// Name returns "Family Initials".
func (r *Researcher) Name() string {
	return strings.TrimSpace(r.Family + " " + r.Initials)
}

// Matches reports whether a may be r: the normalized family names are
// equal and the normalized initials agree over the shorter of the two.
func (r *Researcher) Matches(a Author) bool {
	if a.FamilyNormalized == "" || a.FamilyNormalized != r.FamilyNormalized {
		return false
	}
	n := min(len(a.InitialsNormalized), len(r.InitialsNormalized))
	return a.InitialsNormalized[:n] == r.InitialsNormalized[:n]
}
