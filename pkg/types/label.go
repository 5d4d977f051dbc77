// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"sort"
)

// Label is an organizational tag attached to publications.
type Label struct {
	Meta `yaml:",inline"`

	Value           string `json:"value" yaml:"value"`
	NormalizedValue string `json:"normalized_value" yaml:"normalized_value"`
	Started         string `json:"started,omitempty" yaml:"started,omitempty"`
	Ended           string `json:"ended,omitempty" yaml:"ended,omitempty"`
	Secondary       bool   `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	Href            string `json:"href,omitempty" yaml:"href,omitempty"`
}

// Labels maps a label value to its qualifier. The empty string means no
// qualifier and is encoded as JSON null.
type Labels map[string]string

// MarshalJSON encodes absent qualifiers as null.
func (l Labels) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	m := make(map[string]*string, len(l))
	for k, v := range l {
		if v == "" {
			m[k] = nil
			continue
		}
		q := v
		m[k] = &q
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts null qualifiers.
func (l *Labels) UnmarshalJSON(data []byte) error {
	var m map[string]*string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		*l = nil
		return nil
	}
	out := make(Labels, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = *v
	}
	*l = out
	return nil
}

// Keys returns the label values in sorted order.
func (l Labels) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (l Labels) Clone() Labels {
	if l == nil {
		return nil
	}
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Qualifiers is the site's ordered qualifier enumeration. A qualifier's
// rank is its index; the absent qualifier ranks below all of them.
type Qualifiers []string

// Rank returns the index of q, or -1 when q is absent or not a member.
// Membership is case-sensitive.
func (qs Qualifiers) Rank(q string) int {
	if q == "" {
		return -1
	}
	for i, v := range qs {
		if v == q {
			return i
		}
	}
	return -1
}

// Valid reports whether q is a member of the enumeration.
func (qs Qualifiers) Valid(q string) bool {
	return qs.Rank(q) >= 0
}

// Coerce returns q when it is a member and the absent qualifier otherwise.
func (qs Qualifiers) Coerce(q string) string {
	if qs.Valid(q) {
		return q
	}
	return ""
}

// Higher returns whichever of a and b ranks higher. Ties keep a.
func (qs Qualifiers) Higher(a, b string) string {
	if qs.Rank(b) > qs.Rank(a) {
		return b
	}
	return a
}
