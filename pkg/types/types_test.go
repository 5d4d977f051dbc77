// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelsJSONNullQualifier(t *testing.T) {
	in := Labels{"Exposomics": "Service", "Other": ""}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Exposomics":"Service","Other":null}`, string(data))

	var out Labels
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestQualifiersRank(t *testing.T) {
	qs := Qualifiers{"Service", "Technology development", "Collaborative"}
	tests := []struct {
		q    string
		want int
	}{
		{"Service", 0},
		{"Collaborative", 2},
		{"", -1},
		{"service", -1},
		{"Unknown", -1},
	}
	for _, tt := range tests {
		if got := qs.Rank(tt.q); got != tt.want {
			t.Errorf("Rank(%q) = %d, want %d", tt.q, got, tt.want)
		}
	}
}

func TestQualifiersHigher(t *testing.T) {
	qs := Qualifiers{"Service", "Technology development", "Collaborative"}
	assert.Equal(t, "Collaborative", qs.Higher("Service", "Collaborative"))
	assert.Equal(t, "Collaborative", qs.Higher("Collaborative", "Service"))
	assert.Equal(t, "Service", qs.Higher("", "Service"))
	assert.Equal(t, "Service", qs.Higher("Service", ""))
	assert.Equal(t, "", qs.Coerce("bogus"))
}

func TestPublicationFirstPublished(t *testing.T) {
	p := Publication{Draft: Draft{Published: "2015-03-00", Epublished: "2014-12-20"}}
	assert.Equal(t, "2014-12-20", p.FirstPublished())
	assert.Equal(t, "2015", p.Year())

	p.Epublished = ""
	assert.Equal(t, "2015-03-00", p.FirstPublished())
}

func TestPublicationJSONFlattens(t *testing.T) {
	p := Publication{
		Meta:  Meta{ID: "abc", Kind: KindPublication},
		Draft: Draft{Title: "T", PMID: "1"},
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "abc", m["id"])
	assert.Equal(t, "T", m["title"])
	assert.Equal(t, "1", m["pmid"])
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	assert.Equal(t, "2026-03-04T05:06:07.890Z", Timestamp(ts))
	back, err := ParseTimestamp(Timestamp(ts))
	require.NoError(t, err)
	assert.True(t, back.Equal(ts))
}
