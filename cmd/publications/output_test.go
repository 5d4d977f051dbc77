// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/publications/pkg/types"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  types.Labels
	}{
		{name: "empty", flags: nil, want: types.Labels{}},
		{name: "bare value", flags: []string{"Genomics"}, want: types.Labels{"Genomics": ""}},
		{name: "qualified", flags: []string{"Genomics=Service", " Proteomics = Collaborative "}, want: types.Labels{"Genomics": "Service", "Proteomics": "Collaborative"}},
		{name: "blank skipped", flags: []string{" ", "=Service"}, want: types.Labels{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLabels(tt.flags))
		})
	}
}

func TestReadIdentifiers(t *testing.T) {
	in := strings.NewReader("8142349\n# comment\n\n doi:10.1/x \r\n")
	got, err := readIdentifiers(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"8142349", "doi:10.1/x"}, got)
}

func TestWriteValue(t *testing.T) {
	p := &types.Publication{Draft: types.Draft{Title: "Paper", PMID: "1"}}
	p.ID = "abc"

	var buf bytes.Buffer
	require.NoError(t, writeValue(&buf, p, true))
	assert.Contains(t, buf.String(), "title: Paper")
	assert.Contains(t, buf.String(), "id: abc")

	buf.Reset()
	require.NoError(t, writeValue(&buf, p, false))
	assert.Contains(t, buf.String(), `"title": "Paper"`)

	assert.Equal(t, "abc pmid:1    Paper", summary(p))
}
