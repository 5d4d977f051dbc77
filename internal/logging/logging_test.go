// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		logInfo bool
	}{
		{name: "default level is info", level: "", logInfo: true},
		{name: "debug", level: "debug", logInfo: true},
		{name: "warn drops info", level: "warn", logInfo: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(&buf, tt.level, "json")
			require.NoError(t, err)
			l.Info().Str("identifier", "123").Msg("fetched")
			if !tt.logInfo {
				assert.Zero(t, buf.Len())
				return
			}
			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, "fetched", line["message"])
			assert.Equal(t, "123", line["identifier"])
			assert.Contains(t, line, "time")
		})
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "info", "console")
	require.NoError(t, err)
	l.Info().Str("source", "pubmed").Msg("fetched")
	assert.Contains(t, buf.String(), "fetched")
	assert.Contains(t, buf.String(), "pubmed")
}

func TestNewBadLevel(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(&buf, "loud", "json")
	assert.Error(t, err)
}
