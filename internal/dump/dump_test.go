// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dump

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/publications/internal/docstore"
)

func body(v map[string]any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestDumpUndumpRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := docstore.NewMemory()
	for _, d := range []docstore.Document{
		{ID: "a", Kind: "publication", Body: body(map[string]any{"title": "A"})},
		{ID: "b", Kind: "publication", Body: body(map[string]any{"title": "B"})},
		{ID: "c", Kind: "label", Body: body(map[string]any{"value": "C"})},
	} {
		_, err := src.Put(ctx, d)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	stats, err := Dump(ctx, src, &buf)
	require.NoError(t, err)
	assert.Equal(t, Stats{"publication": 2, "label": 1}, stats)
	assert.Equal(t, 3, stats.Total())

	zr, err := gzip.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"id":"a","kind":"publication","body":{"title":"A"}}`, lines[0])

	dst := docstore.NewMemory()
	_, err = dst.Put(ctx, docstore.Document{ID: "a", Kind: "publication", Body: body(map[string]any{"title": "old"})})
	require.NoError(t, err)

	stats, err = Undump(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total())

	got, err := dst.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"A"}`, string(got.Body))
	assert.True(t, strings.HasPrefix(got.Rev, "2-"), got.Rev)

	all, err := dst.Scan(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUndumpRejectsGarbage(t *testing.T) {
	_, err := Undump(context.Background(), docstore.NewMemory(), strings.NewReader("not gzip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("{broken\n"))
	zw.Close()
	_, err = Undump(context.Background(), docstore.NewMemory(), &buf)
	assert.ErrorContains(t, err, "line 1")
}
