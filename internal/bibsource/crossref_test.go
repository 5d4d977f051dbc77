// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/publications/pkg/types"
)

const sampleCrossrefJSON = `{
  "status": "ok",
  "message-type": "work",
  "message": {
    "DOI": "10.1016/J.CELL.2015.12.018",
    "type": "journal-article",
    "title": ["Tissue-based map of the human proteome"],
    "container-title": ["Cell"],
    "short-container-title": ["Cell"],
    "ISSN": ["0092-8674", "1097-4172"],
    "volume": "164",
    "issue": "3",
    "page": "452-465",
    "author": [
      {"given": "M.-L.", "family": "Uhlén", "ORCID": "http://orcid.org/0000-0002-4858-8056"},
      {"given": "Björn M", "family": "Hallström"},
      {"name": "The Human Protein Atlas Consortium"}
    ],
    "published-print": {"date-parts": [[2016, 1]]},
    "published-online": {"date-parts": [[2015, 12, 24]]},
    "issued": {"date-parts": [[2016, 1]]},
    "created": {"date-parts": [[2015, 12, 20]]}
  }
}`

func TestParseCrossref(t *testing.T) {
	d, err := ParseCrossref([]byte(sampleCrossrefJSON))
	require.NoError(t, err)

	assert.Equal(t, "Tissue-based map of the human proteome", d.Title)
	assert.Equal(t, "10.1016/j.cell.2015.12.018", d.DOI)
	assert.Empty(t, d.PMID)
	assert.Equal(t, "journal-article", d.Type)
	assert.Equal(t, "2016-01-00", d.Published)
	assert.Equal(t, "2015-12-24", d.Epublished)
	assert.Equal(t, types.JournalRef{
		Title:        "Cell",
		Abbreviation: "Cell",
		ISSN:         "0092-8674",
		Volume:       "164",
		Issue:        "3",
		Pages:        "452-465",
	}, d.Journal)

	require.Len(t, d.Authors, 3)
	assert.Equal(t, types.Author{
		Family:             "Uhlén",
		FamilyNormalized:   "uhlen",
		Given:              "M L",
		GivenNormalized:    "m l",
		Initials:           "ML",
		InitialsNormalized: "ml",
		ORCID:              "http://orcid.org/0000-0002-4858-8056",
	}, d.Authors[0])
	assert.Equal(t, "BM", d.Authors[1].Initials)
	assert.Equal(t, "The Human Protein Atlas Consortium", d.Authors[2].Family)
}

func TestParseCrossrefDates(t *testing.T) {
	tests := []struct {
		name          string
		message       string
		wantPublished string
		wantEpub      string
	}{
		{"issued fallback", `{"title":["T"],"issued":{"date-parts":[[2012]]}}`, "2012-00-00", "2012-00-00"},
		{"created fallback", `{"title":["T"],"created":{"date-parts":[[2012,5,6]]}}`, "2012-05-06", ""},
		{"null issued skipped", `{"title":["T"],"issued":{"date-parts":[[null]]},"created":{"date-parts":[[2011,2]]}}`, "2011-02-00", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseCrossref([]byte(`{"message":` + tt.message + `}`))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPublished, d.Published)
			assert.Equal(t, tt.wantEpub, d.Epublished)
		})
	}
}

func TestParseCrossrefAssertionTitle(t *testing.T) {
	d, err := ParseCrossref([]byte(`{"message":{"assertion":[{"name":"articletitle","value":"From assertion"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "From assertion", d.Title)
}

func TestParseCrossrefMalformed(t *testing.T) {
	for _, data := range []string{`not json`, `{"status":"ok"}`, `{"message":{"title":[]}}`} {
		_, err := ParseCrossref([]byte(data))
		assert.ErrorIs(t, err, ErrMalformed, data)
	}
}

func TestCrossrefFetch(t *testing.T) {
	var gotPath, gotMailto string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMailto = r.URL.Query().Get("mailto")
		switch r.URL.Path {
		case "/works/10.1016/j.cell.2015.12.018":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(sampleCrossrefJSON))
		case "/works/10.1/broken":
			w.Write([]byte(`{"message":`))
		case "/works/10.1/gateway":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	cfg := types.CrossrefConfig{Mailto: "curator@example.org"}
	cfg.Timeout = 2 * time.Second
	src := NewCrossref(cfg, WithBaseURL(ts.URL+"/works/"))
	assert.Equal(t, "crossref", src.Name())

	d, err := src.Fetch(context.Background(), "10.1016/j.cell.2015.12.018")
	require.NoError(t, err)
	assert.Equal(t, "/works/10.1016/j.cell.2015.12.018", gotPath)
	assert.Equal(t, "curator@example.org", gotMailto)
	assert.Equal(t, "10.1016/j.cell.2015.12.018", d.DOI)

	_, err = src.Fetch(context.Background(), "10.1/missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))

	_, err = src.Fetch(context.Background(), "10.1/broken")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = src.Fetch(context.Background(), "10.1/gateway")
	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, IsRetryable(err))
}
