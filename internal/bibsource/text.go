// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibsource

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/publications/internal/normalize"
)

// markup captures an element whose content may contain inline tags such
// as <i> or <sup> in PubMed titles and JATS in Crossref abstracts.
type markup struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

func (m markup) String() string { return plainText(m.Inner) }

// plainText drops all tags from an XML fragment and collapses whitespace.
// Unparsable fragments are returned whitespace-collapsed as they are.
func plainText(fragment string) string {
	if !strings.ContainsRune(fragment, '<') && !strings.ContainsRune(fragment, '&') {
		return normalize.Whitespace(fragment)
	}
	dec := xml.NewDecoder(strings.NewReader("<x>" + fragment + "</x>"))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return normalize.Whitespace(fragment)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			b.WriteByte(' ')
		}
	}
	return normalize.Whitespace(b.String())
}

// months maps English month abbreviations to numbers.
var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// monthNumber accepts "Mar", "march" or "3"; 0 means unknown.
func monthNumber(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if len(s) >= 3 {
		if m, ok := months[s[:3]]; ok {
			return m
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return 0
	}
	return n
}

// dateParts is a partial date: year, optionally month, optionally day.
type dateParts []int

func (d dateParts) format() string {
	year, month, day := 0, 0, 0
	if len(d) > 0 {
		year = d[0]
	}
	if len(d) > 1 {
		month = d[1]
	}
	if len(d) > 2 {
		day = d[2]
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// withMonth fills a missing month from now.
func (d dateParts) withMonth(now time.Time) dateParts {
	if len(d) == 1 {
		return dateParts{d[0], int(now.Month())}
	}
	return d
}

// pages completes an abbreviated page range: "123-45" becomes "123-145".
func pages(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return s
	}
	if diff := len(parts[0]) - len(parts[1]); diff > 0 {
		parts[1] = parts[0][:diff] + parts[1]
	}
	return strings.Join(parts, "-")
}

// shadow returns the ASCII-folded lowercase form stored beside a name.
func shadow(s string) string {
	return strings.ToLower(normalize.ASCII(s))
}
