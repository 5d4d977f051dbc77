// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibsource

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/publications/pkg/types"
)

// PubMedBase is the EFetch endpoint. Declared as a var so tests can
// substitute an httptest server.
var PubMedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"

// PubMed resolves PMIDs through NCBI EFetch.
type PubMed struct {
	c      *client
	apiKey string
}

// NewPubMed returns a PubMed adapter.
func NewPubMed(cfg types.PubMedConfig, opts ...Option) *PubMed {
	return &PubMed{
		c:      newClient("pubmed", PubMedBase, cfg.HTTPConfig, cfg.Delay, opts),
		apiKey: cfg.APIKey,
	}
}

// Name returns "pubmed".
func (p *PubMed) Name() string { return p.c.name }

// Fetch retrieves and parses the PubMed record for pmid.
func (p *PubMed) Fetch(ctx context.Context, pmid string) (*types.Draft, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("rettype", "abstract")
	q.Set("id", pmid)
	if p.apiKey != "" {
		q.Set("api_key", p.apiKey)
	}
	body, err := p.c.get(ctx, pmid, p.c.baseURL+"?"+q.Encode(), "application/xml")
	if err != nil {
		return nil, err
	}
	draft, err := ParsePubMed(body, p.c.now())
	if err != nil {
		return nil, &UpstreamError{Source: p.c.name, ID: pmid, Err: err}
	}
	return draft, nil
}

// EFetch XML structures.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string             `xml:"PMID"`
		Article *pubmedArticleBody `xml:"Article"`
	} `xml:"MedlineCitation"`
	Data struct {
		History    []pubmedDate      `xml:"History>PubMedPubDate"`
		ArticleIDs []pubmedArticleID `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type pubmedArticleBody struct {
	Journal struct {
		ISSN            string `xml:"ISSN"`
		Title           string `xml:"Title"`
		ISOAbbreviation string `xml:"ISOAbbreviation"`
		Issue           struct {
			Volume  string     `xml:"Volume"`
			Issue   string     `xml:"Issue"`
			PubDate pubmedDate `xml:"PubDate"`
		} `xml:"JournalIssue"`
	} `xml:"Journal"`
	Title            markup         `xml:"ArticleTitle"`
	Pagination       string         `xml:"Pagination>MedlinePgn"`
	Abstract         []markup       `xml:"Abstract>AbstractText"`
	Authors          []pubmedAuthor `xml:"AuthorList>Author"`
	PublicationTypes []string       `xml:"PublicationTypeList>PublicationType"`
	ArticleDates     []pubmedDate   `xml:"ArticleDate"`
	DataBanks        []struct {
		Name       string   `xml:"DataBankName"`
		Accessions []string `xml:"AccessionNumberList>AccessionNumber"`
	} `xml:"DataBankList>DataBank"`
}

type pubmedAuthor struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	Initials       string `xml:"Initials"`
	CollectiveName markup `xml:"CollectiveName"`
}

type pubmedDate struct {
	DateType    string `xml:"DateType,attr"`
	PubStatus   string `xml:"PubStatus,attr"`
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type pubmedArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// historyStatuses is the PubMedPubDate fallback order.
var historyStatuses = []string{"epublish", "aheadofprint", "pubmed"}

// ParsePubMed converts an EFetch response holding one PubmedArticle into
// a draft. now supplies the month when the record gives only a year.
func ParsePubMed(data []byte, now time.Time) (*types.Draft, error) {
	var set pubmedArticleSet
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&set); err != nil {
		return nil, wrapMalformed("parsing EFetch XML: %v", err)
	}
	if len(set.Articles) == 0 {
		return nil, ErrNotFound
	}
	article := set.Articles[0]
	body := article.Citation.Article
	if body == nil {
		return nil, wrapMalformed("missing MedlineCitation/Article")
	}

	d := &types.Draft{
		Title:   body.Title.String(),
		PMID:    strings.TrimSpace(article.Citation.PMID),
		Authors: pubmedAuthors(body.Authors),
		Journal: types.JournalRef{
			Title:        body.Journal.ISOAbbreviation,
			Abbreviation: body.Journal.ISOAbbreviation,
			ISSN:         body.Journal.ISSN,
			Volume:       body.Journal.Issue.Volume,
			Issue:        body.Journal.Issue.Issue,
			Pages:        pages(strings.TrimSpace(body.Pagination)),
		},
	}
	if d.Title == "" {
		return nil, wrapMalformed("empty ArticleTitle")
	}
	if d.PMID == "" {
		return nil, wrapMalformed("missing MedlineCitation/PMID")
	}
	if d.Journal.Title == "" {
		d.Journal.Title = body.Journal.Title
	}
	if len(body.PublicationTypes) > 0 {
		d.Type = strings.ToLower(strings.TrimSpace(body.PublicationTypes[0]))
	}

	var abstract []string
	for _, a := range body.Abstract {
		if text := a.String(); text != "" {
			abstract = append(abstract, text)
		}
	}
	d.Abstract = strings.Join(abstract, "\n\n")

	d.Published = pubmedPublished(body, article.Data.History, now)
	d.Epublished = pubmedEpublished(body, article.Data.History)

	for _, id := range article.Data.ArticleIDs {
		key := strings.TrimSpace(id.Value)
		if key == "" {
			continue
		}
		switch id.IDType {
		case "pubmed":
		case "doi":
			d.DOI = strings.ToLower(key)
		default:
			d.Xrefs = append(d.Xrefs, types.Xref{DB: id.IDType, Key: key})
		}
	}
	for _, bank := range body.DataBanks {
		if bank.Name == "" {
			continue
		}
		for _, acc := range bank.Accessions {
			if acc = strings.TrimSpace(acc); acc != "" {
				d.Xrefs = append(d.Xrefs, types.Xref{DB: bank.Name, Key: acc})
			}
		}
	}
	return d, nil
}

// pubmedAuthors builds the author list. An author without a last name
// uses the fore name, then the collective name, as family name.
// Repeated family/given pairs keep the first occurrence.
func pubmedAuthors(in []pubmedAuthor) []types.Author {
	seen := make(map[string]bool)
	var out []types.Author
	for _, a := range in {
		author := types.Author{
			Family:   strings.TrimSpace(a.LastName),
			Given:    strings.TrimSpace(a.ForeName),
			Initials: strings.TrimSpace(a.Initials),
		}
		if author.Family == "" {
			author.Family = author.Given
			if author.Family == "" {
				author.Family = a.CollectiveName.String()
			}
			author.Given = ""
			author.Initials = ""
		}
		if author.Family == "" {
			continue
		}
		author.FamilyNormalized = shadow(author.Family)
		author.GivenNormalized = shadow(author.Given)
		author.InitialsNormalized = shadow(author.Initials)

		key := author.Family + " " + author.Given
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, author)
	}
	return out
}

func (d pubmedDate) parts() dateParts {
	year, err := strconv.Atoi(strings.TrimSpace(d.Year))
	if err != nil || year <= 0 {
		// MedlineDate is free text such as "1998 Dec-1999 Jan".
		fields := strings.Fields(d.MedlineDate)
		if len(fields) == 0 {
			return nil
		}
		if year, err = strconv.Atoi(fields[0]); err != nil || year <= 0 {
			return nil
		}
		if len(fields) > 1 {
			if m := monthNumber(fields[1]); m > 0 {
				return dateParts{year, m, 0}
			}
		}
		return dateParts{year}
	}
	month := monthNumber(d.Month)
	if month == 0 {
		return dateParts{year}
	}
	day, err := strconv.Atoi(strings.TrimSpace(d.Day))
	if err != nil || day < 0 || day > 31 {
		day = 0
	}
	return dateParts{year, month, day}
}

func historyParts(history []pubmedDate) dateParts {
	for _, status := range historyStatuses {
		for _, h := range history {
			if h.PubStatus == status {
				if p := h.parts(); len(p) >= 2 {
					return p
				}
			}
		}
	}
	return nil
}

// pubmedPublished takes the journal issue date, then ArticleDate, then
// the history statuses, until one gives at least year and month.
func pubmedPublished(body *pubmedArticleBody, history []pubmedDate, now time.Time) string {
	date := body.Journal.Issue.PubDate.parts()
	if len(date) < 2 {
		for _, ad := range body.ArticleDates {
			if p := ad.parts(); len(p) > len(date) {
				date = p
				break
			}
		}
	}
	if len(date) < 2 {
		if p := historyParts(history); len(p) > len(date) {
			date = p
		}
	}
	if len(date) == 0 {
		date = dateParts{now.Year()}
	}
	return date.withMonth(now).format()
}

// pubmedEpublished uses an electronic ArticleDate, then the history.
func pubmedEpublished(body *pubmedArticleBody, history []pubmedDate) string {
	for _, ad := range body.ArticleDates {
		if strings.EqualFold(ad.DateType, "Electronic") {
			if p := ad.parts(); len(p) > 0 {
				return p.format()
			}
		}
	}
	if p := historyParts(history); len(p) > 0 {
		return p.format()
	}
	return ""
}
