package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/shopping-recommender/internal/models"
)

var asinPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// LinkStrategy yields raw candidates from a search page: hrefs or bare ASINs.
type LinkStrategy interface {
	Name() string
	Candidates(doc *goquery.Document) []string
}

// HrefSelector collects href attributes of matching anchors.
type HrefSelector struct {
	Selector string
}

func (s HrefSelector) Name() string { return "href:" + s.Selector }

func (s HrefSelector) Candidates(doc *goquery.Document) []string {
	var out []string
	doc.Find(s.Selector).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && href != "" {
			out = append(out, href)
		}
	})
	return out
}

// ASINAttr collects product identifiers from an attribute such as data-asin.
type ASINAttr struct {
	Selector string
	Attr     string
}

func (s ASINAttr) Name() string { return "asin-attr:" + s.Selector }

func (s ASINAttr) Candidates(doc *goquery.Document) []string {
	var out []string
	doc.Find(s.Selector).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr(s.Attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	})
	return out
}

// SearchExtractor recovers candidate product links from a search results page.
type SearchExtractor struct {
	Structural []LinkStrategy
	Fallback   []LinkStrategy
}

func NewSearchExtractor() *SearchExtractor {
	return &SearchExtractor{
		Structural: []LinkStrategy{
			HrefSelector{Selector: "a.a-link-normal.s-no-outline"},
			HrefSelector{Selector: `[data-component-type="s-search-result"] h2 a`},
			HrefSelector{Selector: "a.a-link-normal.s-underline-text"},
			HrefSelector{Selector: `a[href*="/dp/"]`},
		},
		Fallback: []LinkStrategy{
			ASINAttr{Selector: `[data-component-type="s-search-result"][data-asin]`, Attr: "data-asin"},
			ASINAttr{Selector: "[data-asin]", Attr: "data-asin"},
		},
	}
}

// ExtractLinks returns at most limit unique canonical product links for req.
// An empty result is a valid "no results" outcome.
func (e *SearchExtractor) ExtractLinks(html string, req models.CategoryRequest, limit int) []models.CandidateLink {
	if limit <= 0 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	host := "www." + BareDomain(req.Domain)
	seen := make(map[string]struct{})
	var links []models.CandidateLink

	collect := func(strategies []LinkStrategy) {
		for _, s := range strategies {
			for _, c := range s.Candidates(doc) {
				if len(links) >= limit {
					return
				}
				asin, ok := candidateASIN(c)
				if !ok {
					continue
				}
				if _, dup := seen[asin]; dup {
					continue
				}
				seen[asin] = struct{}{}
				links = append(links, models.CandidateLink{
					ASIN: asin,
					URL:  CanonicalURL(host, asin),
				})
			}
			if len(links) >= limit {
				return
			}
		}
	}

	collect(e.Structural)
	if len(links) == 0 {
		collect(e.Fallback)
	}

	return links
}

// CanonicalURL builds the query-free product URL used as the dedup key.
func CanonicalURL(host, asin string) string {
	return fmt.Sprintf("https://%s/dp/%s", host, asin)
}

func candidateASIN(candidate string) (string, bool) {
	if asinPattern.MatchString(candidate) {
		return candidate, true
	}
	if unescaped, err := url.QueryUnescape(candidate); err == nil {
		candidate = unescaped
	}
	return ExtractASIN(candidate)
}
