package parser

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FieldStrategy tries to pull one field value out of a document.
// A miss is reported as ok == false, never as an error.
type FieldStrategy interface {
	Name() string
	Extract(doc *goquery.Document) (value string, ok bool)
}

// SelectorText returns the trimmed text of the first element matching Selector.
type SelectorText struct {
	Selector string
}

func (s SelectorText) Name() string { return "text:" + s.Selector }

func (s SelectorText) Extract(doc *goquery.Document) (string, bool) {
	text := collapseSpace(doc.Find(s.Selector).First().Text())
	return text, text != ""
}

// SelectorAttr returns the first non-empty attribute among Attrs of the first
// element matching Selector.
type SelectorAttr struct {
	Selector string
	Attrs    []string
}

func (s SelectorAttr) Name() string { return "attr:" + s.Selector }

func (s SelectorAttr) Extract(doc *goquery.Document) (string, bool) {
	sel := doc.Find(s.Selector).First()
	for _, attr := range s.Attrs {
		if v, ok := sel.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// DynamicImage reads the largest image from a data-a-dynamic-image JSON map
// of URL to [width, height].
type DynamicImage struct {
	Selector string
}

func (s DynamicImage) Name() string { return "dynamic-image:" + s.Selector }

func (s DynamicImage) Extract(doc *goquery.Document) (string, bool) {
	raw, ok := doc.Find(s.Selector).First().Attr("data-a-dynamic-image")
	if !ok || raw == "" {
		return "", false
	}

	var sizes map[string][]int
	if err := json.Unmarshal([]byte(raw), &sizes); err != nil || len(sizes) == 0 {
		return "", false
	}

	urls := make([]string, 0, len(sizes))
	for u := range sizes {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	best, bestArea := "", -1
	for _, u := range urls {
		area := 0
		if dims := sizes[u]; len(dims) == 2 {
			area = dims[0] * dims[1]
		}
		if area > bestArea {
			best, bestArea = u, area
		}
	}
	return best, best != ""
}

// SplitPrice joins a whole/fraction price pair rendered in separate spans.
type SplitPrice struct {
	Container string
}

func (s SplitPrice) Name() string { return "split-price:" + s.Container }

func (s SplitPrice) Extract(doc *goquery.Document) (string, bool) {
	price := doc.Find(s.Container).First()
	whole := strings.Trim(collapseSpace(price.Find(".a-price-whole").First().Text()), ".,")
	if whole == "" {
		return "", false
	}

	symbol := collapseSpace(price.Find(".a-price-symbol").First().Text())
	fraction := collapseSpace(price.Find(".a-price-fraction").First().Text())
	if fraction == "" {
		return symbol + whole, true
	}
	return symbol + whole + "." + fraction, true
}

// firstAccepted runs strategies in order and returns the first value accept
// keeps. accept may rewrite the value.
func firstAccepted(doc *goquery.Document, strategies []FieldStrategy, accept func(string) (string, bool)) (string, bool) {
	for _, s := range strategies {
		raw, ok := s.Extract(doc)
		if !ok {
			continue
		}
		if v, ok := accept(raw); ok {
			return v, true
		}
	}
	return "", false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
