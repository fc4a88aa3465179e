package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/shopping-recommender/internal/models"
)

const minTitleLength = 3

var productPathPattern = regexp.MustCompile(`/(?:dp|gp/product|gp/aw/d)/([A-Z0-9]{10})(?:[/?#]|$)`)

// ExtractASIN returns the product identifier embedded in a product URL path.
func ExtractASIN(rawURL string) (string, bool) {
	m := productPathPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// DetailExtractor turns a product page into a ProductRecord.
type DetailExtractor struct {
	Title  []FieldStrategy
	Image  []FieldStrategy
	Price  []FieldStrategy
	Rating []FieldStrategy
}

func NewDetailExtractor() *DetailExtractor {
	return &DetailExtractor{
		Title: []FieldStrategy{
			SelectorText{Selector: "#productTitle"},
			SelectorText{Selector: "#title"},
			SelectorAttr{Selector: `meta[property="og:title"]`, Attrs: []string{"content"}},
			SelectorAttr{Selector: `meta[name="title"]`, Attrs: []string{"content"}},
			SelectorText{Selector: "h1"},
		},
		Image: []FieldStrategy{
			SelectorAttr{Selector: "#landingImage", Attrs: []string{"data-old-hires", "src"}},
			SelectorAttr{Selector: "#imgTagWrapperId img", Attrs: []string{"data-old-hires", "src"}},
			DynamicImage{Selector: "#landingImage"},
			DynamicImage{Selector: "#imgBlkFront"},
			SelectorAttr{Selector: "#imgBlkFront", Attrs: []string{"src"}},
			SelectorAttr{Selector: `meta[property="og:image"]`, Attrs: []string{"content"}},
		},
		Price: []FieldStrategy{
			SelectorText{Selector: "#corePrice_feature_div .a-price .a-offscreen"},
			SelectorText{Selector: "#corePriceDisplay_desktop_feature_div .a-price .a-offscreen"},
			SelectorText{Selector: ".a-price .a-offscreen"},
			SelectorText{Selector: "#priceblock_ourprice"},
			SelectorText{Selector: "#priceblock_dealprice"},
			SelectorText{Selector: "#price_inside_buybox"},
			SplitPrice{Container: "#corePrice_feature_div .a-price"},
			SplitPrice{Container: ".a-price"},
		},
		Rating: []FieldStrategy{
			SelectorAttr{Selector: "#acrPopover", Attrs: []string{"title"}},
			SelectorText{Selector: "#acrPopover span.a-icon-alt"},
			SelectorText{Selector: "span.a-icon-alt"},
			SelectorText{Selector: `[data-hook="rating-out-of-text"]`},
		},
	}
}

// ExtractProduct returns the record for the page at url, or false when the
// page does not yield a trustworthy product.
func (e *DetailExtractor) ExtractProduct(html, url string) (models.ProductRecord, bool) {
	if url == "" || !productPathPattern.MatchString(url) {
		return models.ProductRecord{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ProductRecord{}, false
	}

	title, ok := firstAccepted(doc, e.Title, acceptTitle)
	if !ok {
		return models.ProductRecord{}, false
	}

	record := models.ProductRecord{
		URL:   url,
		Title: title,
	}

	if image, ok := firstAccepted(doc, e.Image, acceptImage); ok {
		record.ImageURL = image
	}

	if priceText, ok := firstAccepted(doc, e.Price, acceptPrice); ok {
		record.PriceText = priceText
		if v, ok := ParsePrice(priceText); ok {
			record.Price = models.Float(v)
		}
	}

	if ratingText, ok := firstAccepted(doc, e.Rating, acceptRating); ok {
		if v, ok := ParseRating(ratingText); ok {
			record.Rating = models.Float(v)
		}
	}

	if record.ImageURL == "" && record.Price == nil {
		return models.ProductRecord{}, false
	}

	return record, true
}

func acceptTitle(v string) (string, bool) {
	v = collapseSpace(v)
	return v, utf8.RuneCountInString(v) >= minTitleLength
}

func acceptImage(v string) (string, bool) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasPrefix(v, "//"):
		return "https:" + v, true
	case strings.HasPrefix(v, "https://"), strings.HasPrefix(v, "http://"):
		return v, true
	}
	return "", false
}

func acceptPrice(v string) (string, bool) {
	v = collapseSpace(v)
	if !strings.ContainsAny(v, "0123456789") {
		return "", false
	}
	if _, ok := ParsePrice(v); !ok {
		return "", false
	}
	return v, true
}

func acceptRating(v string) (string, bool) {
	_, ok := ParseRating(v)
	return v, ok
}
