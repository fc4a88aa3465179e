package parser

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/maltedev/shopping-recommender/internal/models"
)

// SanitizeCategory strips control characters and collapses whitespace.
func SanitizeCategory(category string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, category)
	return collapseSpace(cleaned)
}

// BareDomain strips scheme, leading "www." and any path from a marketplace domain.
func BareDomain(domain string) string {
	d := strings.TrimSpace(strings.ToLower(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}

// SearchURL builds the review-ranked search URL for a category, with an
// optional price filter.
func SearchURL(domain, category string, budget *models.BudgetRange) string {
	q := url.Values{}
	q.Set("k", SanitizeCategory(category))
	q.Set("s", "review-rank")
	if budget != nil {
		q.Set("low-price", formatBound(budget.Low))
		q.Set("high-price", formatBound(budget.High))
	}

	u := url.URL{
		Scheme:   "https",
		Host:     "www." + BareDomain(domain),
		Path:     "/s",
		RawQuery: q.Encode(),
	}
	return u.String()
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
