package models

import (
	"strconv"
	"strings"
)

// CategoryRequest is one category to aggregate for a single recommendation call.
type CategoryRequest struct {
	Category string
	Domain   string
	Budget   *BudgetRange
}

// BudgetRange is an inclusive price interval.
type BudgetRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether price lies within [Low, High].
func (b BudgetRange) Contains(price float64) bool {
	return price >= b.Low && price <= b.High
}

// ParseBudget parses a "low-high" budget string such as "£20-100" or "20 - 100".
func ParseBudget(s string) (*BudgetRange, bool) {
	cleaned := strings.NewReplacer("£", "", "€", "", "$", "").Replace(s)
	parts := strings.Split(cleaned, "-")
	if len(parts) != 2 {
		return nil, false
	}

	low, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, false
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, false
	}
	if low > high {
		low, high = high, low
	}

	return &BudgetRange{Low: low, High: high}, true
}

// CandidateLink is a canonical product URL found on a search page.
type CandidateLink struct {
	ASIN string `json:"asin"`
	URL  string `json:"url"`
}

// ProductRecord holds the facts scraped from one product page.
type ProductRecord struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	ImageURL  string   `json:"image_url,omitempty"`
	PriceText string   `json:"price,omitempty"`
	Price     *float64 `json:"price_value,omitempty"`
	Rating    *float64 `json:"average_rating,omitempty"`
}

// HasPrice reports whether a normalized price was extracted.
func (p *ProductRecord) HasPrice() bool {
	return p.Price != nil
}

// RecommendationRecord is one block of the ranking response.
type RecommendationRecord struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Price     float64 `json:"price"`
	Rating    float64 `json:"rating"`
	ImageURL  string  `json:"image_url"`
	Reasoning string  `json:"reasoning"`
}

// ReconciledProduct is the display record returned to callers.
type ReconciledProduct struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Image     string  `json:"image"`
	BuyURL    string  `json:"buyUrl"`
	Category  string  `json:"category"`
	Rating    float64 `json:"rating"`
	Reasoning string  `json:"reasoning"`
}

// ClampRating bounds a rating to [0,5].
func ClampRating(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
