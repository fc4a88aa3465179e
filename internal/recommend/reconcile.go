package recommend

import (
	"strconv"
	"strings"

	"github.com/maltedev/shopping-recommender/internal/models"
)

const (
	RecommendedCategory = "Recommended"
	GeneralCategory     = "General"
	PlaceholderImage    = "/placeholder.svg"

	DefaultReasoning    = "AI recommended product"
	PreferenceReasoning = "Product recommendation based on your preferences"
	FallbackReasoning   = "Fallback recommendation"

	MaxFallbackProducts = 10
)

// titleIndex maps normalized titles to scraped records, remembering
// insertion order for substring lookups.
type titleIndex struct {
	keys    []string
	records map[string]models.ProductRecord
}

func newTitleIndex(scraped []models.ProductRecord) *titleIndex {
	idx := &titleIndex{records: make(map[string]models.ProductRecord, len(scraped))}
	for _, r := range scraped {
		key := normalizeTitle(r.Title)
		if key == "" {
			continue
		}
		if _, ok := idx.records[key]; ok {
			continue
		}
		idx.keys = append(idx.keys, key)
		idx.records[key] = r
	}
	return idx
}

// match returns the exact match for title, else the first indexed title
// that contains it or is contained by it.
func (idx *titleIndex) match(title string) (models.ProductRecord, bool) {
	key := normalizeTitle(title)
	if r, ok := idx.records[key]; ok {
		return r, true
	}
	for _, k := range idx.keys {
		if strings.Contains(k, key) || strings.Contains(key, k) {
			return idx.records[k], true
		}
	}
	return models.ProductRecord{}, false
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Reconcile merges ranked recommendations with the scraped candidates.
// Recommendation order and reasoning are kept; a matching scraped record
// overrides price, image, URL and rating. When no recommendation survives,
// up to MaxFallbackProducts scraped records are returned instead.
func Reconcile(recs []models.RecommendationRecord, scraped []models.ProductRecord, currency string) []models.ReconciledProduct {
	idx := newTitleIndex(scraped)

	out := make([]models.ReconciledProduct, 0, len(recs))
	for _, rec := range recs {
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			continue
		}

		p := models.ReconciledProduct{
			ID:        strconv.Itoa(len(out) + 1),
			Name:      title,
			Price:     rec.Price,
			Currency:  currency,
			Image:     rec.ImageURL,
			BuyURL:    rec.URL,
			Category:  RecommendedCategory,
			Rating:    models.ClampRating(rec.Rating),
			Reasoning: rec.Reasoning,
		}

		if match, ok := idx.match(title); ok {
			applyScraped(&p, match)
		}

		if p.Image == "" {
			p.Image = PlaceholderImage
		}
		if p.Reasoning == "" {
			p.Reasoning = DefaultReasoning
		}
		out = append(out, p)
	}

	if len(out) == 0 {
		return Fallback(scraped, currency, PreferenceReasoning)
	}
	return out
}

func applyScraped(p *models.ReconciledProduct, r models.ProductRecord) {
	if r.Price != nil && *r.Price > 0 {
		p.Price = *r.Price
	}
	if r.ImageURL != "" {
		p.Image = r.ImageURL
	}
	if r.URL != "" {
		p.BuyURL = r.URL
	}
	if r.Rating != nil {
		p.Rating = models.ClampRating(*r.Rating)
	}
}

// Fallback formats up to MaxFallbackProducts scraped records directly.
func Fallback(scraped []models.ProductRecord, currency, reasoning string) []models.ReconciledProduct {
	out := make([]models.ReconciledProduct, 0, min(len(scraped), MaxFallbackProducts))
	for _, r := range scraped {
		if len(out) == MaxFallbackProducts {
			break
		}
		if strings.TrimSpace(r.Title) == "" {
			continue
		}

		p := models.ReconciledProduct{
			ID:        strconv.Itoa(len(out) + 1),
			Name:      r.Title,
			Currency:  currency,
			Image:     r.ImageURL,
			BuyURL:    r.URL,
			Category:  GeneralCategory,
			Reasoning: reasoning,
		}
		if r.Price != nil {
			p.Price = *r.Price
		}
		if r.Rating != nil {
			p.Rating = models.ClampRating(*r.Rating)
		}
		if p.Image == "" {
			p.Image = PlaceholderImage
		}
		out = append(out, p)
	}
	return out
}
