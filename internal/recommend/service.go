package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/shopping-recommender/internal/models"
	"github.com/maltedev/shopping-recommender/internal/scraper"
)

const DefaultMaxCategories = 7

var (
	ErrNoCategories      = errors.New("no categories returned")
	ErrIncompleteProfile = errors.New("user profile is incomplete")
)

// CategorySource proposes product categories for a shopping request.
type CategorySource interface {
	Categories(ctx context.Context, userInput string, profile *models.UserProfile) ([]string, error)
}

// RankingSource orders scraped candidates and explains its picks as free text.
type RankingSource interface {
	Rank(ctx context.Context, userInput string, profile *models.UserProfile, products []models.ProductRecord) (string, error)
}

// Aggregator scrapes candidates for several categories at once.
type Aggregator interface {
	Aggregate(ctx context.Context, categories []string, domain string, budget *models.BudgetRange) map[string][]models.ProductRecord
}

type Service struct {
	categories    CategorySource
	ranker        RankingSource
	aggregator    Aggregator
	maxCategories int
	logger        *slog.Logger
}

func NewService(categories CategorySource, ranker RankingSource, aggregator Aggregator, maxCategories int, logger *slog.Logger) *Service {
	if maxCategories <= 0 {
		maxCategories = DefaultMaxCategories
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		categories:    categories,
		ranker:        ranker,
		aggregator:    aggregator,
		maxCategories: maxCategories,
		logger:        logger.With("component", "recommend"),
	}
}

// GetRecommendations runs the whole pipeline for one request. Only a missing
// profile or a failed category lookup is an error; scraping and ranking
// failures degrade to the scrape-only result.
func (s *Service) GetRecommendations(ctx context.Context, profile *models.UserProfile, input models.ShoppingInput) (*models.RecommendationResult, error) {
	if profile.IsEmpty() {
		return nil, ErrIncompleteProfile
	}

	start := time.Now()
	userInput := BuildUserInput(profile, input)

	categories, err := s.categories.Categories(ctx, userInput, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCategories, err)
	}
	categories = cleanCategories(categories, s.maxCategories)
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}

	domain := MarketplaceDomain(profile.Location)
	currency := CurrencySymbol(profile.Location)
	logger := s.logger.With("domain", domain, "categories", len(categories))

	byCategory := s.aggregator.Aggregate(ctx, categories, domain, profile.Budget())
	candidates := scraper.Flatten(categories, byCategory)

	result := &models.RecommendationResult{
		Categories:         categories,
		RawRecommendations: "[]",
	}

	text, err := s.ranker.Rank(ctx, userInput, profile, candidates)
	if err != nil {
		logger.Warn("ranking failed, using scraped products", "error", err, "candidates", len(candidates))
		result.Products = Fallback(candidates, currency, FallbackReasoning)
		return result, nil
	}

	recs := ParseRecommendations(text)
	if raw, err := json.Marshal(recs); err == nil {
		result.RawRecommendations = string(raw)
	}
	result.Products = Reconcile(recs, candidates, currency)

	logger.Info("recommendations ready",
		"candidates", len(candidates),
		"recommendations", len(recs),
		"products", len(result.Products),
		"duration", time.Since(start),
	)
	return result, nil
}

// BuildUserInput renders the shopping request and profile for the text
// generation prompts.
func BuildUserInput(profile *models.UserProfile, input models.ShoppingInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Occasion: %s\n", input.Occasion)
	fmt.Fprintf(&b, "Preferred Brands: %s\n", input.BrandsPreferred)
	fmt.Fprintf(&b, "Shopping Request: %s\n", input.ShoppingInput)
	fmt.Fprintf(&b, "Favorite Categories: %s\n", strings.Join(profile.FavoriteCategories, ", "))
	fmt.Fprintf(&b, "Interests or Hobbies: %s\n", profile.Interests)
	return b.String()
}

func cleanCategories(categories []string, max int) []string {
	out := make([]string, 0, min(len(categories), max))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == max {
			break
		}
	}
	return out
}
