package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maltedev/shopping-recommender/internal/fetch"
	"github.com/maltedev/shopping-recommender/internal/models"
	"github.com/maltedev/shopping-recommender/internal/parser"
	"github.com/maltedev/shopping-recommender/internal/ratelimit"
)

// MaxDetailWorkers caps concurrent product page fetches within one category.
const MaxDetailWorkers = 5

type Options struct {
	MaxWorkers int
	// ThrottleMin and ThrottleMax bound the random gap between two requests
	// of the same category run.
	ThrottleMin time.Duration
	ThrottleMax time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		MaxWorkers:  MaxDetailWorkers,
		ThrottleMin: 1 * time.Second,
		ThrottleMax: 3 * time.Second,
	}
}

// CategoryScraper searches one category and scrapes its top product pages.
type CategoryScraper struct {
	opener fetch.Opener
	search *parser.SearchExtractor
	detail *parser.DetailExtractor
	opts   Options
	logger *slog.Logger
}

func NewCategoryScraper(opener fetch.Opener, opts *Options, logger *slog.Logger) *CategoryScraper {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := *opts
	if o.MaxWorkers <= 0 || o.MaxWorkers > MaxDetailWorkers {
		o.MaxWorkers = MaxDetailWorkers
	}
	return &CategoryScraper{
		opener: opener,
		search: parser.NewSearchExtractor(),
		detail: parser.NewDetailExtractor(),
		opts:   o,
		logger: logger.With("component", "category_scraper"),
	}
}

// FetchCategory returns the category name with the budget-filtered products
// scraped for it. Failures never escape: a category that cannot be searched
// yields an empty list.
func (s *CategoryScraper) FetchCategory(ctx context.Context, req models.CategoryRequest, limit int) (string, []models.ProductRecord) {
	return req.Category, s.fetchCategory(ctx, req, limit, nil)
}

func (s *CategoryScraper) fetchCategory(ctx context.Context, req models.CategoryRequest, limit int, seen *seenSet) []models.ProductRecord {
	logger := s.logger.With("category", req.Category)
	throttle := ratelimit.NewSimpleRateLimiter(s.opts.ThrottleMin, s.opts.ThrottleMax)

	links := s.searchLinks(ctx, req, limit, throttle, logger)
	if seen != nil {
		links = seen.claim(links)
	}
	if len(links) == 0 {
		return []models.ProductRecord{}
	}

	results := make([]*models.ProductRecord, len(links))

	var g errgroup.Group
	g.SetLimit(min(s.opts.MaxWorkers, len(links)))

	for i, link := range links {
		g.Go(func() error {
			if err := throttle.Wait(ctx); err != nil {
				logger.Warn("product fetch aborted", "url", link.URL, "error", err)
				return nil
			}

			sess := s.opener.Open()
			defer sess.Close()

			html, err := sess.Fetch(ctx, link.URL)
			if err != nil {
				logger.Warn("product fetch failed", "url", link.URL, "error", err)
				return nil
			}

			record, ok := s.detail.ExtractProduct(html, link.URL)
			if !ok {
				logger.Debug("product page yielded no record", "url", link.URL)
				return nil
			}
			results[i] = &record
			return nil
		})
	}
	_ = g.Wait()

	records := make([]models.ProductRecord, 0, len(links))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}

	filtered := FilterByBudget(records, req.Budget)
	logger.Info("category scraped",
		"links", len(links),
		"records", len(records),
		"in_budget", len(filtered),
	)
	return filtered
}

func (s *CategoryScraper) searchLinks(ctx context.Context, req models.CategoryRequest, limit int, throttle ratelimit.RateLimiter, logger *slog.Logger) []models.CandidateLink {
	if limit <= 0 {
		return nil
	}
	if err := throttle.Wait(ctx); err != nil {
		logger.Warn("search aborted", "error", err)
		return nil
	}

	sess := s.opener.Open()
	defer sess.Close()

	searchURL := parser.SearchURL(req.Domain, req.Category, req.Budget)
	html, err := sess.Fetch(ctx, searchURL)
	if err != nil {
		logger.Warn("search fetch failed", "url", searchURL, "error", err)
		return nil
	}

	links := s.search.ExtractLinks(html, req, limit)
	if len(links) == 0 {
		logger.Info("search returned no product links", "url", searchURL)
	}
	return links
}

// FilterByBudget keeps records whose price lies within budget, inclusive.
// Records without a price are kept, and a nil budget keeps everything.
func FilterByBudget(records []models.ProductRecord, budget *models.BudgetRange) []models.ProductRecord {
	if budget == nil {
		return records
	}

	out := make([]models.ProductRecord, 0, len(records))
	for _, r := range records {
		if r.HasPrice() && !budget.Contains(*r.Price) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// seenSet tracks product URLs already claimed by some category.
type seenSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{urls: make(map[string]struct{})}
}

// claim returns the links not yet claimed and marks them as claimed.
func (s *seenSet) claim(links []models.CandidateLink) []models.CandidateLink {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := links[:0:0]
	for _, l := range links {
		if _, ok := s.urls[l.URL]; ok {
			continue
		}
		s.urls[l.URL] = struct{}{}
		out = append(out, l)
	}
	return out
}
