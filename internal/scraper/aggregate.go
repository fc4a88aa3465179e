package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maltedev/shopping-recommender/internal/models"
)

type AggregatorOptions struct {
	// PerCategoryLimit is the number of product links followed per category.
	PerCategoryLimit int
	// Timeout bounds a whole aggregation. Zero disables it.
	Timeout time.Duration
	// DedupeGlobal drops product URLs already claimed by another category.
	DedupeGlobal bool
}

func DefaultAggregatorOptions() *AggregatorOptions {
	return &AggregatorOptions{
		PerCategoryLimit: 3,
		Timeout:          90 * time.Second,
	}
}

// Aggregator fans out one CategoryScraper run per category.
type Aggregator struct {
	scraper *CategoryScraper
	opts    AggregatorOptions
	logger  *slog.Logger
}

func NewAggregator(scraper *CategoryScraper, opts *AggregatorOptions, logger *slog.Logger) *Aggregator {
	if opts == nil {
		opts = DefaultAggregatorOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		scraper: scraper,
		opts:    *opts,
		logger:  logger.With("component", "aggregator"),
	}
}

// Aggregate scrapes every category concurrently. Every category is present
// in the result, with an empty list when nothing could be scraped for it.
func (a *Aggregator) Aggregate(ctx context.Context, categories []string, domain string, budget *models.BudgetRange) map[string][]models.ProductRecord {
	result := make(map[string][]models.ProductRecord, len(categories))
	for _, c := range categories {
		result[c] = []models.ProductRecord{}
	}
	if len(categories) == 0 {
		return result
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	var seen *seenSet
	if a.opts.DedupeGlobal {
		seen = newSeenSet()
	}

	start := time.Now()
	var mu sync.Mutex
	var g errgroup.Group

	for _, category := range categories {
		g.Go(func() error {
			req := models.CategoryRequest{
				Category: category,
				Domain:   domain,
				Budget:   budget,
			}
			records := a.scraper.fetchCategory(ctx, req, a.opts.PerCategoryLimit, seen)

			mu.Lock()
			result[category] = records
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, records := range result {
		total += len(records)
	}
	a.logger.Info("aggregation finished",
		"categories", len(result),
		"products", total,
		"duration", time.Since(start),
		"deadline_exceeded", ctx.Err() != nil,
	)

	return result
}

// Flatten concatenates the per-category lists in category order.
func Flatten(categories []string, byCategory map[string][]models.ProductRecord) []models.ProductRecord {
	var out []models.ProductRecord
	done := make(map[string]bool, len(categories))
	for _, c := range categories {
		if done[c] {
			continue
		}
		done[c] = true
		out = append(out, byCategory[c]...)
	}
	return out
}
