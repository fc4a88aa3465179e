package scraper

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/shopping-recommender/internal/fetch"
	"github.com/maltedev/shopping-recommender/internal/models"
	"github.com/maltedev/shopping-recommender/internal/parser"
)

const testDomain = "amazon.co.uk"

type fakeOpener struct {
	mu        sync.Mutex
	pages     map[string]string
	delay     time.Duration
	opened    int
	closed    int
	active    int
	maxActive int
	fetched   []string
	fetchedAt []time.Time
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{pages: make(map[string]string)}
}

func (f *fakeOpener) Open() fetch.Session {
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	return &fakeSession{f: f}
}

func (f *fakeOpener) addSearch(category string, budget *models.BudgetRange, asins ...string) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, asin := range asins {
		fmt.Fprintf(&b, `<div data-component-type="s-search-result" data-asin="%s"><a class="a-link-normal s-no-outline" href="/item/dp/%s/ref=sr_1">x</a></div>`, asin, asin)
	}
	b.WriteString("</body></html>")
	f.pages[parser.SearchURL(testDomain, category, budget)] = b.String()
}

func (f *fakeOpener) addProduct(asin, title, price string) {
	html := fmt.Sprintf(`<html><body><span id="productTitle">%s</span><img id="landingImage" src="https://img.example/%s.jpg">`, title, asin)
	if price != "" {
		html += fmt.Sprintf(`<div id="corePrice_feature_div"><span class="a-price"><span class="a-offscreen">%s</span></span></div>`, price)
	}
	html += "</body></html>"
	f.pages[productURL(asin)] = html
}

func (f *fakeOpener) sessionsBalanced() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened == f.closed
}

type fakeSession struct {
	f *fakeOpener
}

func (s *fakeSession) Fetch(ctx context.Context, url string) (string, error) {
	f := s.f
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.fetched = append(f.fetched, url)
	f.fetchedAt = append(f.fetchedAt, time.Now())
	delay := f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	html, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: 404", fetch.ErrStatus)
	}
	return html, nil
}

func (s *fakeSession) Close() error {
	s.f.mu.Lock()
	s.f.closed++
	s.f.mu.Unlock()
	return nil
}

func newTestScraper(opener fetch.Opener) *CategoryScraper {
	return NewCategoryScraper(opener, &Options{MaxWorkers: MaxDetailWorkers}, nil)
}

func productURL(asin string) string {
	return parser.CanonicalURL("www."+testDomain, asin)
}

func titles(records []models.ProductRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func TestCategoryScraper_FetchCategory(t *testing.T) {
	opener := newFakeOpener()
	opener.addSearch("headphones", nil, "B000000001", "B000000002", "B000000003", "B000000004")
	opener.addProduct("B000000001", "Studio Headphones", "£79.99")
	opener.addProduct("B000000002", "Travel Earbuds", "£24.50")
	opener.addProduct("B000000003", "Gaming Headset", "")
	opener.addProduct("B000000004", "Never Reached", "£10.00")

	s := newTestScraper(opener)
	req := models.CategoryRequest{Category: "headphones", Domain: testDomain}

	name, records := s.FetchCategory(context.Background(), req, 3)

	assert.Equal(t, "headphones", name)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Studio Headphones", "Travel Earbuds", "Gaming Headset"}, titles(records))
	assert.Equal(t, productURL("B000000001"), records[0].URL)
	require.NotNil(t, records[1].Price)
	assert.InDelta(t, 24.50, *records[1].Price, 0.001)
	assert.Nil(t, records[2].Price)

	assert.NotContains(t, opener.fetched, productURL("B000000004"))
	assert.True(t, opener.sessionsBalanced(), "every session must be closed")
	assert.Equal(t, 4, opener.opened, "one search session plus one per product")
}

func TestCategoryScraper_SkipsFailedProducts(t *testing.T) {
	opener := newFakeOpener()
	opener.addSearch("lamps", nil, "B000000001", "B000000002", "B000000003")
	opener.addProduct("B000000001", "Desk Lamp", "£19.99")
	opener.pages[productURL("B000000003")] = "<html><body><p>Page not found</p></body></html>"

	_, records := newTestScraper(opener).FetchCategory(
		context.Background(),
		models.CategoryRequest{Category: "lamps", Domain: testDomain},
		3,
	)

	assert.Equal(t, []string{"Desk Lamp"}, titles(records))
	assert.True(t, opener.sessionsBalanced())
}

func TestCategoryScraper_SearchFailure(t *testing.T) {
	opener := newFakeOpener()

	name, records := newTestScraper(opener).FetchCategory(
		context.Background(),
		models.CategoryRequest{Category: "nothing here", Domain: testDomain},
		3,
	)

	assert.Equal(t, "nothing here", name)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, 1, opener.opened)
	assert.True(t, opener.sessionsBalanced())
}

func TestCategoryScraper_ZeroLimit(t *testing.T) {
	opener := newFakeOpener()
	opener.addSearch("mugs", nil, "B000000001")

	_, records := newTestScraper(opener).FetchCategory(
		context.Background(),
		models.CategoryRequest{Category: "mugs", Domain: testDomain},
		0,
	)

	assert.Empty(t, records)
	assert.Zero(t, opener.opened)
}

func TestCategoryScraper_BudgetFilter(t *testing.T) {
	budget := &models.BudgetRange{Low: 20, High: 100}

	opener := newFakeOpener()
	opener.addSearch("watches", budget, "B000000001", "B000000002", "B000000003", "B000000004")
	opener.addProduct("B000000001", "Cheap Watch", "£15.00")
	opener.addProduct("B000000002", "Mid Watch", "£50.00")
	opener.addProduct("B000000003", "Luxury Watch", "£150.00")
	opener.addProduct("B000000004", "Mystery Watch", "")

	_, records := newTestScraper(opener).FetchCategory(
		context.Background(),
		models.CategoryRequest{Category: "watches", Domain: testDomain, Budget: budget},
		4,
	)

	assert.Equal(t, []string{"Mid Watch", "Mystery Watch"}, titles(records))
}

func TestCategoryScraper_BoundsDetailConcurrency(t *testing.T) {
	asins := make([]string, 8)
	opener := newFakeOpener()
	for i := range asins {
		asins[i] = fmt.Sprintf("B00000000%d", i)
		opener.addProduct(asins[i], fmt.Sprintf("Product %d", i), "£10.00")
	}
	opener.addSearch("bulk", nil, asins...)
	opener.delay = 30 * time.Millisecond

	_, records := newTestScraper(opener).FetchCategory(
		context.Background(),
		models.CategoryRequest{Category: "bulk", Domain: testDomain},
		8,
	)

	assert.Len(t, records, 8)
	assert.LessOrEqual(t, opener.maxActive, MaxDetailWorkers)
	assert.True(t, opener.sessionsBalanced())
}

func TestFilterByBudget(t *testing.T) {
	records := []models.ProductRecord{
		{Title: "low edge", Price: models.Float(20)},
		{Title: "high edge", Price: models.Float(100)},
		{Title: "below", Price: models.Float(19.99)},
		{Title: "above", Price: models.Float(100.01)},
		{Title: "unpriced"},
	}

	kept := FilterByBudget(records, &models.BudgetRange{Low: 20, High: 100})
	assert.Equal(t, []string{"low edge", "high edge", "unpriced"}, titles(kept))

	assert.Len(t, FilterByBudget(records, nil), len(records))
}

func TestCategoryScraper_ThrottlesRequestsOfOneCategory(t *testing.T) {
	opener := newFakeOpener()
	opener.addSearch("lamps", nil, "B000000001", "B000000002", "B000000003")
	opener.addProduct("B000000001", "Desk Lamp", "£20.00")
	opener.addProduct("B000000002", "Floor Lamp", "£45.00")
	opener.addProduct("B000000003", "Reading Lamp", "£15.00")

	gap := 40 * time.Millisecond
	s := NewCategoryScraper(opener, &Options{ThrottleMin: gap, ThrottleMax: gap}, nil)

	start := time.Now()
	_, records := s.FetchCategory(context.Background(), models.CategoryRequest{Category: "lamps", Domain: testDomain}, 3)
	elapsed := time.Since(start)

	require.Len(t, records, 3)
	require.Len(t, opener.fetchedAt, 4)
	assert.GreaterOrEqual(t, elapsed, 3*gap, "search plus three products need three gaps")

	times := append([]time.Time(nil), opener.fetchedAt...)
	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), gap-10*time.Millisecond, "gap before request %d", i)
	}
	assert.True(t, opener.sessionsBalanced())
}

func TestCategoryScraper_ThrottleHonoursCancellation(t *testing.T) {
	opener := newFakeOpener()
	opener.addSearch("lamps", nil, "B000000001", "B000000002")
	opener.addProduct("B000000001", "Desk Lamp", "£20.00")
	opener.addProduct("B000000002", "Floor Lamp", "£45.00")

	s := NewCategoryScraper(opener, &Options{ThrottleMin: time.Minute, ThrottleMax: time.Minute}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, records := s.FetchCategory(ctx, models.CategoryRequest{Category: "lamps", Domain: testDomain}, 2)

	assert.Empty(t, records)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{parser.SearchURL(testDomain, "lamps", nil)}, opener.fetched)
	assert.True(t, opener.sessionsBalanced())
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, MaxDetailWorkers, opts.MaxWorkers)
	assert.Equal(t, time.Second, opts.ThrottleMin)
	assert.Equal(t, 3*time.Second, opts.ThrottleMax)
}
