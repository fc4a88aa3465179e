package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/shopping-recommender/internal/fetch"
	"github.com/maltedev/shopping-recommender/internal/ratelimit"
)

// Browser renders marketplace pages in headless Chromium. It implements
// fetch.Opener: every session owns one page in its own browser context, so
// cookies and storage never leak between sessions.
type Browser struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	opts     Options
	budget   ratelimit.RateLimiter
	logger   *slog.Logger
	newPage  func() (navigator, error)
	closeAll sync.Once
}

type Options struct {
	Headless          bool
	Timeout           time.Duration
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	AcceptLanguage    string
	TimezoneID        string
	Locale            string
	ProxyServer       string
	ExtraHeaders      map[string]string
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	RequestsPerSecond float64
	Burst             int
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-GB,en;q=0.9",
		TimezoneID:     "Europe/London",
		Locale:         "en-GB",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":    "1",
		},
		MaxAttempts:       3,
		BaseBackoff:       2 * time.Second,
		MaxBackoff:        15 * time.Second,
		RequestsPerSecond: 1,
		Burst:             2,
	}
}

// navigator is the part of playwright.Page a session uses.
type navigator interface {
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
	Content() (string, error)
	Close(options ...playwright.PageCloseOptions) error
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyServer}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	headers := make(map[string]string, len(opts.ExtraHeaders)+1)
	for k, v := range opts.ExtraHeaders {
		headers[k] = v
	}
	if opts.AcceptLanguage != "" {
		headers["Accept-Language"] = opts.AcceptLanguage
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	}

	b := newBrowser(opts, logger)
	b.pw = pw
	b.browser = browser
	b.newPage = func() (navigator, error) {
		bctx, err := browser.NewContext(contextOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}
		page, err := bctx.NewPage()
		if err != nil {
			bctx.Close()
			return nil, fmt.Errorf("failed to create new page: %w", err)
		}
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
		return &isolatedPage{
			navigator:    page,
			closeContext: func() error { return bctx.Close() },
		}, nil
	}
	return b, nil
}

// isolatedPage is a page living in a browser context of its own. Closing
// the page closes the context with it.
type isolatedPage struct {
	navigator
	closeContext func() error
}

func (p *isolatedPage) Close(options ...playwright.PageCloseOptions) error {
	err := p.navigator.Close(options...)
	if cerr := p.closeContext(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close context: %w", cerr))
	}
	return err
}

func newBrowser(opts *Options, logger *slog.Logger) *Browser {
	return &Browser{
		opts:   *opts,
		budget: ratelimit.NewBudget(opts.RequestsPerSecond, opts.Burst),
		logger: logger.With("component", "browser"),
	}
}

func (b *Browser) policy() fetch.RetryPolicy {
	return fetch.RetryPolicy{
		MaxAttempts: b.opts.MaxAttempts,
		BaseDelay:   b.opts.BaseBackoff,
		MaxDelay:    b.opts.MaxBackoff,
	}
}

// Open returns a session backed by its own context and page. Both are
// created on the first fetch and closed by Close.
func (b *Browser) Open() fetch.Session {
	return &pageSession{browser: b}
}

func (b *Browser) Close() error {
	var errs []error
	b.closeAll.Do(func() {
		if b.browser != nil {
			if err := b.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
			}
		}
		if b.pw != nil {
			if err := b.pw.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
			}
		}
	})

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

type pageSession struct {
	browser *Browser
	page    navigator
}

func (s *pageSession) Fetch(ctx context.Context, url string) (string, error) {
	b := s.browser
	return fetch.Retry(ctx, b.policy(), b.logger, url, func(ctx context.Context) (string, error) {
		if err := b.budget.Wait(ctx); err != nil {
			return "", err
		}
		return s.navigate(ctx, url)
	})
}

func (s *pageSession) navigate(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.page == nil {
		page, err := s.browser.newPage()
		if err != nil {
			return "", err
		}
		s.page = page
	}

	start := time.Now()
	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.browser.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}
	if resp != nil && (resp.Status() < 200 || resp.Status() > 299) {
		return "", fmt.Errorf("%w: %d", fetch.ErrStatus, resp.Status())
	}

	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	if err := fetch.CheckMarketplacePage(content); err != nil {
		return "", err
	}

	s.browser.logger.Debug("rendered document", "url", url, "bytes", len(content), "latency", time.Since(start))
	return content, nil
}

func (s *pageSession) Close() error {
	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	return err
}
