package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/maltedev/shopping-recommender/internal/ratelimit"
)

const maxBodyBytes = 8 << 20

// Fetcher retrieves one document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Session is a Fetcher owned by a single task. Close must be called when the task ends.
type Session interface {
	Fetcher
	Close() error
}

// Opener hands out sessions.
type Opener interface {
	Open() Session
}

type Options struct {
	Timeout           time.Duration
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	RequestsPerSecond float64
	Burst             int
	Profiles          []HeaderProfile
}

func DefaultOptions() *Options {
	return &Options{
		Timeout:           10 * time.Second,
		MaxAttempts:       3,
		BaseBackoff:       2 * time.Second,
		MaxBackoff:        15 * time.Second,
		RequestsPerSecond: 2,
		Burst:             4,
		Profiles:          DefaultProfiles,
	}
}

// Client opens plain HTTP sessions sharing one outbound request budget.
type Client struct {
	opts   Options
	budget *ratelimit.Budget
	logger *slog.Logger
}

func NewClient(opts *Options, logger *slog.Logger) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		opts:   *opts,
		budget: ratelimit.NewBudget(opts.RequestsPerSecond, opts.Burst),
		logger: logger.With("component", "fetch"),
	}
}

func (c *Client) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.opts.MaxAttempts,
		BaseDelay:   c.opts.BaseBackoff,
		MaxDelay:    c.opts.MaxBackoff,
	}
}

// Open creates a session with its own connection pool and cookie jar.
func (c *Client) Open() Session {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 2

	jar, _ := cookiejar.New(nil)

	return &httpSession{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   c.opts.Timeout,
		},
		transport: transport,
		budget:    c.budget,
		profiles:  c.opts.Profiles,
		policy:    c.Policy(),
		logger:    c.logger,
	}
}

type httpSession struct {
	client    *http.Client
	transport *http.Transport
	budget    ratelimit.RateLimiter
	profiles  []HeaderProfile
	policy    RetryPolicy
	logger    *slog.Logger
}

func (s *httpSession) Fetch(ctx context.Context, url string) (string, error) {
	return Retry(ctx, s.policy, s.logger, url, func(ctx context.Context) (string, error) {
		if err := s.budget.Wait(ctx); err != nil {
			return "", err
		}
		return s.get(ctx, url)
	})
}

func (s *httpSession) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	pickProfile(s.profiles).Apply(req)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	body := string(data)
	if err := CheckMarketplacePage(body); err != nil {
		return "", err
	}

	s.logger.Debug("fetched document", "url", url, "bytes", len(data), "latency", time.Since(start))
	return body, nil
}

func (s *httpSession) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}
